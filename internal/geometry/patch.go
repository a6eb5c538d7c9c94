package geometry

import "github.com/GoSim-25-26J-441/clicksim/pkg/models"

// Box is an axis-aligned region of a grid
type Box struct {
	Origin []int
	Size   []int
}

// Contains reports whether coords fall inside the box
func (b Box) Contains(coords []int) bool {
	if len(coords) != len(b.Origin) {
		return false
	}
	for i, c := range coords {
		if c < b.Origin[i] || c >= b.Origin[i]+b.Size[i] {
			return false
		}
	}
	return true
}

// Tile partitions shape into non-overlapping boxes of the given patch size,
// visiting boxes in row-major order. Boxes at the far edge of an axis are
// clipped to the grid. A non-positive patch extent covers the whole axis.
func Tile(shape models.Shape, patch []int) []Box {
	dims := len(shape)
	size := make([]int, dims)
	counts := make([]int, dims)
	total := 1
	for i := range shape {
		size[i] = shape[i]
		if i < len(patch) && patch[i] > 0 {
			size[i] = min(patch[i], shape[i])
		}
		if size[i] == 0 {
			return nil
		}
		counts[i] = (shape[i] + size[i] - 1) / size[i]
		total *= counts[i]
	}

	boxes := make([]Box, 0, total)
	for n := 0; n < total; n++ {
		b := Box{Origin: make([]int, dims), Size: make([]int, dims)}
		rem := n
		for i := dims - 1; i >= 0; i-- {
			k := rem % counts[i]
			rem /= counts[i]
			b.Origin[i] = k * size[i]
			b.Size[i] = min(size[i], shape[i]-b.Origin[i])
		}
		boxes = append(boxes, b)
	}
	return boxes
}
