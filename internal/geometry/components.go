package geometry

import "github.com/GoSim-25-26J-441/clicksim/pkg/models"

// LargestComponent keeps only the largest face-connected (6-connected in 3-D,
// 4-connected in 2-D) region of mask. Ties go to the region found first in
// raster order. It also returns the voxel count of that region.
func LargestComponent(mask *models.Grid) (*models.Grid, int) {
	shape := mask.Shape
	n := shape.Size()
	strides := shape.Strides()
	labels := make([]int32, n)
	queue := make([]int, 0, 64)

	var bestLabel int32
	bestSize := 0
	next := int32(0)

	for seed := 0; seed < n; seed++ {
		if mask.Data[seed] <= 0 || labels[seed] != 0 {
			continue
		}
		next++
		labels[seed] = next
		size := 0
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++
			coords := shape.Coords(idx)
			for axis := range shape {
				for _, step := range [2]int{-1, 1} {
					c := coords[axis] + step
					if c < 0 || c >= shape[axis] {
						continue
					}
					nb := idx + step*strides[axis]
					if mask.Data[nb] > 0 && labels[nb] == 0 {
						labels[nb] = next
						queue = append(queue, nb)
					}
				}
			}
		}
		if size > bestSize {
			bestSize = size
			bestLabel = next
		}
	}

	out := models.NewGrid(shape)
	if bestSize == 0 {
		return out, 0
	}
	for i, l := range labels {
		if l == bestLabel {
			out.Data[i] = 1
		}
	}
	return out, bestSize
}
