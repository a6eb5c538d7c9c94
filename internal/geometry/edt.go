package geometry

import (
	"math"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// far stands in for infinity in the lower-envelope computation; it keeps the
// parabola intersections finite.
const far = 1e20

// DistanceTransform returns, for every voxel of mask greater than zero, the
// Euclidean distance to the nearest zero voxel. Zero voxels map to zero. When
// mask has no zero voxel at all every foreground voxel maps to 1.
//
// The transform is exact and separable (Felzenszwalb & Huttenlocher).
func DistanceTransform(mask *models.Grid) *models.Grid {
	shape := mask.Shape
	n := shape.Size()
	out := models.NewGrid(shape)

	sq := make([]float64, n)
	background := 0
	for i, v := range mask.Data {
		if v > 0 {
			sq[i] = far
		} else {
			background++
		}
	}
	if background == 0 {
		for i, v := range mask.Data {
			if v > 0 {
				out.Data[i] = 1
			}
		}
		return out
	}

	strides := shape.Strides()
	longest := 0
	for _, d := range shape {
		longest = max(longest, d)
	}
	f := make([]float64, longest)
	d := make([]float64, longest)
	v := make([]int, longest)
	z := make([]float64, longest+1)

	for axis := range shape {
		length := shape[axis]
		stride := strides[axis]
		forEachLine(shape, axis, func(start int) {
			for i := 0; i < length; i++ {
				f[i] = sq[start+i*stride]
			}
			lowerEnvelope(f[:length], d[:length], v, z)
			for i := 0; i < length; i++ {
				sq[start+i*stride] = d[i]
			}
		})
	}

	for i := range sq {
		if mask.Data[i] > 0 {
			out.Data[i] = float32(math.Sqrt(sq[i]))
		}
	}
	return out
}

// lowerEnvelope computes the 1-D squared distance transform of f into d
func lowerEnvelope(f, d []float64, v []int, z []float64) {
	n := len(f)
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

func intersect(f []float64, q, p int) float64 {
	fq := f[q] + float64(q*q)
	fp := f[p] + float64(p*p)
	return (fq - fp) / float64(2*q-2*p)
}

// forEachLine calls fn with the flat start index of every 1-D line running
// along axis.
func forEachLine(shape models.Shape, axis int, fn func(start int)) {
	strides := shape.Strides()
	lines := shape.Size() / shape[axis]
	coords := make([]int, len(shape))
	for line := 0; line < lines; line++ {
		// Decode line into coordinates over every axis except the line axis
		rem := line
		for i := len(shape) - 1; i >= 0; i-- {
			if i == axis {
				coords[i] = 0
				continue
			}
			coords[i] = rem % shape[i]
			rem /= shape[i]
		}
		start := 0
		for i, c := range coords {
			start += c * strides[i]
		}
		fn(start)
	}
}
