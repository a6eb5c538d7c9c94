package geometry

import (
	"math"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// truncate is the kernel radius in units of sigma
const truncate = 4.0

// gaussianKernel integrates the normal density over each unit voxel, which
// keeps small sigmas well behaved, and normalizes the weights to sum to one.
func gaussianKernel(sigma float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	scale := 1 / (sigma * math.Sqrt2)
	sum := 0.0
	for i := range kernel {
		x := float64(i - radius)
		w := 0.5 * (math.Erf((x+0.5)*scale) - math.Erf((x-0.5)*scale))
		kernel[i] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianFilter convolves g with an isotropic Gaussian of standard deviation
// sigma along every axis. Voxels outside the grid count as zero. A non
// positive sigma returns a copy of g.
func GaussianFilter(g *models.Grid, sigma float64) *models.Grid {
	out := g.Clone()
	if sigma <= 0 {
		return out
	}
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	shape := g.Shape
	strides := shape.Strides()

	longest := 0
	for _, d := range shape {
		longest = max(longest, d)
	}
	line := make([]float64, longest)

	for axis := range shape {
		length := shape[axis]
		stride := strides[axis]
		forEachLine(shape, axis, func(start int) {
			for i := 0; i < length; i++ {
				line[i] = float64(out.Data[start+i*stride])
			}
			for i := 0; i < length; i++ {
				acc := 0.0
				lo := max(0, i-radius)
				hi := min(length-1, i+radius)
				for j := lo; j <= hi; j++ {
					acc += line[j] * kernel[j-i+radius]
				}
				out.Data[start+i*stride] = float32(acc)
			}
		})
	}
	return out
}
