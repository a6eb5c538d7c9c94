package geometry

import (
	"math"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// unreached is the initial distance of every non-seed voxel
const unreached = 1e10

type neighbourStep struct {
	offset []int
	length float64
}

// GeodesicDistance computes a generalized geodesic distance from the voxels
// where seeds is positive, using image as the cost field. Each step between
// neighbours costs sqrt((1-lambda)*d^2 + lambda*dI^2) where d is the physical
// step length and dI the intensity change. The field is refined by
// iterations forward/backward raster passes over the full neighbourhood.
//
// spacing gives the physical voxel size per axis; missing entries default to 1.
func GeodesicDistance(image, seeds *models.Grid, spacing []float64, lambda float64, iterations int) (*models.Grid, error) {
	if !image.Shape.Equal(seeds.Shape) {
		return nil, models.ErrShapeMismatch
	}
	shape := image.Shape
	dims := len(shape)
	space := make([]float64, dims)
	for i := range space {
		space[i] = 1
		if i < len(spacing) && spacing[i] > 0 {
			space[i] = spacing[i]
		}
	}

	dist := make([]float64, shape.Size())
	for i, v := range seeds.Data {
		if v > 0 {
			dist[i] = 0
		} else {
			dist[i] = unreached
		}
	}

	forward, backward := rasterSteps(dims, space)
	strides := shape.Strides()
	iterations = max(iterations, 1)
	for it := 0; it < iterations; it++ {
		for idx := 0; idx < len(dist); idx++ {
			relax(image, dist, shape, strides, idx, forward, lambda)
		}
		for idx := len(dist) - 1; idx >= 0; idx-- {
			relax(image, dist, shape, strides, idx, backward, lambda)
		}
	}

	out := models.NewGrid(shape)
	for i, d := range dist {
		out.Data[i] = float32(d)
	}
	return out, nil
}

// rasterSteps splits the full neighbourhood into the half already visited in
// a forward raster scan and its mirror.
func rasterSteps(dims int, space []float64) (forward, backward []neighbourStep) {
	total := 1
	for i := 0; i < dims; i++ {
		total *= 3
	}
	for code := 0; code < total; code++ {
		offset := make([]int, dims)
		rem := code
		for i := dims - 1; i >= 0; i-- {
			offset[i] = rem%3 - 1
			rem /= 3
		}
		// Lexicographically negative offsets precede the voxel in raster order
		sign := 0
		for _, o := range offset {
			if o != 0 {
				sign = o
				break
			}
		}
		if sign == 0 {
			continue
		}
		length := 0.0
		for i, o := range offset {
			length += float64(o*o) * space[i] * space[i]
		}
		step := neighbourStep{offset: offset, length: math.Sqrt(length)}
		if sign < 0 {
			forward = append(forward, step)
		} else {
			backward = append(backward, step)
		}
	}
	return forward, backward
}

func relax(image *models.Grid, dist []float64, shape models.Shape, strides []int, idx int, steps []neighbourStep, lambda float64) {
	best := dist[idx]
	if best == 0 {
		return
	}
	coords := shape.Coords(idx)
	value := float64(image.Data[idx])
	for _, step := range steps {
		nidx := 0
		inside := true
		for i, o := range step.offset {
			c := coords[i] + o
			if c < 0 || c >= shape[i] {
				inside = false
				break
			}
			nidx += c * strides[i]
		}
		if !inside {
			continue
		}
		dI := value - float64(image.Data[nidx])
		cost := math.Sqrt((1-lambda)*step.length*step.length + lambda*dI*dI)
		if d := dist[nidx] + cost; d < best {
			best = d
		}
	}
	dist[idx] = best
}
