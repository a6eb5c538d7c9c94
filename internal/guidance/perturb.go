package guidance

import (
	"fmt"

	"github.com/GoSim-25-26J-441/clicksim/internal/geometry"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

// addNoise shifts every coordinate by a uniform offset in [-level, level] and
// clamps the result into shape
func (s *Sampler) addNoise(coords []int, shape models.Shape, level int) []int {
	out := make([]int, len(coords))
	for i, c := range coords {
		out[i] = c + s.rng.IntRange(-level, level)
	}
	return shape.Clamp(out)
}

// systematicError draws a click from a biased background region: voxels the
// model is uncertain about, background brighter than the label's mean
// intensity, or both. The region is built on the whole volume, depth bands
// included, and only then restricted to window when one is given. It returns
// nil when the region is empty.
func (s *Sampler) systematicError(req *Request, l models.Label, window *geometry.Box) ([]int, error) {
	se := s.cfg.SystematicError
	label, image, sampleID := req.Label, req.Image, req.SampleID
	shape := label.Shape
	region := models.NewGrid(shape)
	for i, v := range label.Data {
		if v == 0 {
			region.Data[i] = 1
		}
	}

	if se.UncertaintyBased {
		unc, err := s.uncertainty.Uncertainty(sampleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load uncertainty for %s: %w", sampleID, err)
		}
		if !unc.Shape.Equal(shape) {
			return nil, fmt.Errorf("uncertainty shape %v, label shape %v: %w", unc.Shape, shape, models.ErrShapeMismatch)
		}
		for i, u := range unc.Data {
			if float64(u) <= se.UncertaintyThreshold {
				region.Data[i] = 0
			}
		}
	}

	if se.IntensityBased {
		if image == nil || !image.Shape.Equal(shape) {
			return nil, fmt.Errorf("intensity-based systematic error needs an image of shape %v: %w", shape, models.ErrShapeMismatch)
		}
		var inside []float64
		for i, v := range label.Data {
			if v == l.ID {
				inside = append(inside, float64(image.Data[i]))
			}
		}
		if len(inside) == 0 {
			return nil, nil
		}
		mean := utils.Mean(inside)
		for i, v := range image.Data {
			if float64(v) < mean {
				region.Data[i] = 0
			}
		}
	}

	excludeDepthBands(region, se.LowerBand, se.UpperBand)
	if window != nil {
		region = region.Crop(window.Origin, window.Size)
	}
	idx := s.rng.WeightedIndex(region.Data)
	if idx < 0 {
		return nil, nil
	}
	return region.Shape.Coords(idx), nil
}

// excludeDepthBands zeroes the first lower and the last upper slices of the
// last axis
func excludeDepthBands(g *models.Grid, lower, upper int) {
	depth := g.Shape[len(g.Shape)-1]
	for i := range g.Data {
		z := i % depth
		if z < lower || z >= depth-upper {
			g.Data[i] = 0
		}
	}
}
