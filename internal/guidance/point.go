package guidance

import (
	"github.com/GoSim-25-26J-441/clicksim/internal/geometry"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// findGuidance picks a click inside mask. The base choice is either the
// center of the largest error component or a draw weighted by the distance
// to the error boundary; systematic error and noise are applied on top for
// foreground labels. A non-nil window means mask is the crop of the volume at
// window; the returned click is then local to the window.
func (s *Sampler) findGuidance(mask *models.Grid, req *Request, l models.Label, window *geometry.Box) (models.Point, error) {
	var coords []int
	if s.cfg.CenterClick {
		coords = centerOfLargestComponent(mask)
	} else {
		coords = s.distanceWeighted(mask)
	}
	if coords == nil {
		return nil, nil
	}

	if se := s.cfg.SystematicError; se.Enabled && !l.IsBackground() && s.rng.BernoulliBool(se.Probability) {
		biased, err := s.systematicError(req, l, window)
		if err != nil {
			return nil, err
		}
		if biased != nil {
			coords = biased
		} else {
			s.logger.Debug("systematic error region empty, keeping sampled click", "label", l.Name)
		}
	}

	if n := s.cfg.Noise; n.Enabled && !l.IsBackground() && s.rng.BernoulliBool(n.Probability) {
		coords = s.addNoise(coords, mask.Shape, n.Level)
	}

	p := models.NewPoint(coords)
	if err := p.ValidFor(mask.Shape.Dims()); err != nil {
		return nil, err
	}
	return p, nil
}

// distanceWeighted samples a voxel with probability proportional to its
// distance from the mask boundary
func (s *Sampler) distanceWeighted(mask *models.Grid) []int {
	dist := geometry.DistanceTransform(mask)
	idx := s.rng.WeightedIndex(dist.Data)
	if idx < 0 {
		return nil
	}
	return mask.Shape.Coords(idx)
}

// centerOfLargestComponent returns the skeleton voxel of the largest error
// component that lies deepest inside the mask
func centerOfLargestComponent(mask *models.Grid) []int {
	largest, size := geometry.LargestComponent(mask)
	if size == 0 {
		return nil
	}
	dist := geometry.DistanceTransform(mask)
	skel := geometry.Skeletonize(largest)

	best, bestValue := -1, float32(0)
	for i, v := range skel.Data {
		if w := v * dist.Data[i]; w > bestValue {
			best, bestValue = i, w
		}
	}
	if best < 0 {
		for i, v := range largest.Data {
			if v > 0 {
				best = i
				break
			}
		}
	}
	return mask.Shape.Coords(best)
}
