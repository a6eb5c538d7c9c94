package guidance

import (
	"fmt"

	"github.com/GoSim-25-26J-441/clicksim/internal/geometry"
	"github.com/GoSim-25-26J-441/clicksim/internal/metrics"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// samplePatches splits the volume into patches, finds for each foreground
// label the patch with the worst Dice loss and clicks into that patch's
// false-negative region
func (s *Sampler) samplePatches(req *Request, res Result) error {
	shape := req.Label.Shape
	if shape.Dims() != 3 {
		return fmt.Errorf("patch-based sampling needs a 3-D volume, got %v: %w", shape, models.ErrShapeMismatch)
	}
	if !req.Prediction.Shape().Equal(shape) {
		return fmt.Errorf("prediction shape %v, label shape %v: %w", req.Prediction.Shape(), shape, models.ErrShapeMismatch)
	}
	pred := req.Prediction.Argmax()
	boxes := geometry.Tile(shape, s.cfg.PatchSize)

	for _, l := range s.labels {
		if l.IsBackground() {
			continue
		}
		d, ok := req.Discrepancy[l.Name]
		if !ok {
			continue
		}
		box := worstPatch(boxes, pred.Mask(l.ID), req.Label.Mask(l.ID))
		fn := d.FalseNegative.Crop(box.Origin, box.Size)
		if fn.Sum() == 0 {
			s.logger.Info("nothing to improve in worst patch, not adding any click", "label", l.Name, "origin", box.Origin)
			continue
		}

		p, err := s.findGuidance(fn, req, l, &box)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		spatial := p.Spatial()
		for i := range spatial {
			spatial[i] += box.Origin[i]
		}
		if err := p.ValidFor(shape.Dims()); err != nil {
			return err
		}
		res[l.Name] = p
	}
	return nil
}

// worstPatch returns the box with the highest Dice loss. Ties go to the
// first box in row-major order.
func worstPatch(boxes []geometry.Box, pred, target *models.Grid) geometry.Box {
	best, bestLoss := 0, -1.0
	for i, b := range boxes {
		loss := metrics.ChannelDiceLoss(pred.Crop(b.Origin, b.Size), target.Crop(b.Origin, b.Size))
		if loss > bestLoss {
			best, bestLoss = i, loss
		}
	}
	return boxes[best]
}
