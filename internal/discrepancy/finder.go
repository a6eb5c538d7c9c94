// Package discrepancy derives per-label error masks from a ground-truth label
// map and a model prediction.
package discrepancy

import (
	"fmt"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// Find computes the false-negative and false-positive masks of every label in
// labels. The prediction is collapsed with argmax first. The background label
// is evaluated on inverted masks, so its false negatives are foreground
// predictions on true background and its false positives the converse.
//
// Find keeps no state; equal inputs give equal outputs.
func Find(label *models.LabelMap, pred *models.PredictionMap, labels models.LabelSet) (models.DiscrepancyMap, error) {
	if len(pred.Channels) == 0 {
		return nil, fmt.Errorf("prediction has no channels: %w", models.ErrShapeMismatch)
	}
	if !label.Shape.Equal(pred.Shape()) {
		return nil, fmt.Errorf("label shape %v, prediction shape %v: %w", label.Shape, pred.Shape(), models.ErrShapeMismatch)
	}
	return FindFromLabels(label, pred.Argmax(), labels)
}

// FindFromLabels is Find for an already collapsed prediction
func FindFromLabels(label, pred *models.LabelMap, labels models.LabelSet) (models.DiscrepancyMap, error) {
	if !label.Shape.Equal(pred.Shape) {
		return nil, fmt.Errorf("label shape %v, prediction shape %v: %w", label.Shape, pred.Shape, models.ErrShapeMismatch)
	}
	out := make(models.DiscrepancyMap, len(labels))
	for _, l := range labels {
		out[l.Name] = masks(label, pred, l.ID, l.IsBackground())
	}
	return out, nil
}

func masks(label, pred *models.LabelMap, id int32, invert bool) models.Discrepancy {
	d := models.Discrepancy{
		FalseNegative: models.NewGrid(label.Shape),
		FalsePositive: models.NewGrid(label.Shape),
	}
	for i := range label.Data {
		truth := binarize(label.Data[i] == id, invert)
		guess := binarize(pred.Data[i] == id, invert)
		switch diff := truth - guess; {
		case diff > 0:
			d.FalseNegative.Data[i] = 1
		case diff < 0:
			d.FalsePositive.Data[i] = 1
		}
	}
	return d
}

func binarize(match, invert bool) int {
	v := 0
	if match {
		v = 1
	}
	if invert {
		return 1 - v
	}
	return v
}
