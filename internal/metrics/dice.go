package metrics

import (
	"math"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// smooth keeps the Dice ratio defined for empty channels
const smooth = 1e-5

// ChannelDiceLoss returns 1 - Dice between a score channel and a binary
// target channel.
func ChannelDiceLoss(pred, target *models.Grid) float64 {
	var inter, sumPred, sumTarget float64
	for i, p := range pred.Data {
		t := float64(target.Data[i])
		inter += float64(p) * t
		sumPred += float64(p)
		sumTarget += t
	}
	return 1 - (2*inter+smooth)/(sumPred+sumTarget+smooth)
}

// DiceLoss is the soft Dice loss of a prediction against a label map. Scores
// are softmaxed across channels, the label is one-hot encoded by channel
// index and the per-channel losses are averaged. The background channel 0 is
// left out unless it is the only channel.
func DiceLoss(pred *models.PredictionMap, label *models.LabelMap) float64 {
	if len(pred.Channels) == 0 {
		return 1
	}
	probs := Softmax(pred)
	first := 1
	if len(probs.Channels) == 1 {
		first = 0
	}
	total := 0.0
	for c := first; c < len(probs.Channels); c++ {
		total += ChannelDiceLoss(probs.Channels[c], label.Mask(int32(c)))
	}
	return total / float64(len(probs.Channels)-first)
}

// Softmax normalizes the scores of every voxel across channels
func Softmax(pred *models.PredictionMap) *models.PredictionMap {
	out := &models.PredictionMap{Channels: make([]*models.Grid, len(pred.Channels))}
	for c := range out.Channels {
		out.Channels[c] = models.NewGrid(pred.Shape())
	}
	n := pred.Shape().Size()
	for i := 0; i < n; i++ {
		peak := math.Inf(-1)
		for _, ch := range pred.Channels {
			peak = max(peak, float64(ch.Data[i]))
		}
		sum := 0.0
		for c, ch := range pred.Channels {
			e := math.Exp(float64(ch.Data[i]) - peak)
			out.Channels[c].Data[i] = float32(e)
			sum += e
		}
		for _, ch := range out.Channels {
			ch.Data[i] = float32(float64(ch.Data[i]) / sum)
		}
	}
	return out
}

// DiceMetric is the mean hard Dice score over the non-background labels of
// labels. Labels with no ground-truth voxels are left out of the mean; with
// none left the score is 0.
func DiceMetric(pred, label *models.LabelMap, labels models.LabelSet) float64 {
	total, n := 0.0, 0
	for _, l := range labels {
		if l.IsBackground() {
			continue
		}
		var inter, sumPred, sumLabel float64
		for i, v := range label.Data {
			t := v == l.ID
			p := pred.Data[i] == l.ID
			if t {
				sumLabel++
			}
			if p {
				sumPred++
			}
			if t && p {
				inter++
			}
		}
		if sumLabel == 0 {
			continue
		}
		total += 2 * inter / (sumPred + sumLabel)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
