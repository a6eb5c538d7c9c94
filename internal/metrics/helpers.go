package metrics

import "time"

// Metric names recorded by the interaction loop
const (
	MetricDiceLoss   = "dice_loss"
	MetricDiceMetric = "dice_metric"
	MetricClicks     = "clicks"
)

// RecordRound stores the loss and metric of one forward pass
func RecordRound(c *Collector, sampleID string, loss, metric float64, timestamp time.Time) {
	labels := SampleLabels(sampleID)
	c.Record(MetricDiceLoss, loss, timestamp, labels)
	c.Record(MetricDiceMetric, metric, timestamp, labels)
}

// RecordClicks stores the number of clicks a label holds after a round
func RecordClicks(c *Collector, sampleID, label string, count int, timestamp time.Time) {
	c.Record(MetricClicks, float64(count), timestamp, LabelLabels(sampleID, label))
}

// SampleLabels creates a labels map for one sample
func SampleLabels(sampleID string) map[string]string {
	return map[string]string{
		"sample": sampleID,
	}
}

// LabelLabels creates a labels map for one label of a sample
func LabelLabels(sampleID, label string) map[string]string {
	return map[string]string{
		"sample": sampleID,
		"label":  label,
	}
}
