package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

func TestCollectorRecordAndSeries(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	c.Record("dice_loss", 0.9, now, nil)
	c.Record("dice_loss", 0.5, now.Add(time.Second), nil)
	c.Record("dice_loss", 0.2, now.Add(2*time.Second), nil)

	points := c.Series("dice_loss", nil)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Value != 0.9 || points[2].Value != 0.2 {
		t.Fatalf("unexpected point order: %v, %v", points[0].Value, points[2].Value)
	}
}

func TestCollectorSeparatesLabels(t *testing.T) {
	c := NewCollector()
	RecordRound(c, "a", 0.4, 0.6, time.Now())
	RecordRound(c, "b", 0.1, 0.9, time.Now())

	got := c.Values(MetricDiceMetric, SampleLabels("a"))
	if len(got) != 1 || got[0] != 0.6 {
		t.Fatalf("expected [0.6] for sample a, got %v", got)
	}
	points := c.Series(MetricDiceLoss, SampleLabels("b"))
	if len(points) != 1 || points[0].Labels["sample"] != "b" {
		t.Fatalf("expected one labelled point for sample b, got %v", points)
	}
}

func TestCollectorSeriesReturnsCopies(t *testing.T) {
	c := NewCollector()
	c.Record("clicks", 1, time.Now(), LabelLabels("s", "tumor"))
	points := c.Series("clicks", LabelLabels("s", "tumor"))
	points[0].Value = 42
	points[0].Labels["label"] = "changed"

	again := c.Series("clicks", LabelLabels("s", "tumor"))
	if again[0].Value != 1 || again[0].Labels["label"] != "tumor" {
		t.Fatalf("expected stored point to be unchanged, got %+v", again[0])
	}
}

func TestCollectorAggregation(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	for i, v := range []float64{10, 20, 30, 40, 50} {
		c.Record("m", v, now.Add(time.Duration(i)*time.Second), nil)
	}
	agg := c.Aggregation("m", nil)
	if agg == nil {
		t.Fatalf("expected non-nil aggregation")
	}
	if agg.Count != 5 || agg.Sum != 150 || agg.Min != 10 || agg.Max != 50 || agg.Mean != 30 || agg.Last != 50 {
		t.Fatalf("unexpected aggregation %+v", agg)
	}
	if math.Abs(agg.StdDev-math.Sqrt(200)) > 1e-9 {
		t.Fatalf("expected std dev sqrt(200), got %f", agg.StdDev)
	}
	if c.Aggregation("missing", nil) != nil {
		t.Fatalf("expected nil aggregation for missing metric")
	}
}

func TestChannelDiceLoss(t *testing.T) {
	shape := models.Shape{4}
	target := &models.Grid{Shape: shape, Data: []float32{1, 1, 0, 0}}

	tests := []struct {
		name string
		pred []float32
		want float64
	}{
		{"perfect", []float32{1, 1, 0, 0}, 0},
		{"disjoint", []float32{0, 0, 1, 1}, 1},
		{"half", []float32{1, 0, 0, 0}, 1 - 2.0/3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChannelDiceLoss(&models.Grid{Shape: shape, Data: tt.pred}, target)
			if math.Abs(got-tt.want) > 1e-4 {
				t.Fatalf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestDiceLossEmptyChannel(t *testing.T) {
	empty := models.NewGrid(models.Shape{3})
	if got := ChannelDiceLoss(empty, empty); got != 0 {
		t.Fatalf("expected zero loss for two empty channels, got %f", got)
	}
}

func TestSoftmaxAndDiceLoss(t *testing.T) {
	shape := models.Shape{2}
	pred := &models.PredictionMap{Channels: []*models.Grid{
		{Shape: shape, Data: []float32{10, -10}},
		{Shape: shape, Data: []float32{-10, 10}},
	}}
	probs := Softmax(pred)
	for i := 0; i < 2; i++ {
		sum := probs.Channels[0].Data[i] + probs.Channels[1].Data[i]
		if math.Abs(float64(sum)-1) > 1e-6 {
			t.Fatalf("expected probabilities to sum to 1, got %f", sum)
		}
	}

	label := &models.LabelMap{Shape: shape, Data: []int32{0, 1}}
	if got := DiceLoss(pred, label); got > 1e-3 {
		t.Fatalf("expected near-zero loss for confident correct prediction, got %f", got)
	}
	flipped := &models.LabelMap{Shape: shape, Data: []int32{1, 0}}
	if got := DiceLoss(pred, flipped); got < 0.99 {
		t.Fatalf("expected loss near 1 for wrong prediction, got %f", got)
	}
}

func TestDiceMetric(t *testing.T) {
	labels := models.LabelSet{{Name: "background", ID: 0}, {Name: "tumor", ID: 1}}
	shape := models.Shape{4}
	label := &models.LabelMap{Shape: shape, Data: []int32{1, 1, 0, 0}}
	pred := &models.LabelMap{Shape: shape, Data: []int32{1, 0, 0, 0}}
	if got := DiceMetric(pred, label, labels); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Fatalf("expected 2/3, got %f", got)
	}
	empty := models.NewLabelMap(shape)
	if got := DiceMetric(empty, empty, labels); got != 0 {
		t.Fatalf("expected 0 when no label has ground truth, got %f", got)
	}

	// liver is absent from the ground truth and must not lift the mean
	withLiver := models.LabelSet{{Name: "background", ID: 0}, {Name: "tumor", ID: 1}, {Name: "liver", ID: 2}}
	if got := DiceMetric(pred, label, withLiver); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Fatalf("expected 2/3 with an empty liver label, got %f", got)
	}
	spurious := &models.LabelMap{Shape: shape, Data: []int32{1, 0, 2, 0}}
	if got := DiceMetric(spurious, label, withLiver); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Fatalf("expected spurious liver voxels to be ignored, got %f", got)
	}
}
