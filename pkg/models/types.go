package models

import (
	"fmt"
	"time"
)

// BackgroundLabel is the reserved name of label id 0
const BackgroundLabel = "background"

// Label maps a label name to its id
type Label struct {
	Name string `yaml:"name" json:"name"`
	ID   int32  `yaml:"id" json:"id"`
}

// LabelSet is the ordered label dictionary. Its order defines the order of
// guidance channels.
type LabelSet []Label

// Names returns the label names in dictionary order
func (ls LabelSet) Names() []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names
}

// Lookup returns the label with the given name
func (ls LabelSet) Lookup(name string) (Label, bool) {
	for _, l := range ls {
		if l.Name == name {
			return l, true
		}
	}
	return Label{}, false
}

// ChannelIndexed checks that the ids are exactly 0..len-1, so that every
// label id doubles as its prediction channel index. NormalizeLabels turns a
// raw dictionary into one that passes.
func (ls LabelSet) ChannelIndexed() error {
	seen := make([]bool, len(ls))
	for _, l := range ls {
		if l.ID < 0 || int(l.ID) >= len(ls) || seen[l.ID] {
			return fmt.Errorf("label %s has id %d, ids must be 0..%d: %w", l.Name, l.ID, len(ls)-1, ErrShapeMismatch)
		}
		seen[l.ID] = true
	}
	return nil
}

// IsBackground reports whether the label is the background label
func (l Label) IsBackground() bool {
	return l.Name == BackgroundLabel
}

// Volume is a channel-first multi-channel grid. Channel 0 is raw intensity;
// the following channels carry one guidance signal per label.
type Volume struct {
	Channels []*Grid
}

// NewVolume allocates a zero-filled volume
func NewVolume(shape Shape, channels int) *Volume {
	v := &Volume{Channels: make([]*Grid, channels)}
	for i := range v.Channels {
		v.Channels[i] = NewGrid(shape)
	}
	return v
}

// Shape returns the spatial shape shared by all channels
func (v *Volume) Shape() Shape {
	if len(v.Channels) == 0 {
		return nil
	}
	return v.Channels[0].Shape
}

// NumChannels returns the channel count
func (v *Volume) NumChannels() int {
	return len(v.Channels)
}

// Validate checks that every channel shares the same shape
func (v *Volume) Validate() error {
	if len(v.Channels) == 0 {
		return fmt.Errorf("volume has no channels: %w", ErrShapeMismatch)
	}
	shape := v.Channels[0].Shape
	for i, ch := range v.Channels {
		if !ch.Shape.Equal(shape) || len(ch.Data) != shape.Size() {
			return fmt.Errorf("channel %d has shape %v, want %v: %w", i, ch.Shape, shape, ErrShapeMismatch)
		}
	}
	return nil
}

// Clone returns a deep copy
func (v *Volume) Clone() *Volume {
	out := &Volume{Channels: make([]*Grid, len(v.Channels))}
	for i, ch := range v.Channels {
		out.Channels[i] = ch.Clone()
	}
	return out
}

// PredictionMap holds one score channel per label id, indexed by id
type PredictionMap struct {
	Channels []*Grid
}

// Shape returns the spatial shape of the prediction
func (p *PredictionMap) Shape() Shape {
	if len(p.Channels) == 0 {
		return nil
	}
	return p.Channels[0].Shape
}

// Argmax collapses the score channels into a LabelMap. Ties resolve to the
// lowest channel index.
func (p *PredictionMap) Argmax() *LabelMap {
	out := NewLabelMap(p.Shape())
	for i := range out.Data {
		best := p.Channels[0].Data[i]
		for c := 1; c < len(p.Channels); c++ {
			if v := p.Channels[c].Data[i]; v > best {
				best = v
				out.Data[i] = int32(c)
			}
		}
	}
	return out
}

// Point is a guidance coordinate: a reserved leading placeholder followed by
// the spatial indices.
type Point []int

// NewPoint builds a Point from spatial coordinates
func NewPoint(spatial []int) Point {
	p := make(Point, len(spatial)+1)
	copy(p[1:], spatial)
	return p
}

// Spatial returns the grid indices without the placeholder
func (p Point) Spatial() []int {
	if len(p) == 0 {
		return nil
	}
	return p[1:]
}

// ValidFor reports an error when the point length does not match the
// spatial dimensionality.
func (p Point) ValidFor(dims int) error {
	if len(p) != dims+1 {
		return fmt.Errorf("guidance %v has length %d, want %d: %w", []int(p), len(p), dims+1, ErrBadGuidanceLength)
	}
	return nil
}

// Discrepancy holds the error masks of one label
type Discrepancy struct {
	FalseNegative *Grid // under-segmented
	FalsePositive *Grid // over-segmented
}

// DiscrepancyMap maps label names to their error masks
type DiscrepancyMap map[string]Discrepancy

// StoppingState is the per-episode bookkeeping read by the stopping policy
type StoppingState struct {
	Iteration  int
	LastLoss   float64
	LastMetric float64
	History    []float64
}

// NewStoppingState returns the state at round 0
func NewStoppingState() *StoppingState {
	return &StoppingState{LastLoss: 1}
}

// Record stores the loss and metric of a finished forward pass
func (s *StoppingState) Record(loss, metric float64) {
	s.LastLoss = loss
	s.LastMetric = metric
	s.History = append(s.History, metric)
}

// MetricPoint represents a single metric data point
type MetricPoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Aggregation represents aggregated statistics for a metric
type Aggregation struct {
	Count  int64   `json:"count"`
	Sum    float64 `json:"sum"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Last   float64 `json:"last"`
}
