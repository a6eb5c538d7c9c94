package models

import (
	"errors"
	"testing"
)

func TestShapeIndexRoundTrip(t *testing.T) {
	shape := Shape{4, 5, 6}
	for idx := 0; idx < shape.Size(); idx++ {
		coords := shape.Coords(idx)
		if got := shape.Index(coords); got != idx {
			t.Fatalf("Index(Coords(%d)) = %d", idx, got)
		}
		if !shape.Contains(coords) {
			t.Fatalf("expected %v inside %v", coords, shape)
		}
	}
}

func TestShapeClamp(t *testing.T) {
	shape := Shape{4, 4, 4}
	got := shape.Clamp([]int{-2, 3, 9})
	want := []int{0, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Clamp = %v, want %v", got, want)
		}
	}
}

func TestGridCrop(t *testing.T) {
	g := NewGrid(Shape{4, 4, 4})
	g.Set(7, 3, 2, 1)
	crop := g.Crop([]int{2, 2, 0}, []int{4, 4, 4})
	if !crop.Shape.Equal(Shape{2, 2, 4}) {
		t.Fatalf("expected clipped shape [2 2 4], got %v", crop.Shape)
	}
	if crop.At(1, 0, 1) != 7 {
		t.Fatalf("expected cropped value 7, got %f", crop.At(1, 0, 1))
	}
}

func TestPredictionArgmax(t *testing.T) {
	shape := Shape{2, 2}
	bg := NewGrid(shape)
	fg := NewGrid(shape)
	bg.Data = []float32{0.9, 0.2, 0.5, 0.1}
	fg.Data = []float32{0.1, 0.8, 0.5, 0.9}
	pred := &PredictionMap{Channels: []*Grid{bg, fg}}

	got := pred.Argmax().Data
	want := []int32{0, 1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Argmax()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestVolumeValidate(t *testing.T) {
	v := NewVolume(Shape{3, 3, 3}, 3)
	if err := v.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v.Channels[2] = NewGrid(Shape{3, 3, 2})
	if err := v.Validate(); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestPointValidFor(t *testing.T) {
	if err := NewPoint([]int{1, 2, 3}).ValidFor(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NewPoint([]int{1, 2}).ValidFor(3); !errors.Is(err, ErrBadGuidanceLength) {
		t.Fatalf("expected ErrBadGuidanceLength, got %v", err)
	}
}

func TestGuidanceSetOrderAndRecord(t *testing.T) {
	labels := LabelSet{{Name: "tumor", ID: 1}, {Name: BackgroundLabel, ID: 0}}
	gs := NewGuidanceSet(labels)
	gs.Append("tumor", NewPoint([]int{1, 2, 3}))
	gs.Append("tumor", NewPoint([]int{4, 5, 6}))

	if gs.Len("tumor") != 2 {
		t.Fatalf("expected 2 tumor clicks, got %d", gs.Len("tumor"))
	}
	rec := gs.Record()
	if len(rec[BackgroundLabel]) != 0 {
		t.Fatalf("expected no background clicks, got %v", rec[BackgroundLabel])
	}
	if rec["tumor"][1][0] != 4 || len(rec["tumor"][1]) != 3 {
		t.Fatalf("expected second tumor click [4 5 6], got %v", rec["tumor"][1])
	}

	// Returned points are copies
	pts := gs.Points("tumor")
	pts[0][1] = 99
	if gs.Points("tumor")[0][1] != 1 {
		t.Fatal("Points must not expose internal storage")
	}
}

func TestGuidanceSetExtendCannotShrink(t *testing.T) {
	gs := NewGuidanceSet(LabelSet{{Name: "tumor", ID: 1}})
	gs.Append("tumor", NewPoint([]int{1, 1, 1}))
	gs.Append("tumor", NewPoint([]int{2, 2, 2}))

	err := gs.Extend("tumor", []Point{NewPoint([]int{1, 1, 1})})
	if !errors.Is(err, ErrGuidanceShrunk) {
		t.Fatalf("expected ErrGuidanceShrunk, got %v", err)
	}
}

func TestNormalizeLabels(t *testing.T) {
	raw := NewLabelMap(Shape{4})
	raw.Data = []int32{0, 5, 9, 3}
	labels := LabelSet{{Name: "liver", ID: 5}, {Name: BackgroundLabel, ID: 0}, {Name: "tumor", ID: 9}}

	out, normalized := NormalizeLabels(raw, labels)
	want := []int32{0, 1, 2, 0}
	for i := range want {
		if out.Data[i] != want[i] {
			t.Fatalf("normalized[%d] = %d, want %d", i, out.Data[i], want[i])
		}
	}
	if l, _ := normalized.Lookup(BackgroundLabel); l.ID != 0 {
		t.Fatalf("expected background id 0, got %d", l.ID)
	}
	if l, _ := normalized.Lookup("tumor"); l.ID != 2 {
		t.Fatalf("expected tumor id 2, got %d", l.ID)
	}
}

func TestLabelSetChannelIndexed(t *testing.T) {
	tests := []struct {
		name   string
		labels LabelSet
		ok     bool
	}{
		{"contiguous", LabelSet{{Name: BackgroundLabel, ID: 0}, {Name: "tumor", ID: 1}}, true},
		{"any order", LabelSet{{Name: "tumor", ID: 1}, {Name: BackgroundLabel, ID: 0}}, true},
		{"gap", LabelSet{{Name: BackgroundLabel, ID: 0}, {Name: "tumor", ID: 2}}, false},
		{"no zero", LabelSet{{Name: "liver", ID: 1}, {Name: "tumor", ID: 2}}, false},
		{"negative", LabelSet{{Name: BackgroundLabel, ID: 0}, {Name: "tumor", ID: -1}}, false},
		{"duplicate", LabelSet{{Name: BackgroundLabel, ID: 0}, {Name: "tumor", ID: 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.labels.ChannelIndexed()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrShapeMismatch) {
				t.Fatalf("expected ErrShapeMismatch, got %v", err)
			}
		})
	}

	_, normalized := NormalizeLabels(NewLabelMap(Shape{1}), LabelSet{{Name: BackgroundLabel, ID: 0}, {Name: "tumor", ID: 2}})
	if err := normalized.ChannelIndexed(); err != nil {
		t.Fatalf("normalized labels should be channel indexed: %v", err)
	}
}

func TestStoppingStateRecord(t *testing.T) {
	s := NewStoppingState()
	if s.LastLoss != 1 {
		t.Fatalf("expected initial loss 1, got %f", s.LastLoss)
	}
	s.Record(0.4, 0.6)
	s.Record(0.2, 0.8)
	if s.LastLoss != 0.2 || s.LastMetric != 0.8 || len(s.History) != 2 {
		t.Fatalf("unexpected state %+v", s)
	}
}
