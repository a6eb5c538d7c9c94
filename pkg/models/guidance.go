package models

import (
	"fmt"
	"sync"
)

// GuidanceSet is the ordered click history of one episode, kept per label.
// Sets only grow.
type GuidanceSet struct {
	labels []string
	points map[string][]Point
	mu     sync.RWMutex
}

// NewGuidanceSet creates an empty set for the given label dictionary
func NewGuidanceSet(labels LabelSet) *GuidanceSet {
	gs := &GuidanceSet{
		labels: labels.Names(),
		points: make(map[string][]Point, len(labels)),
	}
	for _, name := range gs.labels {
		gs.points[name] = nil
	}
	return gs
}

// Labels returns the label names in dictionary order
func (gs *GuidanceSet) Labels() []string {
	return append([]string(nil), gs.labels...)
}

// Append adds a click to the label's history
func (gs *GuidanceSet) Append(label string, p Point) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.points[label] = append(gs.points[label], append(Point(nil), p...))
}

// Extend replaces the label's history with pts. pts must be at least as long
// as the current history.
func (gs *GuidanceSet) Extend(label string, pts []Point) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if len(pts) < len(gs.points[label]) {
		return fmt.Errorf("label %s: %d clicks would replace %d: %w", label, len(pts), len(gs.points[label]), ErrGuidanceShrunk)
	}
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = append(Point(nil), p...)
	}
	gs.points[label] = out
	return nil
}

// Points returns a copy of the label's click history
func (gs *GuidanceSet) Points(label string) []Point {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	src := gs.points[label]
	out := make([]Point, len(src))
	for i, p := range src {
		out[i] = append(Point(nil), p...)
	}
	return out
}

// Len returns the number of clicks recorded for the label
func (gs *GuidanceSet) Len(label string) int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return len(gs.points[label])
}

// Record exports the set in click-record layout: label name to spatial
// coordinates, placeholder dropped.
func (gs *GuidanceSet) Record() map[string][][]int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	out := make(map[string][][]int, len(gs.points))
	for _, name := range gs.labels {
		coords := make([][]int, 0, len(gs.points[name]))
		for _, p := range gs.points[name] {
			coords = append(coords, append([]int(nil), p.Spatial()...))
		}
		out[name] = coords
	}
	return out
}
