// Package store persists episode outputs: the click record of a sample and
// its per-round metric history.
package store

import (
	"time"
)

// ClickRecord maps label names to click coordinates in click order. The
// coordinates carry spatial indices only.
type ClickRecord map[string][][]int

// Store reads and writes episode outputs keyed by sample id
type Store interface {
	SaveClicks(sampleID string, rec ClickRecord) error
	LoadClicks(sampleID string) (map[string][][]int, error)
	SaveHistory(sampleID string, history []float64) error
	LoadHistory(sampleID string) ([]float64, error)
	ListHistory() ([]string, error)
}

// EpisodeStatus is the lifecycle state of an episode
type EpisodeStatus string

const (
	EpisodePending   EpisodeStatus = "pending"
	EpisodeRunning   EpisodeStatus = "running"
	EpisodeCompleted EpisodeStatus = "completed"
	EpisodeFailed    EpisodeStatus = "failed"
)

// Episode tracks one interaction episode
type Episode struct {
	ID        string        `json:"id"`
	SampleID  string        `json:"sample_id"`
	Status    EpisodeStatus `json:"status"`
	Rounds    int           `json:"rounds"`
	Reason    string        `json:"reason,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
}
