package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

// MemoryStore keeps episode outputs and the episode registry in memory
type MemoryStore struct {
	mu       sync.RWMutex
	clicks   map[string]ClickRecord
	history  map[string][]float64
	episodes map[string]*Episode
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clicks:   make(map[string]ClickRecord),
		history:  make(map[string][]float64),
		episodes: make(map[string]*Episode),
	}
}

func (s *MemoryStore) SaveClicks(sampleID string, rec ClickRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks[sampleID] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) LoadClicks(sampleID string) (map[string][][]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.clicks[sampleID]
	if !ok {
		return nil, fmt.Errorf("clicks for %s: %w", sampleID, ErrNotFound)
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) SaveHistory(sampleID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[sampleID] = append([]float64{}, history...)
	return nil
}

func (s *MemoryStore) LoadHistory(sampleID string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[sampleID]
	if !ok {
		return nil, fmt.Errorf("history for %s: %w", sampleID, ErrNotFound)
	}
	return append([]float64{}, h...), nil
}

func (s *MemoryStore) ListHistory() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.history))
	for id := range s.history {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateEpisode registers a pending episode. An empty id is generated.
func (s *MemoryStore) CreateEpisode(episodeID, sampleID string) (*Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if episodeID == "" {
		episodeID = utils.GenerateEpisodeID()
	}
	if _, exists := s.episodes[episodeID]; exists {
		return nil, fmt.Errorf("episode already exists: %s", episodeID)
	}
	ep := &Episode{
		ID:        episodeID,
		SampleID:  sampleID,
		Status:    EpisodePending,
		CreatedAt: time.Now().UTC(),
	}
	s.episodes[episodeID] = ep
	cp := *ep
	return &cp, nil
}

// GetEpisode returns a copy of an episode
func (s *MemoryStore) GetEpisode(episodeID string) (*Episode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.episodes[episodeID]
	if !ok {
		return nil, false
	}
	cp := *ep
	return &cp, true
}

// ListEpisodes returns up to limit episodes, oldest first
func (s *MemoryStore) ListEpisodes(limit int) []*Episode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*Episode, 0, len(s.episodes))
	for _, ep := range s.episodes {
		cp := *ep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SetStatus moves an episode to status, stamping start and end times
func (s *MemoryStore) SetStatus(episodeID string, status EpisodeStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep, ok := s.episodes[episodeID]
	if !ok {
		return fmt.Errorf("episode not found: %s", episodeID)
	}
	ep.Status = status
	if errMsg != "" {
		ep.Error = errMsg
	}
	switch status {
	case EpisodeRunning:
		if ep.StartedAt.IsZero() {
			ep.StartedAt = time.Now().UTC()
		}
	case EpisodeCompleted, EpisodeFailed:
		ep.EndedAt = time.Now().UTC()
	}
	return nil
}

// Finish records the outcome of an episode
func (s *MemoryStore) Finish(episodeID string, rounds int, reason string, runErr error) error {
	status, msg := EpisodeCompleted, ""
	if runErr != nil {
		status, msg = EpisodeFailed, runErr.Error()
	}
	if err := s.SetStatus(episodeID, status, msg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ep := s.episodes[episodeID]
	ep.Rounds = rounds
	ep.Reason = reason
	return nil
}

func copyRecord(rec ClickRecord) ClickRecord {
	out := make(ClickRecord, len(rec))
	for label, pts := range rec {
		cp := make([][]int, len(pts))
		for i, p := range pts {
			cp[i] = append([]int(nil), p...)
		}
		out[label] = cp
	}
	return out
}
