package engine

import (
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/clicksim/internal/policy"
	"github.com/GoSim-25-26J-441/clicksim/internal/store"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

// EpisodeRegistry tracks the lifecycle of episodes. store.MemoryStore
// implements it.
type EpisodeRegistry interface {
	CreateEpisode(episodeID, sampleID string) (*store.Episode, error)
	SetStatus(episodeID string, status store.EpisodeStatus, errMsg string) error
	Finish(episodeID string, rounds int, reason string, runErr error) error
}

// episodeRun holds the state of one interaction episode
type episodeRun struct {
	id        string
	sampleID  string
	state     *models.StoppingState
	guidance  *models.GuidanceSet
	reason    policy.Reason
	registry  EpisodeRegistry
	logger    *slog.Logger
	startTime time.Time
}

// newEpisodeRun registers a pending episode for sampleID
func newEpisodeRun(sampleID string, labels models.LabelSet, registry EpisodeRegistry, l *slog.Logger) (*episodeRun, error) {
	id := utils.GenerateEpisodeID()
	if registry != nil {
		ep, err := registry.CreateEpisode(id, sampleID)
		if err != nil {
			return nil, err
		}
		id = ep.ID
	}
	return &episodeRun{
		id:       id,
		sampleID: sampleID,
		state:    models.NewStoppingState(),
		guidance: models.NewGuidanceSet(labels),
		registry: registry,
		logger:   logger.ForEpisode(l, sampleID, id),
	}, nil
}

// Start marks the episode as running
func (r *episodeRun) Start() {
	r.startTime = time.Now()
	if r.registry == nil {
		return
	}
	if err := r.registry.SetStatus(r.id, store.EpisodeRunning, ""); err != nil {
		r.logger.Warn("failed to mark episode running", "error", err)
	}
}

// Complete marks the episode as completed
func (r *episodeRun) Complete() {
	r.finish(nil)
	r.logger.Info("episode completed",
		"stats", r.Stats(),
		"duration", time.Since(r.startTime))
}

// Fail marks the episode as failed
func (r *episodeRun) Fail(err error) {
	r.finish(err)
	r.logger.Error("episode failed", "rounds", r.state.Iteration, "error", err)
}

func (r *episodeRun) finish(runErr error) {
	if r.registry == nil {
		return
	}
	if err := r.registry.Finish(r.id, r.state.Iteration, string(r.reason), runErr); err != nil {
		r.logger.Warn("failed to record episode outcome", "error", err)
	}
}

// Stats returns a summary of the episode
func (r *episodeRun) Stats() map[string]interface{} {
	clicks := make(map[string]int)
	for _, name := range r.guidance.Labels() {
		clicks[name] = r.guidance.Len(name)
	}
	return map[string]interface{}{
		"episode_id":  r.id,
		"sample_id":   r.sampleID,
		"rounds":      r.state.Iteration,
		"reason":      string(r.reason),
		"last_loss":   r.state.LastLoss,
		"last_metric": r.state.LastMetric,
		"clicks":      clicks,
	}
}
