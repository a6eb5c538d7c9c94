// Package engine runs interaction episodes: it drives the model, the
// stopping policy, click simulation and guidance rendering round by round,
// then hands the final input to the training step.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/GoSim-25-26J-441/clicksim/internal/discrepancy"
	"github.com/GoSim-25-26J-441/clicksim/internal/guidance"
	"github.com/GoSim-25-26J-441/clicksim/internal/metrics"
	"github.com/GoSim-25-26J-441/clicksim/internal/policy"
	"github.com/GoSim-25-26J-441/clicksim/internal/signal"
	"github.com/GoSim-25-26J-441/clicksim/internal/store"
	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

// Inferer runs a forward pass of the segmentation model
type Inferer interface {
	Infer(ctx context.Context, vol *models.Volume) (*models.PredictionMap, error)
}

// Trainer runs the training (or evaluation) step on the final input of an
// episode
type Trainer interface {
	Step(ctx context.Context, vol *models.Volume, label *models.LabelMap, train bool) error
}

// DebugExporter writes the inputs and prediction of a round for inspection
type DebugExporter interface {
	Export(sampleID string, iteration int, vol *models.Volume, label *models.LabelMap, pred *models.PredictionMap) error
}

// Sample is one training or evaluation item
type Sample struct {
	ID     string
	Volume *models.Volume // intensity channels, optionally followed by empty guidance channels
	Label  *models.LabelMap
}

// EpisodeResult describes a finished episode
type EpisodeResult struct {
	EpisodeID string
	SampleID  string
	Rounds    int
	Reason    policy.Reason
	Loss      float64
	Metric    float64
	History   []float64
	Volume    *models.Volume
	Guidance  *models.GuidanceSet
}

// Engine is the interaction loop
type Engine struct {
	cfg          *config.Config
	labels       models.LabelSet
	inferer      Inferer
	trainer      Trainer
	stopping     policy.StoppingPolicy
	sampler      *guidance.Sampler
	builder      *signal.Builder
	store        store.Store
	replay       guidance.ClickSource
	uncertainty  guidance.UncertaintySource
	episodes     EpisodeRegistry
	debug        DebugExporter
	observers    []Observer
	collector    *metrics.Collector
	rng          *utils.RandSource
	logger       *slog.Logger
	eventCounter int64
}

// Option configures optional Engine collaborators
type Option func(*Engine)

// WithStore sets where episode outputs are written
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithReplaySource sets the click records replayed in replay mode
func WithReplaySource(src guidance.ClickSource) Option {
	return func(e *Engine) { e.replay = src }
}

// WithUncertainty sets the uncertainty map provider
func WithUncertainty(src guidance.UncertaintySource) Option {
	return func(e *Engine) { e.uncertainty = src }
}

// WithEpisodes sets the episode registry
func WithEpisodes(r EpisodeRegistry) Option {
	return func(e *Engine) { e.episodes = r }
}

// WithDebugExporter sets the exporter called each round in debug mode
func WithDebugExporter(d DebugExporter) Option {
	return func(e *Engine) { e.debug = d }
}

// WithObserver adds an event observer
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithCollector sets the per-round metric collector
func WithCollector(c *metrics.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// WithRand sets the random source shared by the stopping policy and the
// sampler
func WithRand(rng *utils.RandSource) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an interaction loop for cfg. Strategy and stopping
// criterion are resolved here so that bad configuration fails early.
func NewEngine(cfg *config.Config, inferer Inferer, trainer Trainer, opts ...Option) (*Engine, error) {
	if inferer == nil || trainer == nil {
		return nil, fmt.Errorf("engine needs an inferer and a trainer")
	}
	if err := cfg.LabelSet().ChannelIndexed(); err != nil {
		return nil, fmt.Errorf("labels must be normalized: %w", err)
	}
	e := &Engine{
		cfg:       cfg,
		labels:    cfg.LabelSet(),
		inferer:   inferer,
		trainer:   trainer,
		collector: metrics.NewCollector(),
		logger:    logger.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = utils.NewRandSource(cfg.Seed)
	}

	stopping, err := policy.NewStoppingPolicy(cfg.Interaction, e.rng)
	if err != nil {
		return nil, err
	}
	e.stopping = stopping

	samplerOpts := []guidance.Option{
		guidance.WithLogger(e.logger),
		guidance.WithClickProbability(cfg.Interaction.DeepgrowProbability),
	}
	if e.replay != nil {
		samplerOpts = append(samplerOpts, guidance.WithClickSource(e.replay))
	}
	if e.uncertainty != nil {
		samplerOpts = append(samplerOpts, guidance.WithUncertainty(e.uncertainty))
	}
	sampler, err := guidance.NewSampler(cfg.Sampler, e.labels, e.rng, samplerOpts...)
	if err != nil {
		return nil, err
	}
	e.sampler = sampler

	e.builder = signal.NewBuilder(cfg.Signal)
	e.builder.SetLogger(e.logger)
	return e, nil
}

// Collector returns the per-round metric collector
func (e *Engine) Collector() *metrics.Collector {
	return e.collector
}

// Run simulates the interaction episode of one sample and then runs the
// training step exactly once on the final input.
func (e *Engine) Run(ctx context.Context, sample *Sample) (*EpisodeResult, error) {
	vol, err := e.prepare(sample)
	if err != nil {
		return nil, err
	}

	if e.cfg.Interaction.NonInteractive {
		e.logger.Info("non-interactive step",
			"sample_id", sample.ID,
			"input_shape", vol.Shape().String(),
			"channels", vol.NumChannels())
		if err := e.trainer.Step(ctx, vol, sample.Label, e.cfg.Interaction.Train); err != nil {
			return nil, fmt.Errorf("training step for %s: %w", sample.ID, err)
		}
		return &EpisodeResult{SampleID: sample.ID, Volume: vol, Guidance: models.NewGuidanceSet(e.labels)}, nil
	}

	run, err := newEpisodeRun(sample.ID, e.labels, e.episodes, e.logger)
	if err != nil {
		return nil, err
	}
	run.Start()

	if err := e.loop(ctx, run, sample, vol); err != nil {
		run.Fail(err)
		return nil, err
	}
	if err := e.trainer.Step(ctx, vol, sample.Label, e.cfg.Interaction.Train); err != nil {
		err = fmt.Errorf("training step for %s: %w", sample.ID, err)
		run.Fail(err)
		return nil, err
	}
	run.Complete()

	return &EpisodeResult{
		EpisodeID: run.id,
		SampleID:  sample.ID,
		Rounds:    run.state.Iteration,
		Reason:    run.reason,
		Loss:      run.state.LastLoss,
		Metric:    run.state.LastMetric,
		History:   append([]float64(nil), run.state.History...),
		Volume:    vol,
		Guidance:  run.guidance,
	}, nil
}

// prepare checks the sample and expands it to one guidance channel per label
func (e *Engine) prepare(sample *Sample) (*models.Volume, error) {
	if sample == nil || sample.Volume == nil || sample.Label == nil {
		return nil, fmt.Errorf("sample needs a volume and a label")
	}
	if err := sample.Volume.Validate(); err != nil {
		return nil, fmt.Errorf("sample %s: %w", sample.ID, err)
	}
	if !sample.Volume.Shape().Equal(sample.Label.Shape) {
		return nil, fmt.Errorf("sample %s volume %v, label %v: %w",
			sample.ID, sample.Volume.Shape(), sample.Label.Shape, models.ErrShapeMismatch)
	}

	intensity := max(e.cfg.Signal.NumberIntensityChannels, 1)
	switch sample.Volume.NumChannels() {
	case intensity:
		return signal.AddEmptySignalChannels(sample.Volume, intensity, len(e.labels))
	case intensity + len(e.labels):
		return sample.Volume, nil
	default:
		return nil, fmt.Errorf("sample %s has %d channels, want %d or %d: %w",
			sample.ID, sample.Volume.NumChannels(), intensity, intensity+len(e.labels), models.ErrShapeMismatch)
	}
}

func (e *Engine) loop(ctx context.Context, run *episodeRun, sample *Sample, vol *models.Volume) error {
	log := run.logger
	if err := signal.CheckEmpty(vol, e.cfg.Signal.NumberIntensityChannels); err != nil {
		return fmt.Errorf("sample %s: %w", sample.ID, err)
	}
	e.warnMissingLabels(log, sample.Label)

	for {
		decision, err := e.stopping.Check(run.state)
		if err != nil {
			return err
		}
		if decision.Stopped() {
			run.reason = decision.Reason
			log.Info("interaction stopped", "iteration", run.state.Iteration, "reason", string(decision.Reason))
			if decision.FlushesHistory() && !e.cfg.Sampler.Replay {
				if err := e.flush(run); err != nil {
					return err
				}
			}
			e.emit(&Event{Type: EventEpisodeStopped, EpisodeID: run.id, SampleID: run.sampleID,
				Iteration: run.state.Iteration, Reason: string(decision.Reason)})
			return nil
		}

		if err := e.round(ctx, run, sample, vol); err != nil {
			return fmt.Errorf("round %d of %s: %w", run.state.Iteration, sample.ID, err)
		}
		run.state.Iteration++
	}
}

// round runs one forward pass and adds one click per label with errors
func (e *Engine) round(ctx context.Context, run *episodeRun, sample *Sample, vol *models.Volume) error {
	iteration := run.state.Iteration
	e.emit(&Event{Type: EventRoundStarted, EpisodeID: run.id, SampleID: run.sampleID, Iteration: iteration})
	run.logger.Debug("round started", "iteration", iteration)

	pred, err := e.inferer.Infer(ctx, vol)
	if err != nil {
		return err
	}
	if !pred.Shape().Equal(sample.Label.Shape) || len(pred.Channels) != len(e.labels) {
		return fmt.Errorf("prediction has %d channels of %v, want %d of %v: %w",
			len(pred.Channels), pred.Shape(), len(e.labels), sample.Label.Shape, models.ErrShapeMismatch)
	}

	loss := metrics.DiceLoss(pred, sample.Label)
	metric := metrics.DiceMetric(pred.Argmax(), sample.Label, e.labels)
	run.state.Record(loss, metric)
	now := time.Now()
	metrics.RecordRound(e.collector, sample.ID, loss, metric, now)
	run.logger.Info("interaction round", "iteration", iteration, "dice_loss", loss, "dice_metric", metric)

	if e.cfg.Interaction.Debug && e.debug != nil {
		if err := e.debug.Export(sample.ID, iteration, vol, sample.Label, pred); err != nil {
			run.logger.Warn("debug export failed", "iteration", iteration, "error", err)
		}
	}

	disc, err := discrepancy.Find(sample.Label, pred, e.labels)
	if err != nil {
		return err
	}
	if _, err := e.sampler.Sample(&guidance.Request{
		SampleID:    sample.ID,
		Image:       vol.Channels[0],
		Label:       sample.Label,
		Prediction:  pred,
		Discrepancy: disc,
		Guidance:    run.guidance,
	}); err != nil {
		return err
	}
	if err := e.builder.Apply(vol, run.guidance); err != nil {
		return err
	}

	clicks := make(map[string]int, len(e.labels))
	for _, name := range run.guidance.Labels() {
		clicks[name] = run.guidance.Len(name)
		metrics.RecordClicks(e.collector, sample.ID, name, clicks[name], now)
	}
	e.emit(&Event{Type: EventRoundCompleted, EpisodeID: run.id, SampleID: run.sampleID,
		Iteration: iteration, Loss: loss, Metric: metric, Clicks: clicks})
	return nil
}

// flush writes the metric history and the click record of every label
func (e *Engine) flush(run *episodeRun) error {
	if e.store == nil {
		run.logger.Debug("no store configured, episode output dropped")
		return nil
	}
	if err := e.store.SaveHistory(run.sampleID, run.state.History); err != nil {
		return fmt.Errorf("failed to save metric history: %w", err)
	}
	if err := e.store.SaveClicks(run.sampleID, store.ClickRecord(run.guidance.Record())); err != nil {
		return fmt.Errorf("failed to save clicks: %w", err)
	}
	run.logger.Debug("episode output written", "rounds", len(run.state.History))
	return nil
}

func (e *Engine) warnMissingLabels(log *slog.Logger, label *models.LabelMap) {
	present := make(map[int32]bool)
	for _, v := range label.Data {
		present[v] = true
	}
	for _, l := range e.labels {
		if !l.IsBackground() && !present[l.ID] {
			log.Warn("label missing from sample", "label", l.Name, "id", l.ID)
		}
	}
}

func (e *Engine) emit(event *Event) {
	counter := atomic.AddInt64(&e.eventCounter, 1)
	event.ID = fmt.Sprintf("evt-%d", counter)
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	for _, o := range e.observers {
		o.Observe(event)
	}
}
