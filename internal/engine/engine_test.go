package engine

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/GoSim-25-26J-441/clicksim/internal/metrics"
	"github.com/GoSim-25-26J-441/clicksim/internal/policy"
	"github.com/GoSim-25-26J-441/clicksim/internal/store"
	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

const testSample = "case_001"

// guidedModel predicts tumor wherever the tumor guidance channel is hot
type guidedModel struct {
	calls    int
	channels int
}

func (m *guidedModel) Infer(_ context.Context, vol *models.Volume) (*models.PredictionMap, error) {
	m.calls++
	shape := vol.Shape()
	n := m.channels
	if n == 0 {
		n = 2
	}
	pred := &models.PredictionMap{Channels: make([]*models.Grid, n)}
	for c := range pred.Channels {
		pred.Channels[c] = models.NewGrid(shape)
	}
	tumorSignal := vol.Channels[vol.NumChannels()-1]
	for i, v := range tumorSignal.Data {
		if v > 0.5 {
			pred.Channels[1].Data[i] = 1
		} else {
			pred.Channels[0].Data[i] = 1
		}
	}
	return pred, nil
}

// forwardTrainer runs one more forward pass, as a training step does
type forwardTrainer struct {
	model    *guidedModel
	calls    int
	channels int
}

func (t *forwardTrainer) Step(ctx context.Context, vol *models.Volume, _ *models.LabelMap, _ bool) error {
	t.calls++
	t.channels = vol.NumChannels()
	_, err := t.model.Infer(ctx, vol)
	return err
}

type countingExporter struct {
	rounds []int
}

func (d *countingExporter) Export(_ string, iteration int, _ *models.Volume, _ *models.LabelMap, _ *models.PredictionMap) error {
	d.rounds = append(d.rounds, iteration)
	return nil
}

func testConfig(maxInteractions int) *config.Config {
	cfg := config.Default()
	cfg.Labels = []models.Label{
		{Name: models.BackgroundLabel, ID: 0},
		{Name: "tumor", ID: 1},
	}
	cfg.Interaction.MaxInteractions = maxInteractions
	cfg.Interaction.StoppingCriterion = string(policy.MaxIter)
	cfg.Sampler.Strategy = "global_corrective"
	return &cfg
}

func testSampleVolume(size int) *Sample {
	shape := models.Shape{size, size, size}
	vol := models.NewVolume(shape, 1)
	label := models.NewLabelMap(shape)
	lo, hi := size/4, 3*size/4
	for x := lo; x < hi; x++ {
		for y := lo; y < hi; y++ {
			for z := lo; z < hi; z++ {
				label.Set(1, x, y, z)
				vol.Channels[0].Set(1, x, y, z)
			}
		}
	}
	return &Sample{ID: testSample, Volume: vol, Label: label}
}

func quiet() Option {
	return WithLogger(logger.NewText("error", io.Discard))
}

func newTestEngine(t *testing.T, cfg *config.Config, model *guidedModel, trainer *forwardTrainer, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{quiet(), WithRand(utils.NewRandSource(7))}, opts...)
	e, err := NewEngine(cfg, model, trainer, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEndToEndEpisode(t *testing.T) {
	cfg := testConfig(2)
	cfg.Interaction.StoppingCriterion = string(policy.DeepgrowProbability)
	cfg.Interaction.DeepgrowProbability = 1.0

	model := &guidedModel{}
	trainer := &forwardTrainer{model: model}
	out := store.NewMemoryStore()
	events := NewEventLog()
	e := newTestEngine(t, cfg, model, trainer,
		WithStore(out), WithEpisodes(out), WithObserver(events))

	res, err := e.Run(context.Background(), testSampleVolume(32))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if model.calls != 3 {
		t.Fatalf("expected 3 forward passes, got %d", model.calls)
	}
	if trainer.calls != 1 {
		t.Fatalf("expected one training step, got %d", trainer.calls)
	}
	if trainer.channels != 3 || res.Volume.NumChannels() != 3 {
		t.Fatalf("expected 3 channels, got %d (final volume %d)", trainer.channels, res.Volume.NumChannels())
	}
	if n := res.Guidance.Len("tumor"); n == 0 || n > 3 {
		t.Fatalf("expected 1..3 tumor clicks, got %d", n)
	}
	if res.Rounds != 2 || res.Reason != policy.ReasonMaxIterations {
		t.Fatalf("expected 2 rounds ending on max_iter, got %d %q", res.Rounds, res.Reason)
	}

	history, err := out.LoadHistory(testSample)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	clicks, err := out.LoadClicks(testSample)
	if err != nil {
		t.Fatalf("LoadClicks: %v", err)
	}
	if _, ok := clicks[models.BackgroundLabel]; !ok {
		t.Fatalf("click record misses background: %v", clicks)
	}
	if len(clicks["tumor"]) != res.Guidance.Len("tumor") {
		t.Fatalf("click record has %d tumor clicks, guidance %d", len(clicks["tumor"]), res.Guidance.Len("tumor"))
	}

	eps := out.ListEpisodes(0)
	if len(eps) != 1 || eps[0].Status != store.EpisodeCompleted || eps[0].Rounds != 2 || eps[0].Reason != "max_iter" {
		t.Fatalf("unexpected episode record: %+v", eps)
	}
	if eps[0].ID != res.EpisodeID {
		t.Fatalf("expected episode %s, got %s", res.EpisodeID, eps[0].ID)
	}

	if got := len(events.OfType(EventRoundStarted)); got != 2 {
		t.Fatalf("expected 2 round_started events, got %d", got)
	}
	completed := events.OfType(EventRoundCompleted)
	if len(completed) != 2 || completed[0].Iteration != 0 || completed[1].Iteration != 1 {
		t.Fatalf("unexpected round_completed events: %+v", completed)
	}
	if stopped := events.OfType(EventEpisodeStopped); len(stopped) != 1 || stopped[0].Reason != "max_iter" {
		t.Fatalf("unexpected episode_stopped events: %+v", stopped)
	}

	losses := e.Collector().Values(metrics.MetricDiceLoss, metrics.SampleLabels(testSample))
	if len(losses) != 2 {
		t.Fatalf("expected 2 recorded losses, got %d", len(losses))
	}
}

func TestMaxIterationRounds(t *testing.T) {
	for _, m := range []int{0, 1, 3} {
		model := &guidedModel{}
		trainer := &forwardTrainer{model: model}
		out := store.NewMemoryStore()
		e := newTestEngine(t, testConfig(m), model, trainer, WithStore(out))

		res, err := e.Run(context.Background(), testSampleVolume(16))
		if err != nil {
			t.Fatalf("M=%d: Run: %v", m, err)
		}
		if model.calls != m+1 {
			t.Fatalf("M=%d: expected %d forward passes, got %d", m, m+1, model.calls)
		}
		if res.Rounds != m || len(res.History) != m {
			t.Fatalf("M=%d: expected %d rounds, got %d (history %d)", m, m, res.Rounds, len(res.History))
		}
		history, err := out.LoadHistory(testSample)
		if err != nil || len(history) != m {
			t.Fatalf("M=%d: expected flushed history of %d, got %v (%v)", m, m, history, err)
		}
	}
}

func TestNonInteractive(t *testing.T) {
	cfg := testConfig(5)
	cfg.Interaction.NonInteractive = true
	model := &guidedModel{}
	trainer := &forwardTrainer{model: model}
	out := store.NewMemoryStore()
	e := newTestEngine(t, cfg, model, trainer, WithStore(out), WithEpisodes(out))

	res, err := e.Run(context.Background(), testSampleVolume(8))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if model.calls != 1 || trainer.calls != 1 {
		t.Fatalf("expected only the training pass, got %d model calls and %d steps", model.calls, trainer.calls)
	}
	if res.Volume.NumChannels() != 3 || res.Rounds != 0 {
		t.Fatalf("unexpected result: %d channels, %d rounds", res.Volume.NumChannels(), res.Rounds)
	}
	if len(out.ListEpisodes(0)) != 0 {
		t.Fatal("non-interactive steps must not register episodes")
	}
}

func TestProbabilityStopsBeforeFirstRound(t *testing.T) {
	cfg := testConfig(5)
	cfg.Interaction.StoppingCriterion = string(policy.MaxIterAndProbability)
	cfg.Interaction.IterationProbability = 0
	model := &guidedModel{}
	trainer := &forwardTrainer{model: model}
	out := store.NewMemoryStore()
	e := newTestEngine(t, cfg, model, trainer, WithStore(out))

	res, err := e.Run(context.Background(), testSampleVolume(8))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != policy.ReasonProbability || res.Rounds != 0 {
		t.Fatalf("expected probability stop at round 0, got %q after %d", res.Reason, res.Rounds)
	}
	if model.calls != 1 {
		t.Fatalf("expected only the training pass, got %d", model.calls)
	}
	if _, err := out.LoadHistory(testSample); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no history flush, got %v", err)
	}
}

func TestReplayEpisode(t *testing.T) {
	cfg := testConfig(2)
	cfg.Sampler.Replay = true
	records := store.NewMemoryStore()
	stored := store.ClickRecord{
		"tumor":                {{5, 5, 5}, {6, 6, 6}, {7, 7, 7}},
		models.BackgroundLabel: {{0, 0, 0}},
	}
	if err := records.SaveClicks(testSample, stored); err != nil {
		t.Fatalf("SaveClicks: %v", err)
	}
	out := store.NewMemoryStore()
	model := &guidedModel{}
	e := newTestEngine(t, cfg, model, &forwardTrainer{model: model},
		WithReplaySource(records), WithStore(out))

	res, err := e.Run(context.Background(), testSampleVolume(16))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := res.Guidance.Record()
	if len(got["tumor"]) != 2 || got["tumor"][1][0] != 6 {
		t.Fatalf("expected the first 2 stored tumor clicks, got %v", got["tumor"])
	}
	if len(got[models.BackgroundLabel]) != 1 {
		t.Fatalf("expected 1 background click, got %v", got[models.BackgroundLabel])
	}
	if ids, _ := out.ListHistory(); len(ids) != 0 {
		t.Fatalf("replay must not write history, got %v", ids)
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("signal not empty", func(t *testing.T) {
		sample := testSampleVolume(8)
		vol := models.NewVolume(sample.Volume.Shape(), 3)
		vol.Channels[0] = sample.Volume.Channels[0]
		vol.Channels[2].Data[0] = 1
		sample.Volume = vol

		out := store.NewMemoryStore()
		model := &guidedModel{}
		e := newTestEngine(t, testConfig(1), model, &forwardTrainer{model: model}, WithEpisodes(out))
		if _, err := e.Run(context.Background(), sample); !errors.Is(err, models.ErrSignalNotEmpty) {
			t.Fatalf("expected ErrSignalNotEmpty, got %v", err)
		}
		if eps := out.ListEpisodes(0); len(eps) != 1 || eps[0].Status != store.EpisodeFailed {
			t.Fatalf("expected a failed episode, got %+v", eps)
		}
	})

	t.Run("prediction channels", func(t *testing.T) {
		model := &guidedModel{channels: 3}
		e := newTestEngine(t, testConfig(1), model, &forwardTrainer{model: model})
		if _, err := e.Run(context.Background(), testSampleVolume(8)); !errors.Is(err, models.ErrShapeMismatch) {
			t.Fatalf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("label shape", func(t *testing.T) {
		sample := testSampleVolume(8)
		sample.Label = models.NewLabelMap(models.Shape{8, 8, 4})
		model := &guidedModel{}
		e := newTestEngine(t, testConfig(1), model, &forwardTrainer{model: model})
		if _, err := e.Run(context.Background(), sample); !errors.Is(err, models.ErrShapeMismatch) {
			t.Fatalf("expected ErrShapeMismatch, got %v", err)
		}
	})
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	model := &guidedModel{}
	trainer := &forwardTrainer{model: model}

	cfg := testConfig(1)
	cfg.Interaction.StoppingCriterion = "forever"
	if _, err := NewEngine(cfg, model, trainer, quiet()); !errors.Is(err, models.ErrUnknownCriterion) {
		t.Fatalf("expected ErrUnknownCriterion, got %v", err)
	}

	cfg = testConfig(1)
	cfg.Sampler.Strategy = "random_walk"
	if _, err := NewEngine(cfg, model, trainer, quiet()); !errors.Is(err, models.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}

	cfg = testConfig(1)
	cfg.Labels[1].ID = 2
	if _, err := NewEngine(cfg, model, trainer, quiet()); !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for sparse label ids, got %v", err)
	}
	_, cfg.Labels = models.NormalizeLabels(models.NewLabelMap(models.Shape{2, 2, 2}), cfg.LabelSet())
	if _, err := NewEngine(cfg, model, trainer, quiet()); err != nil {
		t.Fatalf("normalized labels rejected: %v", err)
	}

	if _, err := NewEngine(testConfig(1), nil, trainer, quiet()); err == nil {
		t.Fatal("expected error without an inferer")
	}
}

func TestDebugExportEachRound(t *testing.T) {
	cfg := testConfig(3)
	cfg.Interaction.Debug = true
	exporter := &countingExporter{}
	model := &guidedModel{}
	e := newTestEngine(t, cfg, model, &forwardTrainer{model: model}, WithDebugExporter(exporter))

	if _, err := e.Run(context.Background(), testSampleVolume(8)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(exporter.rounds) != 3 || exporter.rounds[2] != 2 {
		t.Fatalf("expected exports for rounds 0..2, got %v", exporter.rounds)
	}
}
