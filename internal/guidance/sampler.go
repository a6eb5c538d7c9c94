// Package guidance simulates annotator clicks. A Sampler picks at most one new
// click per label and round from the discrepancy between label and
// prediction, following the configured click generation strategy.
package guidance

import (
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

// Strategy names a click generation strategy
type Strategy string

const (
	GlobalNonCorrective      Strategy = "global_non_corrective"
	GlobalCorrective         Strategy = "global_corrective"
	DeepgrowGlobalCorrective Strategy = "deepgrow_global_corrective"
	PatchBasedCorrective     Strategy = "patch_based_corrective"
)

// ClickSource provides stored click records for replay, keyed by sample id
type ClickSource interface {
	LoadClicks(sampleID string) (map[string][][]int, error)
}

// UncertaintySource provides a per-sample uncertainty map for the
// uncertainty-based systematic error
type UncertaintySource interface {
	Uncertainty(sampleID string) (*models.Grid, error)
}

// Request carries the inputs of one sampling round
type Request struct {
	SampleID    string
	Image       *models.Grid // raw intensity
	Label       *models.LabelMap
	Prediction  *models.PredictionMap
	Discrepancy models.DiscrepancyMap
	Guidance    *models.GuidanceSet
}

// Result lists the clicks added in one round; labels without a new click are
// absent.
type Result map[string]models.Point

type strategyFunc func(req *Request, res Result) error

// Sampler adds simulated clicks to a GuidanceSet
type Sampler struct {
	cfg              config.Sampler
	labels           models.LabelSet
	clickProbability float64
	rng              *utils.RandSource
	clicks           ClickSource
	uncertainty      UncertaintySource
	logger           *slog.Logger
	strategies       map[Strategy]strategyFunc
}

// Option configures optional Sampler collaborators
type Option func(*Sampler)

// WithClickSource sets the store replayed clicks are read from
func WithClickSource(src ClickSource) Option {
	return func(s *Sampler) { s.clicks = src }
}

// WithUncertainty sets the uncertainty map provider
func WithUncertainty(src UncertaintySource) Option {
	return func(s *Sampler) { s.uncertainty = src }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithClickProbability sets the per-round click probability of the deepgrow
// strategy
func WithClickProbability(p float64) Option {
	return func(s *Sampler) { s.clickProbability = p }
}

// NewSampler creates a Sampler. The strategy is resolved here so that an
// unknown name fails before any episode starts.
func NewSampler(cfg config.Sampler, labels models.LabelSet, rng *utils.RandSource, opts ...Option) (*Sampler, error) {
	s := &Sampler{
		cfg:              cfg,
		labels:           labels,
		clickProbability: 1,
		rng:              rng,
		logger:           logger.Default,
	}
	s.strategies = map[Strategy]strategyFunc{
		GlobalNonCorrective:      s.sampleOnLabel,
		GlobalCorrective:         s.sampleCorrective,
		DeepgrowGlobalCorrective: s.sampleDeepgrow,
		PatchBasedCorrective:     s.samplePatches,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, ok := s.strategies[Strategy(cfg.Strategy)]; !ok && !cfg.Replay {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStrategy, cfg.Strategy)
	}
	if cfg.Replay && s.clicks == nil {
		return nil, fmt.Errorf("replay needs a click source: %w", models.ErrMalformedRecord)
	}
	if cfg.SystematicError.Enabled && cfg.SystematicError.UncertaintyBased && s.uncertainty == nil {
		return nil, fmt.Errorf("uncertainty-based systematic error needs an uncertainty source")
	}
	return s, nil
}

// Sample runs one round of click simulation and appends the new clicks to
// req.Guidance. Labels with nothing to correct are logged and skipped.
func (s *Sampler) Sample(req *Request) (Result, error) {
	res := make(Result)
	if s.cfg.Replay {
		return res, s.replay(req, res)
	}
	run, ok := s.strategies[Strategy(s.cfg.Strategy)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStrategy, s.cfg.Strategy)
	}
	if err := run(req, res); err != nil {
		return nil, err
	}
	for _, name := range s.labels.Names() {
		if p, ok := res[name]; ok {
			req.Guidance.Append(name, p)
		}
	}
	return res, nil
}

// sampleOnLabel draws a uniform click on every label's ground truth
func (s *Sampler) sampleOnLabel(req *Request, res Result) error {
	for _, l := range s.labels {
		mask := req.Label.Mask(l.ID)
		idx := s.rng.WeightedIndex(mask.Data)
		if idx < 0 {
			s.logger.Info("label absent, not adding any click", "label", l.Name)
			continue
		}
		p := models.NewPoint(mask.Shape.Coords(idx))
		if err := p.ValidFor(mask.Shape.Dims()); err != nil {
			return err
		}
		res[l.Name] = p
	}
	return nil
}

// sampleCorrective clicks into every label's false-negative region
func (s *Sampler) sampleCorrective(req *Request, res Result) error {
	for _, l := range s.labels {
		d, ok := req.Discrepancy[l.Name]
		if !ok {
			continue
		}
		if d.FalseNegative.Sum() == 0 {
			s.logger.Info("nothing to improve, not adding any click", "label", l.Name)
			continue
		}
		p, err := s.findGuidance(d.FalseNegative, req, l, nil)
		if err != nil {
			return err
		}
		if p != nil {
			res[l.Name] = p
		}
	}
	return nil
}

// sampleDeepgrow gates the corrective strategy behind one draw per round
func (s *Sampler) sampleDeepgrow(req *Request, res Result) error {
	if !s.rng.BernoulliBool(s.clickProbability) {
		s.logger.Debug("deepgrow gate closed, no clicks this round", "sample_id", req.SampleID)
		return nil
	}
	return s.sampleCorrective(req, res)
}
