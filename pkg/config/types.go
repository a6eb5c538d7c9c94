package config

import (
	"time"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// Config represents the click simulation configuration
type Config struct {
	LogLevel    string           `yaml:"log_level"`
	Seed        int64            `yaml:"seed"`
	Labels      []models.Label   `yaml:"labels"`
	Interaction Interaction      `yaml:"interaction"`
	Sampler     Sampler          `yaml:"sampler"`
	Signal      Signal           `yaml:"signal"`
	Storage     Storage          `yaml:"storage"`
	Inference   *InferenceClient `yaml:"inference,omitempty"`
}

// Interaction configures the per-step interaction loop and its stopping policy
type Interaction struct {
	Train                 bool    `yaml:"train"`
	MaxInteractions       int     `yaml:"max_interactions"`
	StoppingCriterion     string  `yaml:"stopping_criterion"` // max_iter, max_iter_and_probability, ...
	IterationProbability  float64 `yaml:"iteration_probability"`
	LossStoppingThreshold float64 `yaml:"loss_stopping_threshold"`
	DeepgrowProbability   float64 `yaml:"deepgrow_probability"`
	NonInteractive        bool    `yaml:"non_interactive"`
	Debug                 bool    `yaml:"debug"`
}

// Sampler configures click generation
type Sampler struct {
	Strategy        string          `yaml:"click_generation_strategy"`
	PatchSize       []int           `yaml:"patch_size"`
	CenterClick     bool            `yaml:"center_click"`
	Replay          bool            `yaml:"replay"`
	Noise           Noise           `yaml:"noise"`
	SystematicError SystematicError `yaml:"systematic_error"`
}

// Noise configures random click displacement
type Noise struct {
	Enabled     bool    `yaml:"enabled"`
	Level       int     `yaml:"level"`
	Probability float64 `yaml:"probability"`
}

// SystematicError configures biased click placement
type SystematicError struct {
	Enabled              bool    `yaml:"enabled"`
	Probability          float64 `yaml:"probability"`
	UncertaintyBased     bool    `yaml:"uncertainty_based"`
	IntensityBased       bool    `yaml:"intensity_based"`
	UncertaintyThreshold float64 `yaml:"uncertainty_threshold"`
	LowerBand            int     `yaml:"lower_band"` // slices excluded at the start of the depth axis
	UpperBand            int     `yaml:"upper_band"` // slices excluded at the end of the depth axis
}

// Signal configures guidance signal rendering
type Signal struct {
	Sigma                   float64   `yaml:"sigma"`
	Disks                   bool      `yaml:"disks"`
	Geodesic                bool      `yaml:"geodesic"`
	Spacing                 []float64 `yaml:"spacing"`
	Lambda                  float64   `yaml:"lambda"`
	Iterations              int       `yaml:"iterations"`
	NumberIntensityChannels int       `yaml:"number_intensity_channels"`
}

// Storage configures where episode outputs are written and replayed from
type Storage struct {
	OutputDir string `yaml:"output_dir"`
	ReplayDir string `yaml:"replay_dir"`
}

// InferenceClient configures the remote inference engine
type InferenceClient struct {
	Addr       string `yaml:"addr"`
	Timeout    string `yaml:"timeout"` // e.g., "30s"
	MaxRetries int    `yaml:"max_retries"`
}

// GetTimeout parses the timeout string to time.Duration
func (c *InferenceClient) GetTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Timeout)
}

// LabelSet returns the configured label dictionary
func (c *Config) LabelSet() models.LabelSet {
	return models.LabelSet(c.Labels)
}

// Default returns the configuration used when a field is left out
func Default() Config {
	return Config{
		LogLevel: "info",
		Labels: []models.Label{
			{Name: "tumor", ID: 1},
			{Name: models.BackgroundLabel, ID: 0},
		},
		Interaction: Interaction{
			Train:                 true,
			MaxInteractions:       1,
			StoppingCriterion:     "max_iter",
			IterationProbability:  0.5,
			LossStoppingThreshold: 0.1,
			DeepgrowProbability:   1.0,
		},
		Sampler: Sampler{
			Strategy:  "global_corrective",
			PatchSize: []int{128, 128, 128},
			Noise: Noise{
				Level:       1,
				Probability: 0.25,
			},
			SystematicError: SystematicError{
				Probability:          0.25,
				UncertaintyThreshold: 0.01,
				LowerBand:            80,
				UpperBand:            40,
			},
		},
		Signal: Signal{
			Sigma:                   1,
			Spacing:                 []float64{1, 1, 1},
			Lambda:                  1.0,
			Iterations:              2,
			NumberIntensityChannels: 1,
		},
	}
}
