package config

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

var (
	validStrategies = map[string]bool{
		"global_non_corrective":      true,
		"global_corrective":          true,
		"deepgrow_global_corrective": true,
		"patch_based_corrective":     true,
	}
	validCriteria = map[string]bool{
		"max_iter":                      true,
		"max_iter_and_probability":      true,
		"max_iter_and_dice":             true,
		"max_iter_probability_and_dice": true,
		"deepgrow_probability":          true,
	}
)

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if err := validateLabels(cfg.Labels); err != nil {
		return fmt.Errorf("labels validation failed: %w", err)
	}
	if err := validateInteraction(&cfg.Interaction); err != nil {
		return fmt.Errorf("interaction validation failed: %w", err)
	}
	if err := validateSampler(&cfg.Sampler, &cfg.Storage); err != nil {
		return fmt.Errorf("sampler validation failed: %w", err)
	}
	if err := validateSignal(&cfg.Signal); err != nil {
		return fmt.Errorf("signal validation failed: %w", err)
	}

	if cfg.Inference != nil {
		if cfg.Inference.Addr == "" {
			return fmt.Errorf("inference addr cannot be empty")
		}
		if _, err := cfg.Inference.GetTimeout(); err != nil {
			return fmt.Errorf("invalid inference timeout %s: %w", cfg.Inference.Timeout, err)
		}
		if cfg.Inference.MaxRetries < 0 {
			return fmt.Errorf("inference max_retries cannot be negative, got %d", cfg.Inference.MaxRetries)
		}
	}

	return nil
}

func validateLabels(labels []models.Label) error {
	if len(labels) == 0 {
		return fmt.Errorf("at least one label must be defined")
	}
	names := make(map[string]bool)
	ids := make(map[int32]bool)
	for _, l := range labels {
		if l.Name == "" {
			return fmt.Errorf("label name cannot be empty")
		}
		if names[l.Name] {
			return fmt.Errorf("duplicate label name: %s", l.Name)
		}
		if ids[l.ID] {
			return fmt.Errorf("duplicate label id: %d", l.ID)
		}
		if l.IsBackground() && l.ID != 0 {
			return fmt.Errorf("background label must have id 0, got %d", l.ID)
		}
		names[l.Name] = true
		ids[l.ID] = true
	}
	return nil
}

func validateProbability(name string, p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, p)
	}
	return nil
}

func validateInteraction(in *Interaction) error {
	if !validCriteria[in.StoppingCriterion] {
		return fmt.Errorf("%w: %s", models.ErrUnknownCriterion, in.StoppingCriterion)
	}
	if in.MaxInteractions < 0 {
		return fmt.Errorf("max_interactions cannot be negative, got %d", in.MaxInteractions)
	}
	if err := validateProbability("iteration_probability", in.IterationProbability); err != nil {
		return err
	}
	if err := validateProbability("deepgrow_probability", in.DeepgrowProbability); err != nil {
		return err
	}
	if in.LossStoppingThreshold < 0 {
		return fmt.Errorf("loss_stopping_threshold cannot be negative, got %f", in.LossStoppingThreshold)
	}
	return nil
}

func validateSampler(s *Sampler, st *Storage) error {
	if !validStrategies[s.Strategy] {
		return fmt.Errorf("%w: %s", models.ErrUnknownStrategy, s.Strategy)
	}
	if s.Strategy == "patch_based_corrective" {
		if len(s.PatchSize) == 0 {
			return fmt.Errorf("patch_size must be set for patch_based_corrective")
		}
		for _, p := range s.PatchSize {
			if p <= 0 {
				return fmt.Errorf("patch_size entries must be positive, got %v", s.PatchSize)
			}
		}
	}
	if s.Replay && st.ReplayDir == "" {
		return fmt.Errorf("replay requires storage.replay_dir")
	}
	if s.Noise.Enabled {
		if s.Noise.Level < 0 {
			return fmt.Errorf("noise level cannot be negative, got %d", s.Noise.Level)
		}
		if err := validateProbability("noise probability", s.Noise.Probability); err != nil {
			return err
		}
	}
	if se := s.SystematicError; se.Enabled {
		if !se.UncertaintyBased && !se.IntensityBased {
			return fmt.Errorf("systematic_error must be uncertainty_based or intensity_based")
		}
		if err := validateProbability("systematic_error probability", se.Probability); err != nil {
			return err
		}
		if se.LowerBand < 0 || se.UpperBand < 0 {
			return fmt.Errorf("systematic_error bands cannot be negative")
		}
	}
	return nil
}

func validateSignal(s *Signal) error {
	if s.Sigma < 0 {
		return fmt.Errorf("sigma cannot be negative, got %f", s.Sigma)
	}
	if s.NumberIntensityChannels < 1 {
		return fmt.Errorf("number_intensity_channels must be positive, got %d", s.NumberIntensityChannels)
	}
	if s.Geodesic {
		if len(s.Spacing) == 0 {
			return fmt.Errorf("geodesic mode requires spacing")
		}
		for _, sp := range s.Spacing {
			if sp <= 0 {
				return fmt.Errorf("spacing entries must be positive, got %v", s.Spacing)
			}
		}
		if err := validateProbability("lambda", s.Lambda); err != nil {
			return err
		}
		if s.Iterations < 1 {
			return fmt.Errorf("geodesic iterations must be positive, got %d", s.Iterations)
		}
	}
	return nil
}
