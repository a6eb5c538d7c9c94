// Package signal renders accumulated clicks into guidance channels
package signal

import (
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/clicksim/internal/geometry"
	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

const (
	// epsilon keeps normalization finite for flat signals
	epsilon = 1e-8
	// diskThreshold cuts a normalized Gaussian of sigma 1 at radius ~3
	diskThreshold = 0.1
)

// Builder renders guidance signals
type Builder struct {
	cfg    config.Signal
	logger *slog.Logger
}

// NewBuilder creates a Builder
func NewBuilder(cfg config.Signal) *Builder {
	return &Builder{cfg: cfg, logger: logger.Default}
}

// SetLogger sets the logger
func (b *Builder) SetLogger(l *slog.Logger) {
	b.logger = l
}

// Render turns the clicks of one label into a signal channel of the image's
// shape. Without clicks the channel is all zero.
func (b *Builder) Render(points []models.Point, image *models.Grid) (*models.Grid, error) {
	shape := image.Shape
	sig := models.NewGrid(shape)
	for _, p := range points {
		if err := p.ValidFor(shape.Dims()); err != nil {
			return nil, err
		}
		spatial := p.Spatial()
		skip := false
		for _, c := range spatial {
			if c < 0 {
				skip = true
			}
		}
		if skip {
			continue
		}
		sig.Set(1, shape.Clamp(spatial)...)
	}

	if _, hi := sig.MinMax(); hi <= 0 {
		return sig, nil
	}

	if b.cfg.Sigma != 0 {
		sig = geometry.GaussianFilter(sig, b.cfg.Sigma)
	}
	normalize(sig)
	if b.cfg.Disks {
		threshold(sig)
	}

	if b.cfg.Geodesic {
		seeds := sig.Clone()
		threshold(seeds)
		geo, err := geometry.GeodesicDistance(image, seeds, b.cfg.Spacing, b.cfg.Lambda, b.cfg.Iterations)
		if err != nil {
			return nil, fmt.Errorf("geodesic signal: %w", err)
		}
		return geo, nil
	}

	if lo, hi := sig.MinMax(); lo < 0 || hi > 1 {
		return nil, fmt.Errorf("signal range [%f, %f]: %w", lo, hi, models.ErrBadSignal)
	}
	return sig, nil
}

// Apply rewrites the guidance channels of vol from gs. Channels follow the
// intensity channels in label dictionary order.
func (b *Builder) Apply(vol *models.Volume, gs *models.GuidanceSet) error {
	n := b.intensityChannels()
	labels := gs.Labels()
	if vol.NumChannels() != n+len(labels) {
		return fmt.Errorf("volume has %d channels, want %d: %w", vol.NumChannels(), n+len(labels), models.ErrShapeMismatch)
	}
	image := vol.Channels[0]
	for i, name := range labels {
		pts := gs.Points(name)
		b.logger.Debug("rendering guidance signal", "label", name, "clicks", len(pts))
		sig, err := b.Render(pts, image)
		if err != nil {
			return fmt.Errorf("label %s: %w", name, err)
		}
		vol.Channels[n+i] = sig
	}
	return nil
}

func (b *Builder) intensityChannels() int {
	return max(b.cfg.NumberIntensityChannels, 1)
}

// AddEmptySignalChannels keeps the first intensity channels of vol and
// appends one zero channel per label
func AddEmptySignalChannels(vol *models.Volume, intensity, labels int) (*models.Volume, error) {
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	intensity = max(intensity, 1)
	if vol.NumChannels() < intensity {
		return nil, fmt.Errorf("volume has %d channels, want at least %d: %w", vol.NumChannels(), intensity, models.ErrShapeMismatch)
	}
	out := &models.Volume{Channels: make([]*models.Grid, 0, intensity+labels)}
	for i := 0; i < intensity; i++ {
		out.Channels = append(out.Channels, vol.Channels[i].Clone())
	}
	for i := 0; i < labels; i++ {
		out.Channels = append(out.Channels, models.NewGrid(vol.Shape()))
	}
	return out, nil
}

// CheckEmpty reports ErrSignalNotEmpty when any guidance channel after the
// intensity channels holds a non-zero value
func CheckEmpty(vol *models.Volume, intensity int) error {
	for i := max(intensity, 1); i < vol.NumChannels(); i++ {
		if s := vol.Channels[i].Sum(); s != 0 {
			return fmt.Errorf("channel %d sums to %f: %w", i, s, models.ErrSignalNotEmpty)
		}
	}
	return nil
}

func normalize(g *models.Grid) {
	lo, hi := g.MinMax()
	scale := float64(hi-lo) + epsilon
	for i, v := range g.Data {
		g.Data[i] = float32(float64(v-lo) / scale)
	}
}

func threshold(g *models.Grid) {
	for i, v := range g.Data {
		if v > diskThreshold {
			g.Data[i] = 1
		} else {
			g.Data[i] = 0
		}
	}
}
