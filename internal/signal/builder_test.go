package signal

import (
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

var labels = models.LabelSet{{Name: "background", ID: 0}, {Name: "tumor", ID: 1}}

func signalConfig() config.Signal {
	return config.Default().Signal
}

func TestRenderGaussianRange(t *testing.T) {
	image := models.NewGrid(models.Shape{12, 12, 12})
	b := NewBuilder(signalConfig())
	sig, err := b.Render([]models.Point{{0, 3, 3, 3}, {0, 8, 8, 8}}, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lo, hi := sig.MinMax()
	if lo < 0 || hi > 1 {
		t.Fatalf("expected values in [0,1], got [%f, %f]", lo, hi)
	}
	if hi < 0.99 {
		t.Fatalf("expected peak near 1, got %f", hi)
	}
	if hi-sig.At(3, 3, 3) > 1e-6 {
		t.Fatalf("expected peak at the click")
	}
}

func TestRenderDisksBinary(t *testing.T) {
	image := models.NewGrid(models.Shape{12, 12, 12})
	cfg := signalConfig()
	cfg.Disks = true
	sig, err := NewBuilder(cfg).Render([]models.Point{{0, 6, 6, 6}}, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ones := 0
	for _, v := range sig.Data {
		switch v {
		case 0:
		case 1:
			ones++
		default:
			t.Fatalf("expected only 0 or 1, got %f", v)
		}
	}
	if ones < 2 || sig.At(6, 6, 6) != 1 {
		t.Fatalf("expected a blob around the click, got %d voxels", ones)
	}
	if sig.At(0, 0, 0) != 0 {
		t.Fatalf("expected far voxels to stay zero")
	}
}

func TestRenderClampsAndSkipsNegative(t *testing.T) {
	image := models.NewGrid(models.Shape{4, 4, 4})
	cfg := signalConfig()
	cfg.Sigma = 0
	sig, err := NewBuilder(cfg).Render([]models.Point{{0, 9, 9, 9}, {0, -1, 0, 0}}, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.At(3, 3, 3) != 1 {
		t.Fatalf("expected out-of-range click clamped to the corner")
	}
	if sig.Sum() != 1 {
		t.Fatalf("expected one seed voxel, got %f", sig.Sum())
	}
}

func TestRenderNoClicks(t *testing.T) {
	image := models.NewGrid(models.Shape{4, 4, 4})
	sig, err := NewBuilder(signalConfig()).Render(nil, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Sum() != 0 {
		t.Fatalf("expected empty signal")
	}
}

func TestRenderBadLength(t *testing.T) {
	image := models.NewGrid(models.Shape{4, 4, 4})
	_, err := NewBuilder(signalConfig()).Render([]models.Point{{0, 1, 1}}, image)
	if !errors.Is(err, models.ErrBadGuidanceLength) {
		t.Fatalf("expected ErrBadGuidanceLength, got %v", err)
	}
}

func TestRenderGeodesic(t *testing.T) {
	image := models.NewGrid(models.Shape{1, 1, 6})
	copy(image.Data, []float32{0, 0, 1, 1, 3, 3})
	cfg := signalConfig()
	cfg.Geodesic = true
	cfg.Sigma = 0
	sig, err := NewBuilder(cfg).Render([]models.Point{{0, 0, 0, 0}}, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{0, 0, 1, 1, 3, 3}
	for i := range want {
		if sig.Data[i] != want[i] {
			t.Fatalf("index %d: expected %f, got %f", i, want[i], sig.Data[i])
		}
	}
}

func TestApplyWritesChannelsInLabelOrder(t *testing.T) {
	shape := models.Shape{8, 8, 8}
	vol := models.NewVolume(shape, 1)
	vol, err := AddEmptySignalChannels(vol, 1, len(labels))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vol.NumChannels() != 3 {
		t.Fatalf("expected 3 channels, got %d", vol.NumChannels())
	}
	if err := CheckEmpty(vol, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gs := models.NewGuidanceSet(labels)
	gs.Append("tumor", models.Point{0, 2, 2, 2})
	if err := NewBuilder(signalConfig()).Apply(vol, gs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vol.Channels[1].Sum() != 0 {
		t.Fatalf("expected empty background channel")
	}
	if vol.Channels[2].At(2, 2, 2) == 0 {
		t.Fatalf("expected tumor signal in channel 2")
	}
	if !errors.Is(CheckEmpty(vol, 1), models.ErrSignalNotEmpty) {
		t.Fatalf("expected ErrSignalNotEmpty after rendering")
	}
}

func TestApplyChannelMismatch(t *testing.T) {
	vol := models.NewVolume(models.Shape{4, 4, 4}, 2)
	err := NewBuilder(signalConfig()).Apply(vol, models.NewGuidanceSet(labels))
	if !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}
