package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/clicksim/internal/engine"
	"github.com/GoSim-25-26J-441/clicksim/internal/inference"
	"github.com/GoSim-25-26J-441/clicksim/internal/metrics"
	"github.com/GoSim-25-26J-441/clicksim/internal/store"
	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
	"github.com/GoSim-25-26J-441/clicksim/pkg/utils"
)

type episodeFlags struct {
	volume      string
	label       string
	uncertainty string
	sampleID    string
}

func newEpisodeCmd(opts *options) *cobra.Command {
	f := &episodeFlags{}
	cmd := &cobra.Command{
		Use:   "episode",
		Short: "Run one interaction episode against a remote inference server",
		Long: `episode reads a volume and its label as encoded tensors, simulates clicks
against the model served at inference.addr and writes the click record and
dice history to storage.output_dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runEpisode(cmd, cfg, f)
		},
	}
	cmd.Flags().StringVar(&f.volume, "volume", "", "encoded intensity tensor")
	cmd.Flags().StringVar(&f.label, "label", "", "encoded label tensor")
	cmd.Flags().StringVar(&f.uncertainty, "uncertainty", "", "encoded uncertainty tensor")
	cmd.Flags().StringVar(&f.sampleID, "sample", "", "sample id (default: volume file stem)")
	_ = cmd.MarkFlagRequired("volume")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func runEpisode(cmd *cobra.Command, cfg *config.Config, f *episodeFlags) error {
	if cfg.Inference == nil || cfg.Inference.Addr == "" {
		return fmt.Errorf("inference.addr is required")
	}
	sampleID := f.sampleID
	if sampleID == "" {
		sampleID = utils.SampleIDFromPath(f.volume)
	}

	vol, err := readTensor(f.volume)
	if err != nil {
		return err
	}
	rawLabel, err := readTensor(f.label)
	if err != nil {
		return err
	}
	label, labels := models.NormalizeLabels(toLabelMap(rawLabel.Channels[0]), cfg.LabelSet())
	cfg.Labels = labels

	client, err := inference.NewClient(cfg.Inference)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eval := &evaluator{inferer: client, labels: labels}
	rounds := engine.NewEventLog()
	engineOpts := []engine.Option{
		engine.WithLogger(logger.Default),
		engine.WithObserver(rounds),
		engine.WithStore(store.NewFileStore(cfg.Storage.OutputDir)),
		engine.WithEpisodes(store.NewMemoryStore()),
	}
	if cfg.Sampler.Replay {
		engineOpts = append(engineOpts, engine.WithReplaySource(store.NewFileStore(cfg.Storage.ReplayDir)))
	}
	if f.uncertainty != "" {
		unc, err := readTensor(f.uncertainty)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, engine.WithUncertainty(fixedUncertainty{grid: unc.Channels[0]}))
	}

	eng, err := engine.NewEngine(cfg, client, eval, engineOpts...)
	if err != nil {
		return err
	}
	res, err := eng.Run(ctx, &engine.Sample{ID: sampleID, Volume: vol, Label: label})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sample:      %s\n", res.SampleID)
	fmt.Fprintf(out, "episode:     %s\n", res.EpisodeID)
	fmt.Fprintf(out, "rounds:      %d (%s)\n", res.Rounds, res.Reason)
	for _, ev := range rounds.OfType(engine.EventRoundCompleted) {
		fmt.Fprintf(out, "round %-6d loss %.4f  dice %.4f\n", ev.Iteration, ev.Loss, ev.Metric)
	}
	fmt.Fprintf(out, "final dice:  %.4f\n", eval.metric)
	for _, name := range res.Guidance.Labels() {
		fmt.Fprintf(out, "clicks %-8s %d\n", name+":", res.Guidance.Len(name))
	}
	return nil
}

// evaluator is the training step of the CLI: one final forward pass scored
// against the label
type evaluator struct {
	inferer engine.Inferer
	labels  models.LabelSet
	metric  float64
}

func (e *evaluator) Step(ctx context.Context, vol *models.Volume, label *models.LabelMap, _ bool) error {
	pred, err := e.inferer.Infer(ctx, vol)
	if err != nil {
		return err
	}
	e.metric = metrics.DiceMetric(pred.Argmax(), label, e.labels)
	return nil
}

// fixedUncertainty serves one uncertainty map for every sample
type fixedUncertainty struct {
	grid *models.Grid
}

func (u fixedUncertainty) Uncertainty(string) (*models.Grid, error) {
	return u.grid, nil
}

func readTensor(path string) (*models.Volume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	vol, err := inference.DecodeVolume(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vol, nil
}

func toLabelMap(g *models.Grid) *models.LabelMap {
	out := models.NewLabelMap(g.Shape)
	for i, v := range g.Data {
		out.Data[i] = int32(math.Round(float64(v)))
	}
	return out
}
