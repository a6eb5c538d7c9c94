package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "labels:     %s\n", strings.Join(cfg.LabelSet().Names(), ", "))
			fmt.Fprintf(out, "strategy:   %s\n", cfg.Sampler.Strategy)
			fmt.Fprintf(out, "stopping:   %s (max %d interactions)\n", cfg.Interaction.StoppingCriterion, cfg.Interaction.MaxInteractions)
			fmt.Fprintf(out, "replay:     %t\n", cfg.Sampler.Replay)
			fmt.Fprintf(out, "signal:     sigma=%g disks=%t geodesic=%t\n", cfg.Signal.Sigma, cfg.Signal.Disks, cfg.Signal.Geodesic)
			fmt.Fprintln(out, "config OK")
			return nil
		},
	}
}
