package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/clicksim/internal/store"
)

func newClicksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clicks FILE",
		Short: "Print the per-label clicks of a click record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := store.ReadClickRecord(args[0])
			if err != nil {
				return err
			}
			labels := make([]string, 0, len(rec))
			for name := range rec {
				labels = append(labels, name)
			}
			sort.Strings(labels)

			out := cmd.OutOrStdout()
			for _, name := range labels {
				fmt.Fprintf(out, "%s: %d clicks\n", name, len(rec[name]))
				for i, p := range rec[name] {
					fmt.Fprintf(out, "  %d %v\n", i, p)
				}
			}
			return nil
		},
	}
}
