package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GoSim-25-26J-441/clicksim/internal/store"
)

// diceDiff compares the metric histories of two output directories
type diceDiff struct {
	Samples     []string
	MeanAbsDiff float64
	CurveA      []float64
	CurveB      []float64
}

func newDiceDiffCmd() *cobra.Command {
	var dirA, dirB string
	cmd := &cobra.Command{
		Use:   "dicediff",
		Short: "Compare the dice histories of two output directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := compareHistories(store.NewFileStore(dirA), store.NewFileStore(dirB))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "samples:       %d\n", len(d.Samples))
			fmt.Fprintf(out, "mean abs diff: %.6f\n", d.MeanAbsDiff)
			fmt.Fprintf(out, "mean curve a:  %v\n", d.CurveA)
			fmt.Fprintf(out, "mean curve b:  %v\n", d.CurveB)
			return nil
		},
	}
	cmd.Flags().StringVar(&dirA, "a", "", "first output directory")
	cmd.Flags().StringVar(&dirB, "b", "", "second output directory")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

// compareHistories pairs the samples present in both stores. Each pair
// contributes mean(a-b) over their common rounds.
func compareHistories(a, b store.Store) (*diceDiff, error) {
	ids, err := a.ListHistory()
	if err != nil {
		return nil, err
	}
	other, err := b.ListHistory()
	if err != nil {
		return nil, err
	}
	inB := make(map[string]bool, len(other))
	for _, id := range other {
		inB[id] = true
	}

	d := &diceDiff{}
	var diffs []float64
	var histA, histB [][]float64
	for _, id := range ids {
		if !inB[id] {
			continue
		}
		ha, err := a.LoadHistory(id)
		if err != nil {
			return nil, err
		}
		hb, err := b.LoadHistory(id)
		if err != nil {
			return nil, err
		}
		n := min(len(ha), len(hb))
		if n == 0 {
			continue
		}
		delta := make([]float64, n)
		floats.SubTo(delta, ha[:n], hb[:n])
		diffs = append(diffs, stat.Mean(delta, nil))
		histA = append(histA, ha)
		histB = append(histB, hb)
		d.Samples = append(d.Samples, id)
	}
	if len(diffs) == 0 {
		return nil, fmt.Errorf("no common dice histories")
	}

	abs := make([]float64, len(diffs))
	for i, v := range diffs {
		abs[i] = max(v, -v)
	}
	d.MeanAbsDiff = stat.Mean(abs, nil)
	d.CurveA = meanCurve(histA)
	d.CurveB = meanCurve(histB)
	return d, nil
}

// meanCurve averages the histories round by round over the samples that
// reached each round
func meanCurve(histories [][]float64) []float64 {
	rounds := 0
	for _, h := range histories {
		rounds = max(rounds, len(h))
	}
	curve := make([]float64, rounds)
	for r := range curve {
		var col []float64
		for _, h := range histories {
			if r < len(h) {
				col = append(col, h[r])
			}
		}
		curve[r] = stat.Mean(col, nil)
	}
	return curve
}
