package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/optim"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var f simFlags

	cmd := &cobra.Command{
		Use:   "sweep <sweep.yaml>",
		Short: "grid search controller gains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sweep, err := optim.LoadSweep(args[0])
			if err != nil {
				return err
			}
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			grid, err := sweep.Grid()
			if err != nil {
				return err
			}

			fmt.Printf("sweeping %s over %d points...\n", sweep.Controller, grid.Size())
			base := optim.RolloutObjective(cfg, sweep.Controller, sweep.Metric, sweep.Steps, env.WithLogger(logger))
			trial := 0
			objective := func(ctx context.Context, p map[string]float64) (float64, error) {
				trial++
				v, err := base(ctx, p)
				if err == nil {
					logger.Info("trial", "n", trial, "params", optim.FormatParams(p), sweep.Metric, v)
				}
				return v, err
			}

			res, err := grid.Search(cmd.Context(), objective)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "PARAMS\t%s\n", sweep.Metric)
			for _, t := range res.Trials {
				fmt.Fprintf(tw, "%s\t%.6f\n", optim.FormatParams(t.Params), t.Value)
			}
			tw.Flush()

			if res.Best == nil {
				fmt.Println(warnStyle.Render("no finite result"))
				return nil
			}
			var s string
			s += titleStyle.Render("SWEEP "+sweep.Name) + "\n"
			s += field("best", "%s", optim.FormatParams(res.Best))
			s += field(sweep.Metric, "%.6f", res.BestValue)
			fmt.Println(boxStyle.Render(s))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}
