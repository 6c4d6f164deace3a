package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/san-kum/antsim/internal/analysis"
	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// inputNames labels the columns of a step Jacobian.
func inputNames() []string {
	names := append([]string(nil), storage.TrajectoryHeader()[5:5+env.AntObs]...)
	for i := 0; i < env.AntActs; i++ {
		names = append(names, fmt.Sprintf("torque_%d", i))
	}
	return names
}

func newJacobianCmd() *cobra.Command {
	var (
		f     simFlags
		steps int
		top   int
	)

	cmd := &cobra.Command{
		Use:   "jacobian",
		Short: "print the step jacobian of one environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			if !changed(cmd, "envs") {
				cfg.NumEnvs = 1
			}
			cfg.NoGrad = false
			cfg.Jacobians = true
			ctrl, err := f.newController(cmd, cfg)
			if err != nil {
				return err
			}

			ant, err := env.NewAnt(cfg, env.WithLogger(logger))
			if err != nil {
				return err
			}

			var jac *mat.Dense
			for i := 0; i < steps; i++ {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				res, err := ant.Step(ctrl.Compute(ant.Obs(), ant.SimTime()))
				if err != nil {
					return err
				}
				jac = res.Extras.Jacobian[0]
			}
			if jac == nil {
				return fmt.Errorf("no steps taken")
			}

			in := inputNames()
			out := in[:env.MaxJacobianOutDim]
			fmt.Println(titleStyle.Render(fmt.Sprintf("JACOBIAN AFTER %d STEPS (env 0)", steps)))
			fmt.Println()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "OUTPUT\tNORM\tLARGEST TERMS")
			for r := 0; r < env.MaxJacobianOutDim; r++ {
				row := jac.RawRowView(r)
				idx := make([]int, len(row))
				for i := range idx {
					idx[i] = i
				}
				sort.Slice(idx, func(a, b int) bool { return math.Abs(row[idx[a]]) > math.Abs(row[idx[b]]) })

				terms := ""
				for _, i := range idx[:min(top, len(idx))] {
					terms += fmt.Sprintf("%s=%+.3g  ", in[i], row[i])
				}
				fmt.Fprintf(w, "%s\t%.4g\t%s\n", out[r], mat.Norm(jac.RowView(r), 2), terms)
			}
			return w.Flush()
		},
	}

	f.register(cmd)
	cmd.Flags().IntVar(&steps, "steps", 30, "steps before the reported jacobian")
	cmd.Flags().IntVar(&top, "top", 3, "terms shown per output")
	return cmd
}

func newSensitivityCmd() *cobra.Command {
	var (
		f            simFlags
		steps        int
		perturbation float64
		coordinate   int
	)

	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "measure perturbation growth with and without contact events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			ctrl, err := f.newController(cmd, cfg)
			if err != nil {
				return err
			}

			res, err := analysis.Sensitivity(cmd.Context(), cfg, analysis.SensitivityOptions{
				Steps:        steps,
				Perturbation: perturbation,
				Coordinate:   coordinate,
				Controller:   ctrl,
			}, env.WithLogger(logger))
			if err != nil {
				return err
			}

			logSep := make([]float64, len(res.Separation))
			contacts := 0
			for i, s := range res.Separation {
				logSep[i] = math.Log10(s / perturbation)
				if res.ContactChanged[i] {
					contacts++
				}
			}
			plotSeries(logSep, "log10 growth per step")

			var s string
			s += titleStyle.Render("SENSITIVITY") + "\n"
			s += field("steps", "%d", len(res.Separation))
			s += field("contact events", "%d", contacts)
			s += field("exponent", "%.4f /s", res.Exponent)
			s += field("contact growth", "%.4f /s", res.ContactGrowth)
			s += field("free growth", "%.4f /s", res.FreeGrowth)
			fmt.Println(boxStyle.Render(s))
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().IntVar(&steps, "steps", 300, "steps")
	cmd.Flags().Float64Var(&perturbation, "perturbation", analysis.DefaultPerturbation, "initial joint velocity perturbation")
	cmd.Flags().IntVar(&coordinate, "coordinate", 0, "perturbed joint_qd column")
	return cmd
}
