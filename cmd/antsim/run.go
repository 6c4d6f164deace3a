package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/metrics"
	"github.com/san-kum/antsim/internal/render"
	"github.com/san-kum/antsim/internal/rollout"
	"github.com/san-kum/antsim/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func newRunCmd() *cobra.Command {
	var (
		f          simFlags
		steps      int
		traceEnv   int
		renderDir  string
		interval   int
		jacobians  bool
		checkpoint bool
		resume     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a batched rollout and store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			if changed(cmd, "jacobians") {
				cfg.Jacobians = jacobians
				cfg.NoGrad = !jacobians
			}
			ctrl, err := f.newController(cmd, cfg)
			if err != nil {
				return err
			}

			st := storage.New(cfg.OutputDir)
			if err := st.Init(); err != nil {
				return err
			}

			opts := []env.Option{env.WithLogger(logger)}
			if renderDir != "" {
				cfg.Render = true
				cfg.RenderInterval = interval
				opts = append(opts, env.WithRenderer(render.NewFrameRecorder(renderDir, traceEnv)))
			} else if cfg.Render {
				dir := filepath.Join(cfg.OutputDir, fmt.Sprintf("frames_%d", time.Now().Unix()))
				opts = append(opts, env.WithRenderer(render.NewFrameRecorder(dir, traceEnv)))
			}

			ant, err := env.NewAnt(cfg, opts...)
			if err != nil {
				return err
			}
			if resume != "" {
				cp, err := st.LoadCheckpoint(resume)
				if err != nil {
					return fmt.Errorf("resume %s: %w", resume, err)
				}
				if err := ant.ClearGrad(cp); err != nil {
					return fmt.Errorf("resume %s: %w", resume, err)
				}
				ant.CalculateObservations()
			}

			runner := rollout.New(ant, ctrl)
			for _, m := range metrics.Defaults() {
				runner.AddMetric(m)
			}

			fmt.Printf("running %d ant environments for %d steps...\n", cfg.NumEnvs, steps)
			start := time.Now()
			result, err := runner.Run(cmd.Context(), rollout.Config{Steps: steps, TraceEnv: traceEnv, Play: !cfg.Jacobians})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if err != nil {
				fmt.Println(warnStyle.Render(fmt.Sprintf("interrupted after %d steps", result.StepsTaken)))
			}
			elapsed := time.Since(start)

			runID, err := st.Save(f.controller, cfg, result)
			if err != nil {
				return err
			}
			if checkpoint {
				if err := st.SaveCheckpoint(runID, ant.GetCheckpoint()); err != nil {
					return err
				}
			}

			envSteps := float64(result.StepsTaken * cfg.NumEnvs)
			var s string
			s += titleStyle.Render("ANT ROLLOUT") + "\n"
			s += field("run id", "%s", runID)
			s += field("completed in", "%v", elapsed.Round(time.Millisecond))
			s += field("steps", "%d", result.StepsTaken)
			s += field("env steps/sec", "%.0f", envSteps/elapsed.Seconds())
			s += field("episodes ended", "%d", result.TotalResets())
			s += "\n" + metricsBlock(result.Metrics)
			fmt.Println(boxStyle.Render(s))
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().IntVar(&steps, "steps", 1000, "environment steps")
	cmd.Flags().IntVar(&traceEnv, "trace-env", 0, "environment recorded in the trajectory")
	cmd.Flags().StringVar(&renderDir, "render", "", "write pose frames to this directory")
	cmd.Flags().IntVar(&interval, "render-interval", 1, "frames per saved frame file")
	cmd.Flags().BoolVar(&jacobians, "jacobians", false, "compute per-step jacobians")
	cmd.Flags().BoolVar(&checkpoint, "checkpoint", false, "store a checkpoint of the final state")
	cmd.Flags().StringVar(&resume, "resume", "", "start from the checkpoint of a stored run")
	return cmd
}

// realtime paces a rollout so simulation time tracks wall time.
type realtime struct {
	start time.Time
	speed float64
}

func (r *realtime) OnStep(step int, res env.StepResult, actions *mat.Dense, t float64) {
	if r.start.IsZero() {
		r.start = time.Now()
	}
	target := time.Duration(t / r.speed * float64(time.Second))
	if wait := target - time.Since(r.start); wait > 0 {
		time.Sleep(wait)
	}
}

func newLiveCmd() *cobra.Command {
	var (
		f     simFlags
		steps int
		speed float64
		watch int
	)

	cmd := &cobra.Command{
		Use:   "live",
		Short: "run a rollout with a live terminal view",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			if !changed(cmd, "envs") {
				cfg.NumEnvs = 1
			}
			cfg.Render = true
			cfg.RenderInterval = 1
			ctrl, err := f.newController(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			p := tea.NewProgram(render.NewLiveModel("ant "+f.controller), tea.WithContext(ctx))
			ant, err := env.NewAnt(cfg, env.WithLogger(logger), env.WithRenderer(render.NewLiveRenderer(p.Send, watch)))
			if err != nil {
				return err
			}

			runner := rollout.New(ant, ctrl)
			if speed > 0 {
				runner.AddObserver(&realtime{speed: speed})
			}

			go func() {
				_, err := runner.Run(ctx, rollout.Config{Steps: steps, Play: true})
				if errors.Is(err, context.Canceled) {
					err = nil
				}
				p.Send(render.DoneMsg{Err: err})
			}()

			final, err := p.Run()
			cancel()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			if m, ok := final.(render.LiveModel); ok && m.Err() != nil {
				return m.Err()
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().IntVar(&steps, "steps", 1000, "environment steps")
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed relative to real time (0 = unpaced)")
	cmd.Flags().IntVar(&watch, "watch", 0, "environment to display")
	return cmd
}

func newBenchCmd() *cobra.Command {
	var (
		f     simFlags
		steps int
		sizes []int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "measure stepping throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			cfg.EarlyTermination = false

			fmt.Printf("benchmarking %d steps, %d substeps\n\n", steps, cfg.Sim.Substeps)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ENVS\tCACHE\tTIME\tSTEPS/SEC\tENV-STEPS/SEC")

			for _, n := range sizes {
				for _, cache := range []int{1, cfg.MMCachingFrequency} {
					c := cfg.Clone()
					c.NumEnvs = n
					c.MMCachingFrequency = cache
					ant, err := env.NewAnt(c, env.WithLogger(logger))
					if err != nil {
						return err
					}
					zero := mat.NewDense(n, env.AntActs, nil)

					start := time.Now()
					for i := 0; i < steps; i++ {
						if err := cmd.Context().Err(); err != nil {
							return err
						}
						if _, err := ant.PlayStep(zero); err != nil {
							return err
						}
					}
					elapsed := time.Since(start)

					fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\t%.0f\n",
						n, cache, elapsed.Round(time.Millisecond),
						float64(steps)/elapsed.Seconds(),
						float64(steps*n)/elapsed.Seconds())
				}
			}
			return w.Flush()
		},
	}

	f.register(cmd)
	cmd.Flags().IntVar(&steps, "steps", 100, "steps per configuration")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{1, 16, 64, 256}, "batch sizes")
	return cmd
}

func plotSeries(data []float64, caption string) {
	if len(data) < 2 {
		return
	}
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	fmt.Println()
}
