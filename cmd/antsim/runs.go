package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/antsim/internal/analysis"
	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/render"
	"github.com/san-kum/antsim/internal/storage"
	"github.com/spf13/cobra"
)

func store() *storage.Store {
	return storage.New(dataDir)
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := store().List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCTRL\tTIME\tENVS\tSTEPS\tRESETS\tRETURN")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.3f\n",
					run.ID,
					run.Controller,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.NumEnvs,
					run.Steps,
					run.Resets,
					run.Metrics["episode_return"],
				)
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var (
		columns []string
		svgDir  string
	)

	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store()
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			traj, err := st.LoadTrajectory(args[0])
			if err != nil {
				return err
			}
			if len(traj.Rows) == 0 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("controller: %s\n", meta.Controller)
			fmt.Printf("samples: %d\n\n", len(traj.Rows))

			for _, name := range columns {
				data, err := traj.Column(name)
				if err != nil {
					return err
				}
				caption := name
				if name == "mean_reward" {
					// Row 0 is the initial state and has no reward.
					data = data[1:]
				} else if name == "torso_height" {
					caption = fmt.Sprintf("torso height (env %d)", meta.TraceEnv)
				}
				plotSeries(data, caption)
				if svgDir != "" {
					path := filepath.Join(svgDir, fmt.Sprintf("%s_%s.svg", meta.ID, name))
					if err := os.WriteFile(path, []byte(render.SeriesToSVG(data, 800, 300, "#00ff00")), 0644); err != nil {
						return err
					}
					fmt.Printf("wrote %s\n", path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", []string{"mean_height", "mean_reward", "torso_height"}, "trajectory columns to plot")
	cmd.Flags().StringVar(&svgDir, "svg", "", "also write each plot as svg to this directory")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := store().Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traj, err := store().LoadTrajectory(args[0])
			if err != nil {
				return err
			}
			if len(traj.Rows) == 0 {
				return fmt.Errorf("no data to export")
			}

			w := csv.NewWriter(os.Stdout)
			if err := w.Write(traj.Header); err != nil {
				return err
			}
			for _, row := range traj.Rows {
				rec := make([]string, len(row))
				for i, v := range row {
					rec[i] = strconv.FormatFloat(v, 'f', 6, 64)
				}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}
}

func newExportJSONCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := store().LoadResult(args[0])
			if err != nil {
				return err
			}
			data := storage.NewExportData(meta, result)
			if out != "" {
				return storage.ExportJSON(out, data)
			}
			return storage.EncodeJSON(os.Stdout, data)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var column string

	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store()
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			traj, err := st.LoadTrajectory(args[0])
			if err != nil {
				return err
			}
			data, err := traj.Column(column)
			if err != nil {
				return err
			}

			bins, err := analysis.Spectrum(data, meta.Dt)
			if err != nil {
				return err
			}

			fmt.Printf("frequency analysis: %s\n", meta.ID)
			fmt.Printf("column: %s\n\n", column)

			power := make([]float64, 0, len(bins))
			for _, b := range bins[1:] {
				power = append(power, b.Power)
			}
			fmt.Println(asciigraph.Plot(power[:min(len(power), max(2, len(power)/4))],
				asciigraph.Height(15),
				asciigraph.Width(80),
				asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", column)),
			))
			fmt.Println()

			freq := analysis.DominantFrequency(bins)
			fmt.Printf("dominant frequency: %.3f hz\n", freq)
			if freq > 0 {
				fmt.Printf("period: %.3f s\n", 1.0/freq)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&column, "column", "torso_height", "trajectory column")
	return cmd
}

func newPhaseCmd() *cobra.Command {
	var xAxis, yAxis string

	cmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traj, err := store().LoadTrajectory(args[0])
			if err != nil {
				return err
			}
			xs, err := traj.Column(xAxis)
			if err != nil {
				return err
			}
			ys, err := traj.Column(yAxis)
			if err != nil {
				return err
			}
			portrait, err := analysis.NewPhasePortrait(xAxis, xs, yAxis, ys)
			if err != nil {
				return err
			}

			fmt.Printf("phase space plot: %s\n", args[0])
			fmt.Printf("x-axis: %s, y-axis: %s\n\n", xAxis, yAxis)
			fmt.Print(portrait.ASCII(70, 20))
			return nil
		},
	}

	cmd.Flags().StringVar(&xAxis, "x-axis", "joint_q_0", "trajectory column for the x-axis")
	cmd.Flags().StringVar(&yAxis, "y-axis", "joint_qd_0", "trajectory column for the y-axis")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tENVS\tEPISODE\tGRAD\tSTOCHASTIC\tRENDER\tJACOBIANS")
			for _, name := range config.ListPresets() {
				c := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%t\t%t\t%t\n",
					name, c.NumEnvs, c.EpisodeLength, !c.NoGrad, c.StochasticInit, c.Render, c.Jacobians)
			}
			return w.Flush()
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [path]",
		Short: "write the resolved configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := baseConfig()
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
}

func newSnapshotCmd() *cobra.Command {
	var (
		frame  int
		pose   int
		output string
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "snapshot <frames.json>",
		Short: "draw a recorded pose as svg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := render.LoadFrames(args[0])
			if err != nil {
				return err
			}
			if frame < 0 || frame >= len(frames) {
				return fmt.Errorf("frame %d out of range (file has %d)", frame, len(frames))
			}
			poses := frames[frame].Poses
			if pose < 0 || pose >= len(poses) {
				return fmt.Errorf("pose %d out of range (frame has %d)", pose, len(poses))
			}

			svg := render.PoseToSVG(poses[pose], 800, 400, scale)
			if output == "" {
				fmt.Println(svg)
				return nil
			}
			if err := os.WriteFile(output, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("wrote env %d at t=%.3f to %s\n", poses[pose].Env, frames[frame].Time, output)
			return nil
		},
	}

	cmd.Flags().IntVar(&frame, "frame", 0, "frame index within the file")
	cmd.Flags().IntVar(&pose, "pose", 0, "pose index within the frame")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&scale, "scale", 160, "pixels per meter")
	return cmd
}
