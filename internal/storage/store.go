// Package storage persists rollouts and checkpoints under a base directory.
// Each run lives in its own directory with a metadata.json, a
// trajectory.csv and, optionally, a checkpoint.json.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/rollout"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	checkpointFile = "checkpoint.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir returns the directory of a run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Controller string             `json:"controller"`
	Seed       uint64             `json:"seed"`
	NumEnvs    int                `json:"num_envs"`
	Steps      int                `json:"steps"`
	Dt         float64            `json:"dt"`
	Substeps   int                `json:"substeps"`
	TraceEnv   int                `json:"trace_env"`
	Resets     int                `json:"resets"`
	Metrics    map[string]float64 `json:"metrics"`
	Config     *config.Config     `json:"config,omitempty"`
}

// Save writes a rollout and returns its run ID.
func (s *Store) Save(controller string, cfg *config.Config, result *rollout.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", controller, uuid.New().String()[:8])
	runDir := s.Dir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Timestamp:  time.Now(),
		Controller: controller,
		Seed:       cfg.Seed,
		NumEnvs:    cfg.NumEnvs,
		Steps:      result.StepsTaken,
		Dt:         cfg.Sim.Dt,
		Substeps:   cfg.Sim.Substeps,
		TraceEnv:   result.TraceEnv,
		Resets:     result.TotalResets(),
		Metrics:    result.Metrics,
		Config:     cfg,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

// TrajectoryHeader names the trajectory.csv columns.
func TrajectoryHeader() []string {
	header := []string{"time", "mean_reward", "mean_height", "resets", "contact_changes"}
	for _, f := range env.AntLayout.Fields {
		if f.Width == 1 {
			header = append(header, f.Name)
			continue
		}
		for i := 0; i < f.Width; i++ {
			header = append(header, fmt.Sprintf("%s_%d", f.Name, i))
		}
	}
	for i := 0; i < env.AntActs; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	return header
}

func writeTrajectory(path string, result *rollout.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(TrajectoryHeader()); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }
	for i := range result.Observations {
		row := []string{format(result.Times[i])}
		// Row 0 is the initial state, before any transition.
		if i == 0 {
			row = append(row, "0", format(result.MeanHeight[i]), "0", "0")
		} else {
			row = append(row,
				format(result.MeanReward[i-1]),
				format(result.MeanHeight[i]),
				strconv.Itoa(result.Resets[i-1]),
				strconv.Itoa(result.ContactChanges[i-1]),
			)
		}
		for _, v := range result.Observations[i] {
			row = append(row, format(v))
		}
		// Row i holds the action of transition i-1.
		for j := 0; j < env.AntActs; j++ {
			if i > 0 && i-1 < len(result.Actions) {
				row = append(row, format(result.Actions[i-1][j]))
			} else {
				row = append(row, "0")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", runID, err)
	}

	return &meta, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
