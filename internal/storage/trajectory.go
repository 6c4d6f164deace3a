package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/antsim/internal/env"
	"github.com/san-kum/antsim/internal/rollout"
)

// Trajectory is a loaded trajectory.csv.
type Trajectory struct {
	Header []string
	Rows   [][]float64
}

// Column returns the named column, or an error if it does not exist.
func (t *Trajectory) Column(name string) ([]float64, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("no column %q", name)
	}

	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

func (s *Store) LoadTrajectory(runID string) (*Trajectory, error) {
	file, err := os.Open(filepath.Join(s.Dir(runID), trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	traj := &Trajectory{Rows: make([][]float64, 0)}
	if len(records) == 0 {
		return traj, nil
	}
	traj.Header = records[0]

	for _, record := range records[1:] {
		row := make([]float64, 0, len(record))
		for _, field := range record {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", runID, err)
			}
			row = append(row, val)
		}
		traj.Rows = append(traj.Rows, row)
	}

	return traj, nil
}

// LoadResult rebuilds the rollout summaries of a stored run.
func (s *Store) LoadResult(runID string) (*RunMetadata, *rollout.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}

	header := TrajectoryHeader()
	if len(traj.Header) != len(header) {
		return nil, nil, fmt.Errorf("%s: trajectory has %d columns, want %d", runID, len(traj.Header), len(header))
	}
	obsStart := 5
	actStart := obsStart + env.AntObs

	res := &rollout.Result{
		Metrics:    meta.Metrics,
		TraceEnv:   meta.TraceEnv,
		StepsTaken: meta.Steps,
	}
	for i, row := range traj.Rows {
		res.Times = append(res.Times, row[0])
		res.MeanHeight = append(res.MeanHeight, row[2])
		res.Observations = append(res.Observations, row[obsStart:actStart])
		if i == 0 {
			continue
		}
		res.MeanReward = append(res.MeanReward, row[1])
		res.Resets = append(res.Resets, int(row[3]))
		res.ContactChanges = append(res.ContactChanges, int(row[4]))
		res.Actions = append(res.Actions, row[actStart:])
	}
	return meta, res, nil
}
