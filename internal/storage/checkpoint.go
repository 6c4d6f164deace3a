package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/env"
	"gonum.org/v1/gonum/mat"
)

type matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func fromDense(m *mat.Dense) matrix {
	r, c := m.Dims()
	return matrix{Rows: r, Cols: c, Data: mat.DenseCopyOf(m).RawMatrix().Data}
}

func (m matrix) dense() (*mat.Dense, error) {
	if m.Rows < 1 || m.Cols < 1 || len(m.Data) != m.Rows*m.Cols {
		return nil, fmt.Errorf("matrix %dx%d with %d values: %w", m.Rows, m.Cols, len(m.Data), dynamo.ErrDimensionMismatch)
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data), nil
}

type checkpointJSON struct {
	JointQ   matrix `json:"joint_q"`
	JointQD  matrix `json:"joint_qd"`
	Actions  matrix `json:"actions"`
	Progress []int  `json:"progress"`
}

// SaveCheckpoint stores a checkpoint with a run.
func (s *Store) SaveCheckpoint(runID string, cp *env.Checkpoint) error {
	if err := os.MkdirAll(s.Dir(runID), 0755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.Dir(runID), checkpointFile), checkpointJSON{
		JointQ:   fromDense(cp.JointQ),
		JointQD:  fromDense(cp.JointQD),
		Actions:  fromDense(cp.Actions),
		Progress: cp.Progress,
	})
}

func (s *Store) LoadCheckpoint(runID string) (*env.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), checkpointFile))
	if err != nil {
		return nil, err
	}

	var raw checkpointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", runID, err)
	}

	cp := &env.Checkpoint{Progress: raw.Progress}
	if cp.JointQ, err = raw.JointQ.dense(); err != nil {
		return nil, fmt.Errorf("joint_q: %w", err)
	}
	if cp.JointQD, err = raw.JointQD.dense(); err != nil {
		return nil, fmt.Errorf("joint_qd: %w", err)
	}
	if cp.Actions, err = raw.Actions.dense(); err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	return cp, nil
}
