package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/antsim/internal/sim"
)

// Frame is the recorded poses of one step.
type Frame struct {
	Time  float64 `json:"time"`
	Poses []Pose  `json:"poses"`
}

// FrameRecorder buffers frames and writes them to dir as
// frames_NNNNN.json, one file per Save.
type FrameRecorder struct {
	dir    string
	envs   []int
	poser  poser
	frames []Frame
	files  int
}

// NewFrameRecorder records the given environments, or environment 0 when
// none are given.
func NewFrameRecorder(dir string, envs ...int) *FrameRecorder {
	if len(envs) == 0 {
		envs = []int{0}
	}
	return &FrameRecorder{dir: dir, envs: envs}
}

func (r *FrameRecorder) Bind(m *sim.Model) error {
	for _, env := range r.envs {
		if env < 0 || env >= m.NumEnvs {
			return fmt.Errorf("record env %d: model has %d environments", env, m.NumEnvs)
		}
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return err
	}
	return r.poser.bind(m)
}

func (r *FrameRecorder) Update(s *sim.State, simTime float64) error {
	frame := Frame{Time: simTime, Poses: make([]Pose, 0, len(r.envs))}
	for _, env := range r.envs {
		p, err := r.poser.pose(s, env)
		if err != nil {
			return err
		}
		frame.Poses = append(frame.Poses, p)
	}
	r.frames = append(r.frames, frame)
	return nil
}

// Save writes the buffered frames. The buffer is kept when writing fails.
func (r *FrameRecorder) Save() error {
	if len(r.frames) == 0 {
		return nil
	}
	path := filepath.Join(r.dir, fmt.Sprintf("frames_%05d.json", r.files))
	data, err := json.Marshal(r.frames)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	r.files++
	r.frames = r.frames[:0]
	return nil
}

// Pending is the number of frames not yet saved.
func (r *FrameRecorder) Pending() int {
	return len(r.frames)
}

// Files is the number of frame files written.
func (r *FrameRecorder) Files() int {
	return r.files
}

// LoadFrames reads a file written by Save.
func LoadFrames(path string) ([]Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var frames []Frame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return frames, nil
}
