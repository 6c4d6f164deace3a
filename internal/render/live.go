package render

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/antsim/internal/sim"
)

const (
	width           = 60
	height          = 16
	historyCapacity = 600

	// dots per meter; the ground sits 6 dots above the bottom edge.
	pixelsPerMeter = 40.0
	groundMargin   = 6
)

// FrameMsg carries one pose into the live model.
type FrameMsg struct {
	Pose Pose
	Time float64
}

// DoneMsg ends the live view. Err is the rollout error, if any.
type DoneMsg struct {
	Err error
}

// LiveModel is a bubbletea model showing a side view of one environment
// and its torso height history.
type LiveModel struct {
	title   string
	canvas  *Canvas
	pose    Pose
	t       float64
	frames  int
	heights []float64
	done    bool
	err     error
}

func NewLiveModel(title string) LiveModel {
	return LiveModel{
		title:   title,
		canvas:  NewCanvas(width, height),
		heights: make([]float64, 0, historyCapacity),
	}
}

func (m LiveModel) Init() tea.Cmd { return nil }

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case FrameMsg:
		m.pose, m.t = msg.Pose, msg.Time
		m.frames++
		if len(m.heights) == historyCapacity {
			m.heights = append(m.heights[:0], m.heights[1:]...)
		}
		m.heights = append(m.heights, msg.Pose.Height())
	case DoneMsg:
		m.done, m.err = true, msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Frames is the number of frames received.
func (m LiveModel) Frames() int { return m.frames }

// Err is the error delivered with DoneMsg.
func (m LiveModel) Err() error { return m.err }

func (m LiveModel) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("FAILED: "+m.err.Error()) + "\n\n")
	case m.done:
		s.WriteString(doneStyle.Render("DONE") + "\n\n")
	default:
		s.WriteString("RUNNING\n\n")
	}
	if len(m.heights) > 1 {
		chart := asciigraph.Plot(m.heights, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Torso height"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.t)) + "\n")
	s.WriteString(labelStyle.Render("Frames") + valueStyle.Render(fmt.Sprintf("%d", m.frames)) + "\n")
	s.WriteString(labelStyle.Render("Height") + valueStyle.Render(fmt.Sprintf("%.3f", m.pose.Height())) + "\n")
	if len(m.pose.Bodies) > 0 {
		x := m.pose.Bodies[0].Pos[0]
		s.WriteString(labelStyle.Render("Forward") + valueStyle.Render(fmt.Sprintf("%.3f", x)) + "\n")
	}
	s.WriteString(helpStyle.Render("Q:Quit"))

	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

// draw projects the pose onto the x/y plane, following the torso along x.
func (m *LiveModel) draw() {
	m.canvas.Clear()
	cw, ch := m.canvas.Width*2, m.canvas.Height*4
	groundY := ch - groundMargin

	for x := 0; x < cw; x += 2 {
		m.canvas.Set(x, groundY)
	}
	if len(m.pose.Bodies) == 0 {
		return
	}

	originX := m.pose.Bodies[0].Pos[0]
	project := func(p [3]float64) (int, int) {
		px := cw/2 + int(math.Round((p[0]-originX)*pixelsPerMeter))
		py := groundY - int(math.Round(p[1]*pixelsPerMeter))
		return px, py
	}

	for _, b := range m.pose.Bodies {
		if b.Parent < 0 {
			continue
		}
		x1, y1 := project(m.pose.Bodies[b.Parent].Pos)
		x2, y2 := project(b.Pos)
		m.canvas.Line(x1, y1, x2, y2)
	}
	for c, p := range m.pose.Contacts {
		x1, y1 := project(m.pose.Bodies[m.pose.ContactBody[c]].Pos)
		x2, y2 := project(p)
		m.canvas.Line(x1, y1, x2, y2)
	}
	tx, ty := project(m.pose.Bodies[0].Pos)
	m.canvas.Circle(tx, ty, 4)
}

// LiveRenderer forwards poses of one environment to a bubbletea program.
type LiveRenderer struct {
	send  func(tea.Msg)
	env   int
	poser poser
}

// NewLiveRenderer sends FrameMsg values through send, typically
// (*tea.Program).Send.
func NewLiveRenderer(send func(tea.Msg), env int) *LiveRenderer {
	return &LiveRenderer{send: send, env: env}
}

func (r *LiveRenderer) Bind(m *sim.Model) error {
	if r.send == nil {
		return fmt.Errorf("live renderer has no program")
	}
	if r.env < 0 || r.env >= m.NumEnvs {
		return fmt.Errorf("live env %d: model has %d environments", r.env, m.NumEnvs)
	}
	return r.poser.bind(m)
}

func (r *LiveRenderer) Update(s *sim.State, simTime float64) error {
	p, err := r.poser.pose(s, r.env)
	if err != nil {
		return err
	}
	r.send(FrameMsg{Pose: p, Time: simTime})
	return nil
}

// Save is a no-op; the live view keeps nothing.
func (r *LiveRenderer) Save() error { return nil }
