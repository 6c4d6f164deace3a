package env

import (
	"github.com/charmbracelet/log"
	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/sim"
)

// Renderer receives the live state once per step while rendering is
// enabled. Save persists what has been recorded so far.
type Renderer interface {
	Update(s *sim.State, simTime float64) error
	Save() error
}

// ModelBinder is implemented by renderers that need the model geometry. A
// Bind failure disables rendering.
type ModelBinder interface {
	Bind(m *sim.Model) error
}

type Option func(*options)

type options struct {
	logger   *log.Logger
	renderer Renderer
	exec     *dynamo.ExecContext
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRenderer attaches a renderer. It is only used when rendering is
// enabled in the config.
func WithRenderer(r Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithExecContext overrides the context derived from the config.
func WithExecContext(ctx dynamo.ExecContext) Option {
	return func(o *options) { o.exec = &ctx }
}
