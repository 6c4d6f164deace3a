package env

import "fmt"

// Field is a named slice of an observation row.
type Field struct {
	Name   string
	Offset int
	Width  int
}

// Of returns the field's elements of row.
func (f Field) Of(row []float64) []float64 {
	return row[f.Offset : f.Offset+f.Width]
}

// Layout is an ordered set of contiguous fields. Observation construction
// and the inverse state injection both read offsets from the same Layout.
type Layout struct {
	Fields []Field
	Width  int
	index  map[string]int
}

// NewLayout lays out fields back to back in the given order. Offsets in the
// input are ignored.
func NewLayout(fields ...Field) *Layout {
	l := &Layout{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, dup := l.index[f.Name]; dup {
			panic(fmt.Sprintf("duplicate layout field %q", f.Name))
		}
		f.Offset = l.Width
		l.index[f.Name] = len(l.Fields)
		l.Fields = append(l.Fields, f)
		l.Width += f.Width
	}
	return l
}

// Field returns the named field. It panics on unknown names.
func (l *Layout) Field(name string) Field {
	i, ok := l.index[name]
	if !ok {
		panic(fmt.Sprintf("unknown layout field %q", name))
	}
	return l.Fields[i]
}

// AntLayout is the ant observation.
var AntLayout = NewLayout(
	Field{Name: "torso_height", Width: 1},
	Field{Name: "torso_rotation", Width: 4},
	Field{Name: "linear_velocity", Width: 3},
	Field{Name: "angular_velocity", Width: 3},
	Field{Name: "joint_q", Width: 8},
	Field{Name: "joint_qd", Width: 8},
	Field{Name: "up", Width: 1},
	Field{Name: "heading", Width: 1},
	Field{Name: "actions", Width: 8},
)

var (
	obsHeight  = AntLayout.Field("torso_height")
	obsRot     = AntLayout.Field("torso_rotation")
	obsLinVel  = AntLayout.Field("linear_velocity")
	obsAngVel  = AntLayout.Field("angular_velocity")
	obsJointQ  = AntLayout.Field("joint_q")
	obsJointQD = AntLayout.Field("joint_qd")
	obsUp      = AntLayout.Field("up")
	obsHeading = AntLayout.Field("heading")
	obsActions = AntLayout.Field("actions")
)
