package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/antsim/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds a 2D phase space trajectory.
type PhasePortrait2D struct {
	XName, YName string
	Points       []Point
}

// NewPhasePortrait pairs two equally long series, typically a joint angle
// and its velocity from a stored trajectory.
func NewPhasePortrait(xName string, xs []float64, yName string, ys []float64) (*PhasePortrait2D, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("phase portrait: %d x samples, %d y samples: %w", len(xs), len(ys), dynamo.ErrDimensionMismatch)
	}
	p := &PhasePortrait2D{XName: xName, YName: yName, Points: make([]Point, len(xs))}
	for i := range xs {
		p.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return p, nil
}

// PoincareSection returns (x, y) at every upward crossing of threshold by
// cross, linearly interpolated between samples.
func PoincareSection(cross []float64, threshold float64, xs, ys []float64) (*PhasePortrait2D, error) {
	if len(cross) != len(xs) || len(xs) != len(ys) {
		return nil, fmt.Errorf("poincare section: series lengths %d, %d, %d: %w", len(cross), len(xs), len(ys), dynamo.ErrDimensionMismatch)
	}
	p := &PhasePortrait2D{Points: make([]Point, 0)}
	for i := 1; i < len(cross); i++ {
		prev, curr := cross[i-1], cross[i]
		if prev < threshold && curr >= threshold {
			frac := (threshold - prev) / (curr - prev)
			p.Points = append(p.Points, Point{
				X: xs[i-1] + frac*(xs[i]-xs[i-1]),
				Y: ys[i-1] + frac*(ys[i]-ys[i-1]),
			})
		}
	}
	return p, nil
}

// ASCII plots the portrait on a width x height character grid, with axes
// where they cross the visible area.
func (p *PhasePortrait2D) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
