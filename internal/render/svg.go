package render

import (
	"fmt"
	"strings"
)

const svgBackground = "#0a0a0a"

// PoseToSVG draws a side view of pose on the x/y plane. scale is pixels
// per meter; the torso is centered horizontally and the ground sits
// margin pixels above the bottom edge.
func PoseToSVG(pose Pose, width, height int, scale float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, svgBackground)

	margin := float64(height) / 8
	ground := float64(height) - margin
	fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444444" stroke-width="1"/>
`, ground, width, ground)

	if len(pose.Bodies) == 0 {
		sb.WriteString("</svg>")
		return sb.String()
	}

	originX := pose.Bodies[0].Pos[0]
	project := func(p [3]float64) (float64, float64) {
		return float64(width)/2 + (p[0]-originX)*scale, ground - p[1]*scale
	}

	sb.WriteString(`<g stroke="#00ff00" stroke-width="2" stroke-linecap="round">` + "\n")
	for _, b := range pose.Bodies {
		if b.Parent < 0 {
			continue
		}
		x1, y1 := project(pose.Bodies[b.Parent].Pos)
		x2, y2 := project(b.Pos)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, x1, y1, x2, y2)
	}
	for c, p := range pose.Contacts {
		x1, y1 := project(pose.Bodies[pose.ContactBody[c]].Pos)
		x2, y2 := project(p)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, x1, y1, x2, y2)
	}
	sb.WriteString("</g>\n")

	sb.WriteString(`<g fill="#ffaa00">` + "\n")
	for _, p := range pose.Contacts {
		x, y := project(p)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, x, y, scale*0.04)
	}
	sb.WriteString("</g>\n")

	tx, ty := project(pose.Bodies[0].Pos)
	fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="#00ff00"/>
`, tx, ty, scale*0.1)

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesToSVG plots values against their index as a single path.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY = min(minY, v)
		maxY = max(maxY, v)
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	rangeX := float64(len(values) - 1)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, svgBackground, strokeColor)

	for i, v := range values {
		x := float64(i) / rangeX * float64(width)
		y := float64(height) - (v-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
