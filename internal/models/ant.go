// Package models provides articulation descriptors for the simulator's
// model builder.
package models

import (
	"math"

	"github.com/san-kum/antsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	AntJointQ  = 15
	AntJointQD = 14
	AntActions = 8
)

// AntRestPose holds hip/ankle angles for the four legs, in body order.
var AntRestPose = [AntActions]float64{0, 1, 0, -1, 0, -1, 0, 1}

func deg(d float64) float64 { return d * math.Pi / 180 }

type antLeg struct {
	name       string
	dx, dy     float64
	ankleAxis  r3.Vec
	ankleLower float64
	ankleUpper float64
}

var antLegs = [4]antLeg{
	{"front_left", 1, 1, r3.Vec{X: -1, Y: 1}, deg(30), deg(70)},
	{"front_right", -1, 1, r3.Vec{X: 1, Y: 1}, deg(-70), deg(-30)},
	{"back_left", -1, -1, r3.Vec{X: -1, Y: 1}, deg(-70), deg(-30)},
	{"back_right", 1, -1, r3.Vec{X: 1, Y: 1}, deg(30), deg(70)},
}

// Ant returns the four-legged ant: a spherical torso on a free joint and
// four two-segment legs with a hip (about the torso normal) and an ankle
// joint each. Coordinates are z-up; the environment rotates the root so the
// torso normal points along world +y.
func Ant() *sim.ArticulationDesc {
	const (
		torsoRadius = 0.25
		limbRadius  = 0.08
		hipReach    = 0.2
		thighLen    = 0.2
		shinLen     = 0.4
	)

	torso := sim.BodyDesc{
		Name:   "torso",
		Parent: -1,
		Joint:  sim.JointDesc{Name: "root", Type: sim.JointFree},
		Shapes: []sim.ShapeDesc{{Kind: sim.ShapeSphere, Radius: torsoRadius}},
	}
	for _, leg := range antLegs {
		torso.Shapes = append(torso.Shapes, sim.ShapeDesc{
			Kind:   sim.ShapeCapsule,
			Radius: limbRadius,
			To:     r3.Vec{X: leg.dx * hipReach, Y: leg.dy * hipReach},
		})
	}

	desc := &sim.ArticulationDesc{
		Name:   "ant",
		Bodies: []sim.BodyDesc{torso},
		RestQ:  make([]float64, 0, AntJointQ),
	}
	desc.RestQ = append(desc.RestQ, 0, 0, 0, 0, 0, 0, 1)

	for i, leg := range antLegs {
		thigh := len(desc.Bodies)
		desc.Bodies = append(desc.Bodies,
			sim.BodyDesc{
				Name:   leg.name + "_thigh",
				Parent: 0,
				Offset: r3.Vec{X: leg.dx * hipReach, Y: leg.dy * hipReach},
				Joint: sim.JointDesc{
					Name:  leg.name + "_hip",
					Type:  sim.JointRevolute,
					Axis:  r3.Vec{Z: 1},
					Lower: deg(-30),
					Upper: deg(30),
				},
				Shapes: []sim.ShapeDesc{{
					Kind:   sim.ShapeCapsule,
					Radius: limbRadius,
					To:     r3.Vec{X: leg.dx * thighLen, Y: leg.dy * thighLen},
				}},
			},
			sim.BodyDesc{
				Name:   leg.name + "_shin",
				Parent: thigh,
				Offset: r3.Vec{X: leg.dx * thighLen, Y: leg.dy * thighLen},
				Joint: sim.JointDesc{
					Name:  leg.name + "_ankle",
					Type:  sim.JointRevolute,
					Axis:  leg.ankleAxis,
					Lower: leg.ankleLower,
					Upper: leg.ankleUpper,
				},
				Shapes: []sim.ShapeDesc{{
					Kind:   sim.ShapeCapsule,
					Radius: limbRadius,
					To:     r3.Vec{X: leg.dx * shinLen, Y: leg.dy * shinLen},
				}},
			},
		)
		desc.RestQ = append(desc.RestQ, AntRestPose[2*i], AntRestPose[2*i+1])
	}
	return desc
}

// AntMaterial is the default ant material.
func AntMaterial() sim.Material {
	return sim.Material{
		Density:       1000,
		Stiffness:     0,
		Damping:       1,
		ContactKe:     4e4,
		ContactKd:     1e4,
		ContactKf:     3e3,
		ContactMu:     0.75,
		ContactMargin: 0.01,
		LimitKe:       1e3,
		LimitKd:       10,
		Armature:      0.05,
	}
}
