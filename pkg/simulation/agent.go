package simulation

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
)

// AgentID identifies an agent for the whole run. IDs are handed out in
// increasing order and never reused, so per-agent escape memory can key on them.
type AgentID uint64

// Agent is a single swarm member.
// Vel is the unit direction derived from Angle during the last Update; between
// a RotateBy and the next Update it still describes the previous tick.
type Agent struct {
	ID    AgentID
	Pos   geometry.Vector2D
	Vel   geometry.Vector2D
	Angle float64 // radians, never normalized
	Speed float64
}

// NewAgent creates an agent at (x, y) heading at angle.
func NewAgent(id AgentID, x, y, angle, speed float64) *Agent {
	return &Agent{
		ID:    id,
		Pos:   geometry.Vector2D{X: x, Y: y},
		Angle: angle,
		Speed: speed,
	}
}

// newRandomAgent places an agent uniformly inside the viewport with a uniform heading.
func newRandomAgent(id AgentID, vp Viewport, speed float64, rng *rand.Rand) *Agent {
	return NewAgent(id,
		rng.Float64()*vp.Width,
		rng.Float64()*vp.Height,
		rng.Float64()*geometry.TwoPi,
		speed,
	)
}

// Update recomputes the velocity from the heading and moves the agent by Speed.
func (a *Agent) Update() {
	a.Vel = geometry.FromAngle(a.Angle)
	a.Pos = a.Pos.Add(a.Vel.Mul(a.Speed))
}

// RotateBy turns the agent by delta radians.
func (a *Agent) RotateBy(delta float64) {
	a.Angle += delta
}

// SetAngle replaces the heading.
func (a *Agent) SetAngle(angle float64) {
	a.Angle = angle
}

// DistanceTo gives the cartesian distance from this Agent and the other
func (a *Agent) DistanceTo(other *Agent) float64 {
	return a.Pos.DistanceTo(other.Pos)
}

// DistanceSquaredTo gives squared magnitude of the vector from this Agent and the other
func (a *Agent) DistanceSquaredTo(other *Agent) float64 {
	return a.Pos.DistanceSquaredTo(other.Pos)
}

// Clone returns an independent copy, used to simulate a step ahead.
func (a *Agent) Clone() *Agent {
	c := *a
	return &c
}
