package simulation

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
)

// KillCelebration is how long after a kill the predator counts as having
// recently killed.
const KillCelebration = 300 * time.Millisecond

// Predator is a single agent that heads for the target and, when lethal,
// removes the agents it touches. It is never removed nor resized.
type Predator struct {
	Agent
	Size float64

	active atomic.Bool
	lethal atomic.Bool

	// zero value is far in the past
	lastKill time.Time
}

func newPredator(vp Viewport, speed, size float64, rng *rand.Rand) *Predator {
	return &Predator{
		Agent: *newRandomAgent(0, vp, speed, rng),
		Size:  size,
	}
}

func (p *Predator) Active() bool { return p.active.Load() }
func (p *Predator) Lethal() bool { return p.lethal.Load() }

// AtEdge reports whether the predator touches or crossed a border of vp.
func (p *Predator) AtEdge(vp Viewport) bool {
	return p.Pos.X+p.Size >= vp.Width || p.Pos.X <= 0 ||
		p.Pos.Y+p.Size >= vp.Height || p.Pos.Y <= 0
}

// Step keeps the heading unless the predator reached a border, in which case
// it turns straight to the target, then moves.
func (p *Predator) Step(target geometry.Vector2D, vp Viewport) {
	if p.AtEdge(vp) {
		p.SetAngle(p.Pos.AngleTo(target))
	}
	p.Update()
}

// Catches reports whether a lies strictly inside the kill radius.
func (p *Predator) Catches(a *Agent, killRadius float64) bool {
	return p.DistanceSquaredTo(a) < killRadius*killRadius
}

func (p *Predator) recordKill(now time.Time) {
	p.lastKill = now
}

// LastKill returns the time of the latest kill, zero if none happened.
func (p *Predator) LastKill() time.Time {
	return p.lastKill
}

// RecentlyKilled reports whether a kill happened within KillCelebration of now.
func (p *Predator) RecentlyKilled(now time.Time) bool {
	return !p.lastKill.IsZero() && now.Sub(p.lastKill) < KillCelebration
}

// View is the snapshot handed to escape strategies.
func (p *Predator) View() PredatorView {
	return PredatorView{
		Pos:    p.Pos,
		Angle:  p.Angle,
		Speed:  p.Speed,
		Active: p.Active(),
	}
}
