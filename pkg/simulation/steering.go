package simulation

import (
	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
)

// MinSteeringDistance floors the separation divisor when two agents coincide.
const MinSteeringDistance = 1e-6

// Priorities weight the three flocking rules.
type Priorities struct {
	Alignment  int
	Separation int
	Cohesion   int
}

// SeekTarget pulls the agent toward target with a magnitude of priority.
// An agent sitting on the target gets no pull.
func SeekTarget(me *Agent, target geometry.Vector2D, priority float64) geometry.Vector2D {
	return towards(me.Pos, target, priority)
}

// FlockDirection sums the separation, alignment and cohesion terms.
func FlockDirection(me *Agent, s NeighborSummary, p Priorities) geometry.Vector2D {
	return Separation(me, s, p.Separation).
		Add(Alignment(s, p.Alignment)).
		Add(Cohesion(me, s, p.Cohesion))
}

// Separation turns away from the nearest neighbour, harder the closer it is.
// It is zero unless the summary flags the neighbour as too near.
func Separation(me *Agent, s NeighborSummary, priority int) geometry.Vector2D {
	if !s.TooNear || !s.HasNearest {
		return geometry.Zero
	}
	d := s.NearestDistance
	if d < MinSteeringDistance {
		d = MinSteeringDistance
	}
	return s.NearestPos.Sub(me.Pos).Neg().Mul(float64(priority) / d)
}

// Alignment heads along the average neighbour heading with a constant magnitude.
func Alignment(s NeighborSummary, priority int) geometry.Vector2D {
	return geometry.FromAngle(s.AverageHeading).Mul(float64(priority))
}

// Cohesion pulls toward the centroid of the cohesion neighbours.
func Cohesion(me *Agent, s NeighborSummary, priority int) geometry.Vector2D {
	if !s.HasCohesion {
		return geometry.Zero
	}
	return towards(me.Pos, s.Centroid, float64(priority))
}

// towards returns (to - from) / |to - from| * weight, or zero when from == to.
func towards(from, to geometry.Vector2D, weight float64) geometry.Vector2D {
	delta := to.Sub(from)
	if delta.Len() < MinSteeringDistance {
		return geometry.Zero
	}
	return delta.Normalize().Mul(weight)
}

// ComposeEscape applies an escape direction on top of the accumulated one:
// relative strategies add to it, absolute ones replace it.
func ComposeEscape(dir geometry.Vector2D, escape geometry.Vector2D, ok, relative bool) geometry.Vector2D {
	if !ok {
		return dir
	}
	if relative {
		return dir.Add(escape)
	}
	return escape
}

// Steer turns the agent a damped fraction of the shortest turn toward desired,
// then moves it. A non finite desired direction leaves the heading untouched;
// it reports whether the turn was applied.
func Steer(me *Agent, desired geometry.Vector2D, damper float64) bool {
	applied := false
	if desired.IsFinite() {
		rotation := geometry.ShortestRotation(me.Angle, desired.Angle())
		me.RotateBy(rotation * damper)
		applied = true
	}
	me.Update()
	return applied
}
