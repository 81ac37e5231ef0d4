package simulation

import (
	"math"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
)

// Radii are the perception distances of the flocking rules.
type Radii struct {
	SeparationDistance float64
	CohesionRadius     float64
	AlignmentRadius    float64
}

// NeighborSummary aggregates what one agent perceives of the swarm during a tick.
// It is recomputed for every agent on every tick and never stored.
type NeighborSummary struct {
	HasNearest      bool
	NearestDistance float64
	NearestPos      geometry.Vector2D

	// TooNear is also true when the agent is alone.
	TooNear bool

	HasCohesion bool
	Centroid    geometry.Vector2D

	AlignmentCount int
	AverageHeading float64
}

// ComputeNeighborSummary scans the whole swarm once for me.
func ComputeNeighborSummary(me *Agent, swarm []*Agent, r Radii) NeighborSummary {
	s := NeighborSummary{NearestDistance: math.MaxFloat64}

	// force accumulators
	var velSum, posSum geometry.Vector2D
	cohesionCount := 0

	for _, other := range swarm {
		if other.ID == me.ID {
			continue
		}

		dist := me.DistanceTo(other)

		if dist < s.NearestDistance {
			s.NearestDistance = dist
			s.NearestPos = other.Pos
			s.HasNearest = true
		}

		if dist < r.CohesionRadius {
			posSum = posSum.Add(other.Pos)
			cohesionCount++
		}

		if dist < r.AlignmentRadius {
			velSum = velSum.Add(other.Vel)
			s.AlignmentCount++
		}
	}

	s.TooNear = !s.HasNearest || s.NearestDistance < r.SeparationDistance

	// atan2(0, 0) is 0, so a lonely agent aligns with the x axis
	s.AverageHeading = velSum.Angle()

	if cohesionCount > 0 {
		s.HasCohesion = true
		s.Centroid = posSum.Mul(1 / float64(cohesionCount))
	}

	return s
}
