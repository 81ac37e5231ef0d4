package simulation

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
)

// Viewport is the play field supplied by the presentation layer.
type Viewport struct {
	Width, Height float64
}

// Contains reports whether p lies inside [0, Width] x [0, Height].
func (v Viewport) Contains(p geometry.Vector2D) bool {
	return p.X >= 0 && p.X <= v.Width && p.Y >= 0 && p.Y <= v.Height
}

// randomInset returns a uniform point of the rectangle spanning 10% to 90% of
// each dimension.
func (v Viewport) randomInset(rng *rand.Rand) geometry.Vector2D {
	return geometry.Vector2D{
		X: v.Width*0.1 + rng.Float64()*v.Width*0.8,
		Y: v.Height*0.1 + rng.Float64()*v.Height*0.8,
	}
}
