package simulation

import (
	"testing"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
	"github.com/stretchr/testify/assert"
)

func TestTargetController_Reposition(t *testing.T) {
	vp := Viewport{Width: 900, Height: 700}
	rng := seededRand(4)
	tc := NewTargetController(geometry.NewVector(0, 0))

	for range 500 {
		assert.True(t, tc.Reposition(vp, rng))
		p := tc.Position()
		assert.GreaterOrEqual(t, p.X, 90.0)
		assert.LessOrEqual(t, p.X, 810.0)
		assert.GreaterOrEqual(t, p.Y, 70.0)
		assert.LessOrEqual(t, p.Y, 630.0)
	}
}

func TestTargetController_ManualOverride(t *testing.T) {
	vp := Viewport{Width: 900, Height: 700}
	tc := NewTargetController(geometry.NewVector(1, 2))

	tc.SetManual(true)
	assert.True(t, tc.Manual())
	assert.False(t, tc.Reposition(vp, seededRand(4)), "skipped while manual")
	assert.Equal(t, geometry.NewVector(1, 2), tc.Position())

	tc.SetPosition(geometry.NewVector(-5, 10000))
	assert.Equal(t, geometry.NewVector(-5, 10000), tc.Position())

	tc.SetManual(false)
	assert.True(t, tc.Reposition(vp, seededRand(4)))
	assert.True(t, vp.Contains(tc.Position()))
}
