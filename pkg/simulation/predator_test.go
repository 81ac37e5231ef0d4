package simulation

import (
	"math"
	"testing"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
	"github.com/stretchr/testify/assert"
)

func TestPredator_AtEdge(t *testing.T) {
	vp := Viewport{Width: 900, Height: 700}
	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"center", 450, 350, false},
		{"left border", 0, 350, true},
		{"right border minus size", 870, 350, true},
		{"just inside right", 869, 350, false},
		{"top", 450, -1, true},
		{"bottom minus size", 450, 670, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Predator{Agent: *NewAgent(0, tt.x, tt.y, 0, 3), Size: 30}
			assert.Equal(t, tt.want, p.AtEdge(vp))
		})
	}
}

func TestPredator_StepKeepsHeadingInside(t *testing.T) {
	vp := Viewport{Width: 900, Height: 700}
	p := &Predator{Agent: *NewAgent(0, 450, 350, math.Pi/2, 3), Size: 30}

	p.Step(geometry.NewVector(0, 0), vp)

	assert.Equal(t, math.Pi/2, p.Angle, "only a border makes it turn")
	assert.InDelta(t, 353, p.Pos.Y, 1e-9)
}

func TestPredator_Catches(t *testing.T) {
	p := &Predator{Agent: *NewAgent(0, 0, 0, 0, 3)}

	assert.True(t, p.Catches(NewAgent(1, 6, 7, 0, 1), 10))
	assert.False(t, p.Catches(NewAgent(1, 6, 8, 0, 1), 10), "the kill radius is exclusive")
}

func TestPredator_RecentlyKilled(t *testing.T) {
	p := &Predator{}
	assert.False(t, p.RecentlyKilled(testEpoch), "no kill yet")

	p.recordKill(testEpoch)
	assert.True(t, p.RecentlyKilled(testEpoch.Add(100*time.Millisecond)))
	assert.False(t, p.RecentlyKilled(testEpoch.Add(time.Second)))
}
