package simulation

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tochemey/goakt/v3/log"
)

var (
	testEpoch     = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	discardLogger = log.DiscardLogger
)

func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*31+7))
}

// newTestSimulation builds a deterministic simulation from the default
// configuration, adjusted by tweak.
func newTestSimulation(t *testing.T, tweak func(*Config)) *Simulation {
	t.Helper()
	cfg := DefaultConfig()
	if tweak != nil {
		tweak(cfg)
	}
	sim, err := New(cfg, WithLogger(discardLogger), WithRand(seededRand(42)))
	require.NoError(t, err)
	return sim
}

// placeAgents replaces the swarm with agents at the given positions.
func placeAgents(sim *Simulation, positions ...geometry.Vector2D) {
	swarm := sim.Swarm()
	swarm.SetSwarmSize(len(positions))
	swarm.mu.Lock()
	defer swarm.mu.Unlock()
	for i, p := range positions {
		swarm.agents[i].Pos = p
	}
}

func placePredator(sim *Simulation, pos geometry.Vector2D) {
	swarm := sim.Swarm()
	swarm.mu.Lock()
	swarm.predator.Pos = pos
	swarm.predator.Speed = 0
	swarm.mu.Unlock()
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(*Config)
	}{
		{"unknown escape", func(c *Config) { c.EscapeStrategy = "teleport" }},
		{"negative swarm", func(c *Config) { c.SwarmSize = -1 }},
		{"zero frame rate", func(c *Config) { c.FrameRate = 0 }},
		{"damper above one", func(c *Config) { c.SteeringDamper = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.tweak(cfg)
			_, err := New(cfg, WithLogger(discardLogger))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	sim := newTestSimulation(t, nil)

	assert.Equal(t, 150, sim.Swarm().Len())
	assert.NotEqual(t, uuid.Nil, sim.RunID)
	assert.Equal(t, Viewport{Width: 900, Height: 700}, sim.Swarm().Viewport())
}

func TestStep_PredatorKills(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) {
		c.SwarmSize = 0
		c.PredatorActive = true
		c.PredatorLethal = true
	})
	predatorPos := geometry.NewVector(450, 350)
	placePredator(sim, predatorPos)
	placeAgents(sim,
		predatorPos.Add(geometry.NewVector(5, 0)),
		geometry.NewVector(100, 100),
		predatorPos.Add(geometry.NewVector(-3, 4)),
	)
	survivor := sim.Swarm().Snapshot(testEpoch).Agents[1].ID

	var calls, lastKilled, lastRemaining int
	sim.OnAgentsKilled(func(killed, remaining int) {
		calls++
		lastKilled, lastRemaining = killed, remaining
	})

	sim.Step(testEpoch)

	assert.Equal(t, 1, calls, "one notification for the whole tick")
	assert.Equal(t, 2, lastKilled)
	assert.Equal(t, 1, lastRemaining)
	snap := sim.Swarm().Snapshot(testEpoch)
	require.Len(t, snap.Agents, 1)
	assert.Equal(t, survivor, snap.Agents[0].ID)
	assert.Equal(t, uint64(2), sim.Stats().Kills)

	assert.True(t, snap.Predator.RecentlyKilled)
	assert.True(t, sim.Swarm().Snapshot(testEpoch.Add(KillCelebration-time.Millisecond)).Predator.RecentlyKilled)
	assert.False(t, sim.Swarm().Snapshot(testEpoch.Add(KillCelebration)).Predator.RecentlyKilled)

	sim.Step(testEpoch.Add(time.Second / 120))
	assert.Equal(t, 1, calls, "no kill, no notification")
}

func TestStep_HarmlessPredator(t *testing.T) {
	tests := []struct {
		name           string
		active, lethal bool
	}{
		{"inactive", false, true},
		{"not lethal", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSimulation(t, func(c *Config) {
				c.SwarmSize = 0
				c.PredatorActive = tt.active
				c.PredatorLethal = tt.lethal
			})
			predatorPos := geometry.NewVector(450, 350)
			placePredator(sim, predatorPos)
			placeAgents(sim, predatorPos.Add(geometry.NewVector(1, 1)))

			sim.Step(testEpoch)

			assert.Equal(t, 1, sim.Swarm().Len())
			assert.Zero(t, sim.Stats().Kills)
			assert.True(t, sim.Swarm().predator.LastKill().IsZero())
		})
	}
}

func TestStep_KillForgetsEscapeMemory(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) {
		c.SwarmSize = 0
		c.PredatorActive = true
		c.PredatorLethal = true
	})
	strategy := NewExplosion(testHold, seededRand(2)).(*holdStrategy)
	sim.Swarm().SetEscapeStrategy(strategy)
	predatorPos := geometry.NewVector(450, 350)
	placePredator(sim, predatorPos)
	placeAgents(sim, predatorPos.Add(geometry.NewVector(40, 0)), predatorPos.Add(geometry.NewVector(0, 60)))

	sim.Step(testEpoch)
	require.Equal(t, 2, strategy.Held(), "both agents see the predator")

	// move the first agent onto the predator
	sim.Swarm().mu.Lock()
	sim.Swarm().agents[0].Pos = predatorPos
	sim.Swarm().mu.Unlock()

	sim.Step(testEpoch.Add(10 * time.Millisecond))

	assert.Equal(t, 1, sim.Swarm().Len())
	assert.Equal(t, 1, strategy.Held())
}

func TestStep_AgentHeadsForTarget(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) { c.SwarmSize = 0 })
	placeAgents(sim, geometry.NewVector(100, 100))
	target := geometry.NewVector(700, 500)
	sim.Swarm().SetManualTarget(true)
	sim.Swarm().SetTargetPosition(target.X, target.Y)

	start := sim.Swarm().Snapshot(testEpoch).Agents[0].Pos.DistanceTo(target)
	now := testEpoch
	for range 200 {
		now = now.Add(time.Second / 120)
		sim.Step(now)
	}

	end := sim.Swarm().Snapshot(now).Agents[0]
	assert.Less(t, end.Pos.DistanceTo(target), start-300)
	assert.True(t, end.Pos.IsFinite())
}

func TestStep_PredatorSnapsToTargetAtEdge(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) {
		c.SwarmSize = 0
		c.PredatorActive = true
	})
	swarm := sim.Swarm()
	swarm.SetManualTarget(true)
	swarm.SetTargetPosition(450, 350)

	swarm.mu.Lock()
	swarm.predator.Pos = geometry.NewVector(0, 350)
	swarm.predator.Angle = 3 // heading out of the field
	swarm.mu.Unlock()

	sim.Step(testEpoch)

	p := swarm.Snapshot(testEpoch).Predator
	assert.InDelta(t, 0, p.Angle, 1e-9)
	assert.InDelta(t, 3, p.Pos.X, 1e-9, "moved by the predator speed")
}

func TestStep_NotificationsAndCoalescing(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) { c.SwarmSize = 5 })
	var ticks int
	sim.OnTick(func() { ticks++ })

	for i := range 3 {
		sim.Step(testEpoch.Add(time.Duration(i) * time.Millisecond))
	}

	assert.Equal(t, 3, ticks)
	assert.Len(t, sim.Ticks(), 1, "undrained ticks collapse into one pending signal")
	<-sim.Ticks()
	assert.Empty(t, sim.Ticks())
	assert.Equal(t, uint64(3), sim.Stats().Ticks)
}

func TestRun_EmptySwarmKeepsTicking(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) {
		c.SwarmSize = 0
		c.PredatorActive = false
	})
	var ticks atomic.Int64
	sim.OnTick(func() {
		ticks.Add(1)
		assert.Zero(t, sim.Swarm().Len())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err := sim.Run(ctx)

	assert.NoError(t, err, "cancellation is a clean shutdown")
	assert.Greater(t, ticks.Load(), int64(5))
	assert.Equal(t, uint64(ticks.Load()), sim.Stats().Ticks)
}

func TestRun_AlreadyRunning(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) { c.SwarmSize = 0 })
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sim.Run(ctx)
	}()
	require.Eventually(t, func() bool { return sim.Stats().Ticks > 0 }, time.Second, time.Millisecond)

	assert.ErrorIs(t, sim.Run(ctx), ErrAlreadyRunning)

	cancel()
	wg.Wait()
}

func TestStartStop(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) {
		c.SwarmSize = 20
		c.TargetRepositionMs = 50
	})
	ctx := context.Background()
	center := sim.Swarm().Target().Position()

	require.NoError(t, sim.Start(ctx))
	assert.ErrorIs(t, sim.Start(ctx), ErrAlreadyRunning)

	require.Eventually(t, func() bool {
		return sim.Swarm().Target().Position() != center
	}, 2*time.Second, 10*time.Millisecond, "the mover repositions the target")
	require.Eventually(t, func() bool { return sim.Stats().Ticks > 10 }, 2*time.Second, 10*time.Millisecond)

	vp := sim.Swarm().Viewport()
	pos := sim.Swarm().Target().Position()
	assert.GreaterOrEqual(t, pos.X, 0.1*vp.Width)
	assert.LessOrEqual(t, pos.X, 0.9*vp.Width)

	require.NoError(t, sim.Stop(ctx))
	stopped := sim.Stats().Ticks
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, sim.Stats().Ticks, "no tick after Stop")

	assert.NoError(t, sim.Stop(ctx), "stopping twice is a no-op")
}

func TestStep_AlongsideRun(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) { c.SwarmSize = 10 })
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sim.Run(ctx)
	}()

	for i := range 50 {
		sim.Step(testEpoch.Add(time.Duration(i) * time.Millisecond))
	}
	cancel()
	wg.Wait()

	assert.Greater(t, sim.Stats().Ticks, uint64(50))
}

func TestStartStop_ConcurrentSetters(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) {
		c.SwarmSize = 60
		c.PredatorActive = true
		c.PredatorLethal = true
		c.PredatorSpeed = 6
		c.KillRadius = 40
		c.EscapeStrategy = EscapeRightAngle.String()
		c.HoldIntervalMs = 20
		c.TargetRepositionMs = 20
	})
	swarm := sim.Swarm()
	catalogue := EscapeCatalogue(sim.Config().HoldInterval())
	ctx := context.Background()

	require.NoError(t, sim.Start(ctx))

	done := make(chan struct{})
	var wg sync.WaitGroup
	hammer := func(fn func(i int)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-done:
					return
				default:
				}
				fn(i)
			}
		}()
	}

	hammer(func(i int) { swarm.SetSwarmSize(i % 80) })
	hammer(func(i int) { swarm.SetEscapeStrategy(catalogue[i%len(catalogue)]) })
	hammer(func(i int) {
		swarm.SetSpeed(float64(1 + i%7))
		swarm.SetPredatorSpeed(float64(1 + i%7))
		swarm.SetAlignmentPriority(i % 16)
		swarm.SetSeparationPriority((i + 5) % 16)
		swarm.SetCohesionPriority((i + 10) % 16)
	})
	hammer(func(i int) {
		swarm.SetManualTarget(i%3 == 0)
		swarm.SetTargetPosition(float64(i%900), float64(i%700))
		swarm.SetViewport(float64(800+i%100), float64(600+i%100))
	})
	hammer(func(int) {
		snap := swarm.Snapshot(time.Now())
		for _, a := range snap.Agents {
			if !a.Pos.IsFinite() || math.IsNaN(a.Angle) {
				t.Errorf("agent %d has a non finite state: %v %v", a.ID, a.Pos, a.Angle)
			}
		}
	})

	start := sim.Stats().Ticks
	require.Eventually(t, func() bool { return sim.Stats().Ticks > start+10 },
		2*time.Second, 5*time.Millisecond, "the loop keeps ticking under contention")
	close(done)
	wg.Wait()

	require.NoError(t, sim.Stop(ctx))

	snap := swarm.Snapshot(time.Now())
	assert.LessOrEqual(t, len(snap.Agents), 80)
	for _, a := range snap.Agents {
		assert.True(t, a.Pos.IsFinite())
		assert.False(t, math.IsNaN(a.Angle))
	}
}
