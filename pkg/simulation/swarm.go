package simulation

import (
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
	"github.com/tochemey/goakt/v3/log"
)

// tickRules are the per-tick constants taken from the Config.
type tickRules struct {
	radii          Radii
	targetPriority float64
	damper         float64
	awareness      float64
	killRadius     float64
}

func newTickRules(cfg *Config) tickRules {
	return tickRules{
		radii: Radii{
			SeparationDistance: cfg.SeparationDistance,
			CohesionRadius:     cfg.CohesionRadius,
			AlignmentRadius:    cfg.AlignmentRadius,
		},
		targetPriority: float64(cfg.TargetPriority),
		damper:         cfg.SteeringDamper,
		awareness:      cfg.AwarenessRadius,
		killRadius:     cfg.KillRadius,
	}
}

// SwarmState is the shared simulation context: agents, predator, target and
// the tunable weights. mu is the structural lock; it serialises resizes
// against the tick iterating over the agents.
type SwarmState struct {
	mu     sync.Mutex
	agents []*Agent
	nextID AgentID
	speed  float64
	rng    *rand.Rand // guarded by mu

	predator *Predator
	target   *TargetController

	alignment  atomic.Int32
	separation atomic.Int32
	cohesion   atomic.Int32

	escape   atomic.Pointer[EscapeStrategy]
	viewport atomic.Pointer[Viewport]

	logger log.Logger
}

func newSwarmState(cfg *Config, escape EscapeStrategy, rng *rand.Rand, logger log.Logger) *SwarmState {
	vp := Viewport{Width: cfg.WorldWidth, Height: cfg.WorldHeight}
	s := &SwarmState{
		nextID:   1, // 0 is the predator
		speed:    cfg.Speed,
		rng:      rng,
		predator: newPredator(vp, cfg.PredatorSpeed, cfg.PredatorSize, rng),
		target:   NewTargetController(geometry.NewVector(vp.Width/2, vp.Height/2)),
		logger:   logger,
	}
	s.viewport.Store(&vp)
	s.escape.Store(&escape)
	s.alignment.Store(int32(cfg.AlignmentPriority))
	s.separation.Store(int32(cfg.SeparationPriority))
	s.cohesion.Store(int32(cfg.CohesionPriority))
	s.predator.active.Store(cfg.PredatorActive)
	s.predator.lethal.Store(cfg.PredatorLethal)
	return s
}

// ============================================================================
// Setters
// ============================================================================

// SetSwarmSize grows the swarm with random agents or evicts the oldest ones.
// Evicted agents are forgotten by the active escape strategy.
func (s *SwarmState) SetSwarmSize(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.agents)
	switch {
	case n > before:
		vp := s.Viewport()
		for range n - before {
			s.agents = append(s.agents, newRandomAgent(s.nextID, vp, s.speed, s.rng))
			s.nextID++
		}
	case n < before:
		escape := s.EscapeStrategy()
		drop := before - n
		for _, a := range s.agents[:drop] {
			escape.Forget(a.ID)
		}
		s.agents = slices.Delete(s.agents, 0, drop)
	default:
		return
	}
	s.logger.Infof("swarm resized from %d to %d agents", before, n)
}

// SetSpeed applies v to every agent and to the ones created later.
func (s *SwarmState) SetSpeed(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = v
	for _, a := range s.agents {
		a.Speed = v
	}
}

func (s *SwarmState) SetAlignmentPriority(p int)  { s.alignment.Store(int32(p)) }
func (s *SwarmState) SetSeparationPriority(p int) { s.separation.Store(int32(p)) }
func (s *SwarmState) SetCohesionPriority(p int)   { s.cohesion.Store(int32(p)) }

func (s *SwarmState) SetPredatorActive(active bool) {
	s.predator.active.Store(active)
	s.logger.Infof("predator active: %t", active)
}

func (s *SwarmState) SetPredatorLethal(lethal bool) {
	s.predator.lethal.Store(lethal)
	s.logger.Infof("predator lethal: %t", lethal)
}

func (s *SwarmState) SetPredatorSpeed(v float64) {
	s.mu.Lock()
	s.predator.Speed = v
	s.mu.Unlock()
}

// SetEscapeStrategy swaps the strategy between two ticks. The incoming
// strategy starts with an empty memory.
func (s *SwarmState) SetEscapeStrategy(e EscapeStrategy) {
	if e == nil {
		e = NoEscape{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Reset()
	s.escape.Store(&e)
	s.logger.Infof("escape strategy: %s", e.Title())
}

func (s *SwarmState) SetManualTarget(manual bool) {
	s.target.SetManual(manual)
}

func (s *SwarmState) SetTargetPosition(x, y float64) {
	s.target.SetPosition(geometry.NewVector(x, y))
}

// SetViewport records the bounds supplied by the presentation layer.
func (s *SwarmState) SetViewport(width, height float64) {
	s.viewport.Store(&Viewport{Width: width, Height: height})
}

// ============================================================================
// Getters
// ============================================================================

func (s *SwarmState) EscapeStrategy() EscapeStrategy {
	return *s.escape.Load()
}

func (s *SwarmState) Viewport() Viewport {
	return *s.viewport.Load()
}

func (s *SwarmState) Priorities() Priorities {
	return Priorities{
		Alignment:  int(s.alignment.Load()),
		Separation: int(s.separation.Load()),
		Cohesion:   int(s.cohesion.Load()),
	}
}

func (s *SwarmState) Target() *TargetController {
	return s.target
}

// Len returns the current number of agents.
func (s *SwarmState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agents)
}

// Speed returns the global agent speed.
func (s *SwarmState) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// PredatorSnapshot is the predator as seen by a presenter.
type PredatorSnapshot struct {
	Pos            geometry.Vector2D
	Angle          float64
	Size           float64
	Speed          float64
	Active         bool
	Lethal         bool
	RecentlyKilled bool
}

// Snapshot is a copy of the shared state, safe to keep after the call.
type Snapshot struct {
	Agents       []Agent
	Predator     PredatorSnapshot
	Target       geometry.Vector2D
	ManualTarget bool
	Escape       string
	Priorities   Priorities
	Speed        float64
	Viewport     Viewport
}

// Snapshot copies the state under the structural lock.
func (s *SwarmState) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	agents := make([]Agent, len(s.agents))
	for i, a := range s.agents {
		agents[i] = *a
	}
	p := s.predator
	return Snapshot{
		Agents: agents,
		Predator: PredatorSnapshot{
			Pos:            p.Pos,
			Angle:          p.Angle,
			Size:           p.Size,
			Speed:          p.Speed,
			Active:         p.Active(),
			Lethal:         p.Lethal(),
			RecentlyKilled: p.RecentlyKilled(now),
		},
		Target:       s.target.Position(),
		ManualTarget: s.target.Manual(),
		Escape:       s.EscapeStrategy().Title(),
		Priorities:   s.Priorities(),
		Speed:        s.speed,
		Viewport:     s.Viewport(),
	}
}

// ============================================================================
// Tick
// ============================================================================

// tick moves the predator, steers every agent in order and removes the
// caught ones. Agents are updated in place, so later agents see the new
// positions of earlier ones.
func (s *SwarmState) tick(now time.Time, r tickRules) (killed, remaining int) {
	target := s.target.Position()

	s.mu.Lock()
	defer s.mu.Unlock()

	vp := s.Viewport()
	predator := s.predator
	if predator.Active() {
		predator.Step(target, vp)
	}

	escape := s.EscapeStrategy()
	relative := escape.Relative()
	world := EscapeWorld{
		Now:             now,
		Predator:        predator.View(),
		AwarenessRadius: r.awareness,
	}
	lethal := predator.Active() && predator.Lethal()
	prio := s.Priorities()

	var dead map[AgentID]struct{}
	for _, a := range s.agents {
		if lethal && predator.Catches(a, r.killRadius) {
			if dead == nil {
				dead = make(map[AgentID]struct{})
			}
			dead[a.ID] = struct{}{}
			predator.recordKill(now)
			continue
		}

		summary := ComputeNeighborSummary(a, s.agents, r.radii)
		dir := SeekTarget(a, target, r.targetPriority)
		dir = dir.Add(FlockDirection(a, summary, prio))
		esc, ok := escape.Direction(a, world)
		dir = ComposeEscape(dir, esc, ok, relative)
		Steer(a, dir, r.damper)
	}

	if len(dead) > 0 {
		s.agents = slices.DeleteFunc(s.agents, func(a *Agent) bool {
			if _, ok := dead[a.ID]; ok {
				escape.Forget(a.ID)
				return true
			}
			return false
		})
	}
	return len(dead), len(s.agents)
}
