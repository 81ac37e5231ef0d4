package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ErrAlreadyRunning is returned when a simulation is started twice.
var ErrAlreadyRunning = errors.New("simulation already running")

type Option func(*Simulation)

// WithLogger sets the logger of the simulation and of its actor system.
func WithLogger(l log.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithRand seeds every random source of the simulation from r.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulation) { s.rng = r }
}

// WithClock replaces time.Now as the source of tick timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) { s.now = now }
}

// Stats are the counters of a simulation since it was created.
type Stats struct {
	Ticks    uint64
	Kills    uint64
	LastTick time.Duration
}

// Simulation drives a SwarmState at a fixed tick rate and notifies the
// presentation layer after every tick.
type Simulation struct {
	RunID uuid.UUID

	cfg    *Config
	rules  tickRules
	swarm  *SwarmState
	logger log.Logger
	rng    *rand.Rand
	now    func() time.Time

	observersMu sync.Mutex
	onTick      []func()
	onKilled    []func(killed, remaining int)
	ticks       chan struct{}

	ticksRun atomic.Uint64
	kills    atomic.Uint64
	lastTick atomic.Int64
	running  atomic.Bool

	// --- Telemetry ---
	ticksSinceLog atomic.Int64
	killsSinceLog atomic.Int64
	lastLogTime   time.Time // owned by Run

	lifecycleMu sync.Mutex
	system      actor.ActorSystem
	cancel      context.CancelFunc
	done        chan struct{}
}

// New validates cfg and builds a simulation populated with cfg.SwarmSize agents.
func New(cfg *Config, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind, err := ParseEscapeKind(cfg.EscapeStrategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s := &Simulation{
		RunID:  uuid.New(),
		cfg:    cfg,
		rules:  newTickRules(cfg),
		logger: log.DefaultLogger,
		now:    time.Now,
		ticks:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = newRand()
	}

	escape, err := NewEscapeStrategy(kind, cfg.EscapeBeta, cfg.HoldInterval(), s.childRand())
	if err != nil {
		return nil, err
	}
	s.swarm = newSwarmState(cfg, escape, s.childRand(), s.logger)
	s.swarm.SetSwarmSize(cfg.SwarmSize)
	return s, nil
}

// childRand derives an independent source, so that every goroutine owns its own.
func (s *Simulation) childRand() *rand.Rand {
	return rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))
}

// Swarm gives access to the setters and to Snapshot.
func (s *Simulation) Swarm() *SwarmState {
	return s.swarm
}

func (s *Simulation) Config() *Config {
	return s.cfg
}

// ============================================================================
// Notifications
// ============================================================================

// OnTick registers fn to be called synchronously after every tick.
// A slow fn slows the simulation down.
func (s *Simulation) OnTick(fn func()) {
	s.observersMu.Lock()
	s.onTick = append(s.onTick, fn)
	s.observersMu.Unlock()
}

// OnAgentsKilled registers fn to be called once per tick that removed agents.
func (s *Simulation) OnAgentsKilled(fn func(killed, remaining int)) {
	s.observersMu.Lock()
	s.onKilled = append(s.onKilled, fn)
	s.observersMu.Unlock()
}

// Ticks signals completed ticks. It holds at most one pending signal: ticks
// completed while a signal is pending are merged into it.
func (s *Simulation) Ticks() <-chan struct{} {
	return s.ticks
}

func (s *Simulation) notify(killed, remaining int) {
	s.observersMu.Lock()
	onTick := s.onTick
	onKilled := s.onKilled
	s.observersMu.Unlock()

	if killed > 0 {
		for _, fn := range onKilled {
			fn(killed, remaining)
		}
	}
	for _, fn := range onTick {
		fn()
	}

	select {
	case s.ticks <- struct{}{}:
	default:
		// a render is already pending
	}
}

// ============================================================================
// Loop
// ============================================================================

// Step runs a single tick at now. It is safe to call while Run is active;
// the two ticks then serialise on the structural lock.
func (s *Simulation) Step(now time.Time) {
	start := time.Now()
	killed, remaining := s.swarm.tick(now, s.rules)
	s.lastTick.Store(int64(time.Since(start)))
	s.ticksRun.Add(1)
	s.ticksSinceLog.Add(1)

	if killed > 0 {
		s.kills.Add(uint64(killed))
		s.killsSinceLog.Add(int64(killed))
		s.logger.Debugf("predator caught %d agents, %d left", killed, remaining)
	}
	s.notify(killed, remaining)
}

// Run ticks until ctx is cancelled, sleeping a fixed frame duration between
// ticks. A tick that overruns is not caught up. Cancellation is a normal
// shutdown and returns nil.
func (s *Simulation) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	frame := s.cfg.FrameDuration()
	s.logger.Infof("simulation %s running at %d ticks/s with %d agents",
		s.RunID, s.cfg.FrameRate, s.swarm.Len())
	s.lastLogTime = time.Now()

	timer := time.NewTimer(frame)
	defer timer.Stop()
	for {
		s.Step(s.now())
		s.logTelemetry()

		timer.Reset(frame)
		select {
		case <-ctx.Done():
			s.logger.Infof("simulation %s stopped after %d ticks", s.RunID, s.ticksRun.Load())
			return nil
		case <-timer.C:
		}
	}
}

func (s *Simulation) logTelemetry() {
	if time.Since(s.lastLogTime) < time.Second {
		return
	}
	s.logger.Infof("📊 TICK RATE: %d/sec | Agents: %d | Kills: %d (total %d)",
		s.ticksSinceLog.Swap(0), s.swarm.Len(), s.killsSinceLog.Swap(0), s.kills.Load())
	s.lastLogTime = time.Now()
}

// Stats returns the counters accumulated so far.
func (s *Simulation) Stats() Stats {
	return Stats{
		Ticks:    s.ticksRun.Load(),
		Kills:    s.kills.Load(),
		LastTick: time.Duration(s.lastTick.Load()),
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Start boots the actor system that moves the target and launches Run in
// its own goroutine.
func (s *Simulation) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.system != nil || s.running.Load() {
		return ErrAlreadyRunning
	}

	system, err := actor.NewActorSystem("flock-"+s.RunID.String(),
		actor.WithLogger(s.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("failed to start actor system: %w", err)
	}

	mover := newTargetMover(s.swarm.target, s.swarm.Viewport, s.childRand())
	pid, err := system.Spawn(ctx, "target-mover", mover)
	if err != nil {
		_ = system.Stop(ctx)
		return fmt.Errorf("failed to spawn target mover: %w", err)
	}
	if err := system.Schedule(ctx, new(emptypb.Empty), pid, s.cfg.TargetReposition()); err != nil {
		_ = system.Stop(ctx)
		return fmt.Errorf("failed to schedule target reposition: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Run(runCtx); err != nil {
			s.logger.Errorf("simulation loop: %v", err)
		}
	}()

	s.system = system
	s.cancel = cancel
	s.done = done
	return nil
}

// Stop ends the loop, waits for it, then stops the actor system.
// It is a no-op on a simulation that was not started.
func (s *Simulation) Stop(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.system == nil {
		return nil
	}

	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	err := s.system.Stop(ctx)
	s.system = nil
	s.cancel = nil
	s.done = nil
	if err != nil {
		return fmt.Errorf("failed to stop actor system: %w", err)
	}
	return nil
}
