package simulation

import (
	"math/rand/v2"
	"sync"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/emptypb"
)

// TargetController owns the point the swarm heads to.
// Writers (the periodic mover and the pointer) and the loop serialise on mu,
// the last write wins.
type TargetController struct {
	mu     sync.Mutex
	pos    geometry.Vector2D
	manual bool
}

func NewTargetController(pos geometry.Vector2D) *TargetController {
	return &TargetController{pos: pos}
}

// Position returns the current target.
func (t *TargetController) Position() geometry.Vector2D {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

// Manual reports whether the automatic repositioning is suspended.
func (t *TargetController) Manual() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.manual
}

func (t *TargetController) SetManual(manual bool) {
	t.mu.Lock()
	t.manual = manual
	t.mu.Unlock()
}

// SetPosition stores pos as is, it is not checked against the viewport.
func (t *TargetController) SetPosition(pos geometry.Vector2D) {
	t.mu.Lock()
	t.pos = pos
	t.mu.Unlock()
}

// Reposition moves the target to a random point of the inner 80% of vp,
// unless manual override is on. It reports whether the target moved.
func (t *TargetController) Reposition(vp Viewport, rng *rand.Rand) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.manual {
		return false
	}
	t.pos = vp.randomInset(rng)
	return true
}

// ============================================================================
// Target mover actor
// ============================================================================

// targetMover is the only periodic writer of the target. It repositions once
// when started, then on every reposition message scheduled by the engine.
type targetMover struct {
	target   *TargetController
	viewport func() Viewport
	rng      *rand.Rand
	moves    int
}

var _ actor.Actor = (*targetMover)(nil)

func newTargetMover(target *TargetController, viewport func() Viewport, rng *rand.Rand) *targetMover {
	return &targetMover{
		target:   target,
		viewport: viewport,
		rng:      rng,
	}
}

func (m *targetMover) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Debugf("target mover %s starting", ctx.ActorName())
	return nil
}

func (m *targetMover) Receive(ctx *actor.ReceiveContext) {
	switch ctx.Message().(type) {
	case *goaktpb.PostStart:
		m.move(ctx)
	case *emptypb.Empty:
		m.move(ctx)
	default:
		ctx.Unhandled()
	}
}

func (m *targetMover) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Debugf("target mover stopped after %d moves", m.moves)
	return nil
}

func (m *targetMover) move(ctx *actor.ReceiveContext) {
	if !m.target.Reposition(m.viewport(), m.rng) {
		return
	}
	m.moves++
	ctx.Logger().Debugf("target moved to %s", m.target.Position())
}
