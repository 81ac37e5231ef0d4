package simulation

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/geometry"
)

// ErrUnknownEscapeStrategy is returned by ParseEscapeKind.
var ErrUnknownEscapeStrategy = errors.New("unknown escape strategy")

// EscapeKind tags the closed set of escape behaviours.
type EscapeKind int

const (
	EscapeNone EscapeKind = iota
	EscapePotentialField
	EscapeRightAngle
	EscapePredictiveRightAngle
	EscapeExplosion
	EscapePredatorDirection
)

var escapeKindNames = map[EscapeKind]string{
	EscapeNone:                 "none",
	EscapePotentialField:       "potential-field",
	EscapeRightAngle:           "right-angle",
	EscapePredictiveRightAngle: "predictive-right-angle",
	EscapeExplosion:            "explosion",
	EscapePredatorDirection:    "predator-direction",
}

func (k EscapeKind) String() string {
	if name, ok := escapeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EscapeKind(%d)", int(k))
}

// ParseEscapeKind maps a configuration name back to its kind.
func ParseEscapeKind(name string) (EscapeKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range escapeKindNames {
		if n == name {
			return k, nil
		}
	}
	return EscapeNone, fmt.Errorf("%w: %q", ErrUnknownEscapeStrategy, name)
}

// PredatorView is the read-only predator state handed to escape strategies.
type PredatorView struct {
	Pos    geometry.Vector2D
	Angle  float64
	Speed  float64
	Active bool
}

// EscapeWorld is everything an escape strategy may look at besides the agent.
type EscapeWorld struct {
	Now             time.Time
	Predator        PredatorView
	AwarenessRadius float64
}

func (w EscapeWorld) predatorDistance(me *Agent) float64 {
	return me.Pos.DistanceTo(w.Predator.Pos)
}

// PredatorInRange reports whether me can see an active predator.
func (w EscapeWorld) PredatorInRange(me *Agent) bool {
	return w.Predator.Active && w.predatorDistance(me) <= w.AwarenessRadius
}

// EscapeStrategy computes a flight direction or abstains.
// Direction, Forget and Reset are only called from inside the tick, under the
// structural lock, so implementations need no locking of their own.
type EscapeStrategy interface {
	Kind() EscapeKind
	Title() string
	// Relative strategies add their direction to the flocking one,
	// absolute ones replace it.
	Relative() bool
	Direction(me *Agent, w EscapeWorld) (geometry.Vector2D, bool)
	// Forget drops any memory held for a removed agent.
	Forget(id AgentID)
	// Reset drops all memory, called when the strategy becomes active.
	Reset()
}

// NewEscapeStrategy builds the variant of the given kind.
// beta only matters for the potential field, hold for the hold-based variants.
// A nil rng gets a randomly seeded source.
func NewEscapeStrategy(kind EscapeKind, beta float64, hold time.Duration, rng *rand.Rand) (EscapeStrategy, error) {
	if rng == nil {
		rng = newRand()
	}
	switch kind {
	case EscapeNone:
		return NoEscape{}, nil
	case EscapePotentialField:
		return PotentialField{Beta: beta}, nil
	case EscapeRightAngle:
		return NewRightAngle(hold, rng), nil
	case EscapePredictiveRightAngle:
		return PredictiveRightAngle{}, nil
	case EscapeExplosion:
		return NewExplosion(hold, rng), nil
	case EscapePredatorDirection:
		return NewPredatorDirection(hold, rng), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownEscapeStrategy, kind)
}

// EscapeCatalogue lists the strategies offered to the user, in display order.
func EscapeCatalogue(hold time.Duration) []EscapeStrategy {
	return []EscapeStrategy{
		PotentialField{Beta: 0.5},
		PotentialField{Beta: 2.0},
		PotentialField{Beta: 5.0},
		NewRightAngle(hold, newRand()),
		PredictiveRightAngle{},
		NewExplosion(hold, newRand()),
		NewPredatorDirection(hold, newRand()),
		NoEscape{},
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// ============================================================================
// Stateless variants
// ============================================================================

// NoEscape never reacts. It is relative, so composing it changes nothing.
type NoEscape struct{}

func (NoEscape) Kind() EscapeKind { return EscapeNone }
func (NoEscape) Title() string    { return "None" }
func (NoEscape) Relative() bool   { return true }
func (NoEscape) Forget(AgentID)   {}
func (NoEscape) Reset()           {}

func (NoEscape) Direction(*Agent, EscapeWorld) (geometry.Vector2D, bool) {
	return geometry.Zero, false
}

// PotentialField pushes straight away from the predator with a strength that
// grows linearly as it gets closer: Beta * (awareness - distance).
type PotentialField struct {
	Beta float64
}

func (p PotentialField) Kind() EscapeKind { return EscapePotentialField }
func (p PotentialField) Title() string    { return fmt.Sprintf("Potential field (beta = %.1f)", p.Beta) }
func (p PotentialField) Relative() bool   { return true }
func (p PotentialField) Forget(AgentID)   {}
func (p PotentialField) Reset()           {}

func (p PotentialField) Direction(me *Agent, w EscapeWorld) (geometry.Vector2D, bool) {
	if !w.Predator.Active {
		return geometry.Zero, false
	}
	dist := w.predatorDistance(me)
	if dist >= w.AwarenessRadius {
		return geometry.Zero, false
	}
	toPredator := me.Pos.AngleTo(w.Predator.Pos)
	return geometry.FromAngle(toPredator).Mul(-p.Beta * (w.AwarenessRadius - dist)), true
}

// PredictiveRightAngle flees perpendicular to the predator heading, choosing
// the side that still increases the distance after one simulated step.
type PredictiveRightAngle struct{}

func (PredictiveRightAngle) Kind() EscapeKind { return EscapePredictiveRightAngle }
func (PredictiveRightAngle) Title() string    { return "Predictive right angle" }
func (PredictiveRightAngle) Relative() bool   { return false }
func (PredictiveRightAngle) Forget(AgentID)   {}
func (PredictiveRightAngle) Reset()           {}

func (PredictiveRightAngle) Direction(me *Agent, w EscapeWorld) (geometry.Vector2D, bool) {
	if !w.PredatorInRange(me) {
		return geometry.Zero, false
	}
	angle := w.Predator.Angle + math.Pi/2

	self := me.Clone()
	predator := NewAgent(0, w.Predator.Pos.X, w.Predator.Pos.Y, w.Predator.Angle, w.Predator.Speed)
	before := self.DistanceTo(predator)

	self.SetAngle(angle)
	self.Update()
	predator.Update()

	if self.DistanceTo(predator) < before {
		angle += math.Pi
	}
	return geometry.FromAngle(angle), true
}

// ============================================================================
// Hold-based variants
// ============================================================================

type heldDecision struct {
	dir     geometry.Vector2D
	expires time.Time
}

// holdStrategy commits an agent to a decision for a fixed interval.
// While the decision is fresh it is returned as is; once expired it is dropped
// and, if the predator is still in range, a new one is taken.
type holdStrategy struct {
	kind     EscapeKind
	title    string
	interval time.Duration
	rng      *rand.Rand
	memory   map[AgentID]heldDecision
	decide   func(me *Agent, w EscapeWorld, rng *rand.Rand) geometry.Vector2D
}

func newHoldStrategy(kind EscapeKind, title string, interval time.Duration, rng *rand.Rand,
	decide func(*Agent, EscapeWorld, *rand.Rand) geometry.Vector2D) *holdStrategy {
	return &holdStrategy{
		kind:     kind,
		title:    title,
		interval: interval,
		rng:      rng,
		memory:   make(map[AgentID]heldDecision),
		decide:   decide,
	}
}

func (h *holdStrategy) Kind() EscapeKind { return h.kind }
func (h *holdStrategy) Title() string    { return h.title }
func (h *holdStrategy) Relative() bool   { return false }

func (h *holdStrategy) Forget(id AgentID) {
	delete(h.memory, id)
}

func (h *holdStrategy) Reset() {
	clear(h.memory)
}

// Held returns how many agents currently carry a decision.
func (h *holdStrategy) Held() int {
	return len(h.memory)
}

func (h *holdStrategy) Direction(me *Agent, w EscapeWorld) (geometry.Vector2D, bool) {
	if d, ok := h.memory[me.ID]; ok {
		if w.Now.Before(d.expires) {
			return d.dir, true
		}
		delete(h.memory, me.ID)
	}
	if !w.PredatorInRange(me) {
		return geometry.Zero, false
	}
	dir := h.decide(me, w, h.rng)
	h.memory[me.ID] = heldDecision{dir: dir, expires: w.Now.Add(h.interval)}
	return dir, true
}

// NewRightAngle flees at plus or minus 90 degrees of the predator heading,
// the side being picked at random.
func NewRightAngle(hold time.Duration, rng *rand.Rand) EscapeStrategy {
	return newHoldStrategy(EscapeRightAngle, "Right angle", hold, rng,
		func(_ *Agent, w EscapeWorld, rng *rand.Rand) geometry.Vector2D {
			offset := math.Pi / 2
			if rng.IntN(2) == 0 {
				offset = -offset
			}
			return geometry.FromAngle(w.Predator.Angle + offset)
		})
}

// NewExplosion scatters every agent in a uniformly random direction.
func NewExplosion(hold time.Duration, rng *rand.Rand) EscapeStrategy {
	return newHoldStrategy(EscapeExplosion, "Explosion", hold, rng,
		func(_ *Agent, _ EscapeWorld, rng *rand.Rand) geometry.Vector2D {
			return geometry.FromAngle(rng.Float64() * geometry.TwoPi)
		})
}

// NewPredatorDirection runs ahead of the predator, along its own heading,
// jittered by up to Pi/8 on each axis so the agents can leave its path.
func NewPredatorDirection(hold time.Duration, rng *rand.Rand) EscapeStrategy {
	return newHoldStrategy(EscapePredatorDirection, "Predator direction", hold, rng,
		func(_ *Agent, w EscapeWorld, rng *rand.Rand) geometry.Vector2D {
			jitter := geometry.Vector2D{
				X: randomSign(rng) * rng.Float64() * math.Pi / 8,
				Y: randomSign(rng) * rng.Float64() * math.Pi / 8,
			}
			return geometry.FromAngle(w.Predator.Angle).Add(jitter)
		})
}

func randomSign(rng *rand.Rand) float64 {
	if rng.IntN(2) == 0 {
		return -1
	}
	return 1
}
