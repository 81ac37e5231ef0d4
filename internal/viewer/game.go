package viewer

import (
	"fmt"
	"image/color"
	"math"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/ui"
)

// PanelWidth is the width of the control panel, right of the field.
const PanelWidth = 260

const (
	maxSwarmSize = 400
	maxPriority  = 15
	minSpeed     = 1
	maxSpeed     = 7
)

var (
	whiteImage      = ebiten.NewImage(3, 3)
	backgroundColor = color.RGBA{R: 10, G: 10, B: 30, A: 255}
	targetColor     = color.RGBA{R: 50, G: 255, B: 50, A: 255}
	predatorColor   = color.RGBA{R: 255, G: 50, B: 50, A: 255}
	feastColor      = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	awarenessColor  = color.RGBA{R: 255, G: 50, B: 50, A: 80}
)

func init() {
	whiteImage.Fill(color.RGBA{R: 100, G: 200, B: 255, A: 255})
}

// Game renders a running simulation and turns input into setter calls.
type Game struct {
	sim   *simulation.Simulation
	swarm *simulation.SwarmState
	cfg   *simulation.Config

	snap      simulation.Snapshot
	catalogue []simulation.EscapeStrategy
	escapeIdx int

	// set by the simulation goroutine when agents are killed, -1 otherwise
	remaining atomic.Int64

	panel               *ui.Panel
	widgetSwarmSize     *ui.Slider
	widgetSpeed         *ui.Slider
	widgetPredatorSpeed *ui.Slider
	widgetAlignment     *ui.Slider
	widgetSeparation    *ui.Slider
	widgetCohesion      *ui.Slider
	widgetPredator      *ui.Checkbox
	widgetLethal        *ui.Checkbox
	widgetAwareness     *ui.Checkbox
	widgetEscape        *ui.Button

	// Timing instrumentation
	drawAvg float64 // Rolling average in ms
}

// NewGame wires the control panel to sim. sim should already be started.
func NewGame(sim *simulation.Simulation) *Game {
	cfg := sim.Config()
	g := &Game{
		sim:       sim,
		swarm:     sim.Swarm(),
		cfg:       cfg,
		catalogue: simulation.EscapeCatalogue(cfg.HoldInterval()),
	}
	g.remaining.Store(-1)
	g.escapeIdx = g.catalogueIndex(g.swarm.EscapeStrategy())
	g.snap = g.swarm.Snapshot(time.Now())

	sim.OnAgentsKilled(func(_, remaining int) {
		g.remaining.Store(int64(remaining))
	})

	panel := ui.NewPanel(cfg.WorldWidth, 0, PanelWidth, cfg.WorldHeight, "Swarm escape")

	panel.AddSection("Swarm")
	g.widgetSwarmSize = panel.AddSlider("Swarm size", 0, maxSwarmSize, float64(cfg.SwarmSize), 1)
	g.widgetSwarmSize.OnChange = func(v float64) { g.swarm.SetSwarmSize(int(v)) }
	g.widgetSpeed = panel.AddSlider("Speed", minSpeed, maxSpeed, cfg.Speed, 1)
	g.widgetSpeed.OnChange = g.swarm.SetSpeed

	panel.AddSection("Priorities")
	g.widgetAlignment = panel.AddSlider("Alignment", 0, maxPriority, float64(cfg.AlignmentPriority), 1)
	g.widgetAlignment.OnChange = func(v float64) { g.swarm.SetAlignmentPriority(int(v)) }
	g.widgetSeparation = panel.AddSlider("Separation", 0, maxPriority, float64(cfg.SeparationPriority), 1)
	g.widgetSeparation.OnChange = func(v float64) { g.swarm.SetSeparationPriority(int(v)) }
	g.widgetCohesion = panel.AddSlider("Cohesion", 0, maxPriority, float64(cfg.CohesionPriority), 1)
	g.widgetCohesion.OnChange = func(v float64) { g.swarm.SetCohesionPriority(int(v)) }

	panel.AddSection("Predator")
	g.widgetPredator = panel.AddCheckbox("Active (P)", cfg.PredatorActive)
	g.widgetPredator.OnChange = g.swarm.SetPredatorActive
	g.widgetLethal = panel.AddCheckbox("Lethal (L)", cfg.PredatorLethal)
	g.widgetLethal.OnChange = g.swarm.SetPredatorLethal
	g.widgetAwareness = panel.AddCheckbox("Show awareness radius", false)
	g.widgetPredatorSpeed = panel.AddSlider("Predator speed", minSpeed, maxSpeed, cfg.PredatorSpeed, 1)
	g.widgetPredatorSpeed.OnChange = g.swarm.SetPredatorSpeed
	g.widgetEscape = panel.AddButton("Escape strategy (Tab)", g.catalogue[g.escapeIdx].Title(), g.nextEscape)

	g.panel = panel
	return g
}

func (g *Game) catalogueIndex(current simulation.EscapeStrategy) int {
	for i, s := range g.catalogue {
		if s.Title() == current.Title() {
			g.catalogue[i] = current
			return i
		}
	}
	g.catalogue = append(g.catalogue, current)
	return len(g.catalogue) - 1
}

func (g *Game) nextEscape() {
	g.escapeIdx = (g.escapeIdx + 1) % len(g.catalogue)
	next := g.catalogue[g.escapeIdx]
	g.swarm.SetEscapeStrategy(next)
	g.widgetEscape.Text = next.Title()
}

// ============================================================================
// Input
// ============================================================================

func (g *Game) Update() error {
	g.panel.Update()
	g.handleKeys()
	g.handlePointer()

	if remaining := g.remaining.Swap(-1); remaining >= 0 {
		g.widgetSwarmSize.Set(float64(remaining))
	}

	// redraw only what the simulation completed since the last frame
	select {
	case <-g.sim.Ticks():
		g.snap = g.swarm.Snapshot(time.Now())
	default:
	}
	return nil
}

func (g *Game) handleKeys() {
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	step := func(s *ui.Slider, delta float64, apply func(float64)) {
		if shift {
			delta = -delta
		}
		s.Set(s.Value + delta)
		apply(s.Value)
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.widgetSwarmSize.Set(g.widgetSwarmSize.Value + 10)
		g.swarm.SetSwarmSize(g.widgetSwarmSize.Int())
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.widgetSwarmSize.Set(g.widgetSwarmSize.Value - 10)
		g.swarm.SetSwarmSize(g.widgetSwarmSize.Int())
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual), inpututil.IsKeyJustPressed(ebiten.KeyNumpadAdd):
		g.widgetSpeed.Set(g.widgetSpeed.Value + 1)
		g.swarm.SetSpeed(g.widgetSpeed.Value)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus), inpututil.IsKeyJustPressed(ebiten.KeyNumpadSubtract):
		g.widgetSpeed.Set(g.widgetSpeed.Value - 1)
		g.swarm.SetSpeed(g.widgetSpeed.Value)
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.widgetPredator.Set(!g.widgetPredator.Value)
		g.swarm.SetPredatorActive(g.widgetPredator.Value)
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		g.widgetLethal.Set(!g.widgetLethal.Value)
		g.swarm.SetPredatorLethal(g.widgetLethal.Value)
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.nextEscape()
	case inpututil.IsKeyJustPressed(ebiten.KeyA):
		step(g.widgetAlignment, 1, func(v float64) { g.swarm.SetAlignmentPriority(int(v)) })
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		step(g.widgetSeparation, 1, func(v float64) { g.swarm.SetSeparationPriority(int(v)) })
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		step(g.widgetCohesion, 1, func(v float64) { g.swarm.SetCohesionPriority(int(v)) })
	}
}

// handlePointer toggles the manual target on a click in the field; while
// manual, the target follows the cursor.
func (g *Game) handlePointer() {
	mx, my := ebiten.CursorPosition()
	if g.panel.Contains(mx, my) {
		return
	}
	manual := g.swarm.Target().Manual()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		manual = !manual
		g.swarm.SetManualTarget(manual)
	}
	if manual {
		g.swarm.SetTargetPosition(float64(mx), float64(my))
	}
}

// ============================================================================
// Rendering
// ============================================================================

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(backgroundColor)
	snap := g.snap

	vector.FillCircle(screen, float32(snap.Target.X), float32(snap.Target.Y), 6, targetColor, true)
	if snap.ManualTarget {
		vector.StrokeCircle(screen, float32(snap.Target.X), float32(snap.Target.Y), 10, 1, targetColor, true)
	}

	for i := range snap.Agents {
		drawAgent(screen, &snap.Agents[i])
	}

	if snap.Predator.Active {
		g.drawPredator(screen, snap.Predator)
	}

	g.panel.Draw(screen)

	stats := g.sim.Stats()
	msg := fmt.Sprintf("Agents: %d\nKills:  %d\nEscape: %s\nTarget: %s\n\nFPS: %.2f\nTick: %s\nDraw: %.2fms",
		len(snap.Agents),
		stats.Kills,
		snap.Escape,
		targetMode(snap.ManualTarget),
		ebiten.ActualFPS(),
		stats.LastTick.Round(time.Microsecond),
		g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, 10, 10)
}

func targetMode(manual bool) string {
	if manual {
		return "manual"
	}
	return "auto"
}

func (g *Game) drawPredator(screen *ebiten.Image, p simulation.PredatorSnapshot) {
	clr := predatorColor
	if p.RecentlyKilled {
		clr = feastColor
	}
	vector.FillCircle(screen, float32(p.Pos.X), float32(p.Pos.Y), float32(p.Size/2), clr, true)

	if g.widgetAwareness.Value {
		vector.StrokeCircle(screen, float32(p.Pos.X), float32(p.Pos.Y),
			float32(g.cfg.AwarenessRadius), 1, awarenessColor, true)
	}
}

func drawAgent(screen *ebiten.Image, a *simulation.Agent) {
	angle := a.Angle

	tipX := a.Pos.X + math.Cos(angle)*6
	tipY := a.Pos.Y + math.Sin(angle)*6
	rightX := a.Pos.X + math.Cos(angle+2.5)*5
	rightY := a.Pos.Y + math.Sin(angle+2.5)*5
	leftX := a.Pos.X + math.Cos(angle-2.5)*5
	leftY := a.Pos.Y + math.Sin(angle-2.5)*5

	vertices := []ebiten.Vertex{
		{
			DstX: float32(tipX),
			DstY: float32(tipY),
			SrcX: 1, SrcY: 1,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		},
		{
			DstX: float32(rightX),
			DstY: float32(rightY),
			SrcX: 1, SrcY: 1,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		},
		{
			DstX: float32(leftX),
			DstY: float32(leftY),
			SrcX: 1, SrcY: 1,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		},
	}

	indices := []uint16{0, 1, 2}

	op := &ebiten.DrawTrianglesOptions{}

	screen.DrawTriangles(vertices, indices, whiteImage, op)
}

// Layout gives the field everything left of the panel and reports it to the
// simulation as the viewport.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	fieldWidth := max(outsideWidth-PanelWidth, 1)
	g.panel.Height = float64(outsideHeight)
	if vp := g.swarm.Viewport(); vp.Width != float64(fieldWidth) || vp.Height != float64(outsideHeight) {
		g.swarm.SetViewport(float64(fieldWidth), float64(outsideHeight))
	}
	return outsideWidth, outsideHeight
}
