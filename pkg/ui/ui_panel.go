package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	titleHeight   = 30.0
	sectionHeight = 25.0
	labelHeight   = 15.0
)

// Widget is anything the panel can stack: sliders, checkboxes and buttons.
type Widget interface {
	Update()
	Draw(screen *ebiten.Image)
	height() float64
	moveTo(y float64)
}

// Panel stacks labelled widgets in sections and scrolls with the wheel.
type Panel struct {
	X, Y          float64
	Width, Height float64
	Title         string
	ScrollOffset  float64

	widgets  []Widget
	labels   []string
	sections []panelSection

	// Styling
	BGColor     color.RGBA
	BorderColor color.RGBA
}

type panelSection struct {
	title string
	start int // index of the first widget
}

// NewPanel creates an empty panel
func NewPanel(x, y, width, height float64, title string) *Panel {
	return &Panel{
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		Title:       title,
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
	}
}

// AddSection starts a new section; following widgets belong to it.
func (p *Panel) AddSection(title string) {
	p.sections = append(p.sections, panelSection{title: title, start: len(p.widgets)})
}

// AddSlider adds a slider; step 0 means continuous.
func (p *Panel) AddSlider(label string, min, max, value, step float64) *Slider {
	s := NewSlider(p.X+10, 0, p.Width-20, label, min, max, value, step)
	p.add(label, s)
	return s
}

func (p *Panel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(p.X+p.Width-30, 0, label, value)
	p.add(label, c)
	return c
}

// AddButton adds a full width button below label.
func (p *Panel) AddButton(label, text string, onClick func()) *Button {
	b := NewButton(p.X+10, 0, p.Width-20, 22, text, onClick)
	p.add(label, b)
	return b
}

func (p *Panel) add(label string, w Widget) {
	p.widgets = append(p.widgets, w)
	p.labels = append(p.labels, label)
}

// Contains reports whether the screen point (x, y) lies on the panel.
func (p *Panel) Contains(x, y int) bool {
	fx, fy := float64(x), float64(y)
	return fx >= p.X && fx <= p.X+p.Width && fy >= p.Y && fy <= p.Y+p.Height
}

// rows calls fn with the label row of every section header (widget == -1)
// and every widget, in display order.
func (p *Panel) rows(fn func(widget int, y float64)) {
	y := p.Y + titleHeight - p.ScrollOffset
	next := 0
	for i := range p.widgets {
		for next < len(p.sections) && p.sections[next].start == i {
			fn(-1-next, y)
			y += sectionHeight
			next++
		}
		fn(i, y)
		y += p.widgets[i].height()
	}
	for ; next < len(p.sections); next++ {
		fn(-1-next, y)
		y += sectionHeight
	}
}

func (p *Panel) contentHeight() float64 {
	h := titleHeight + float64(len(p.sections))*sectionHeight
	for _, w := range p.widgets {
		h += w.height()
	}
	return h
}

func (p *Panel) visible(y float64) bool {
	return y >= p.Y+titleHeight-labelHeight && y <= p.Y+p.Height-labelHeight
}

// Update scrolls the panel and dispatches the input to visible widgets.
func (p *Panel) Update() {
	mx, my := ebiten.CursorPosition()
	if _, dy := ebiten.Wheel(); dy != 0 && p.Contains(mx, my) {
		p.ScrollOffset -= dy * 20
		maxScroll := max(p.contentHeight()-p.Height+40, 0)
		p.ScrollOffset = min(max(p.ScrollOffset, 0), maxScroll)
	}

	p.rows(func(i int, y float64) {
		if i < 0 {
			return
		}
		w := p.widgets[i]
		w.moveTo(y + labelHeight)
		if p.visible(y) {
			w.Update()
		}
	})
}

// Draw renders the panel and all visible widgets
func (p *Panel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		p.BGColor, true)
	vector.StrokeRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+10), int(p.Y+5))

	p.rows(func(i int, y float64) {
		if !p.visible(y) {
			return
		}
		if i < 0 {
			vector.FillRect(screen,
				float32(p.X+5), float32(y),
				float32(p.Width-10), 20,
				color.RGBA{R: 60, G: 60, B: 70, A: 255}, true)
			ebitenutil.DebugPrintAt(screen, p.sections[-1-i].title, int(p.X+10), int(y+3))
			return
		}
		ebitenutil.DebugPrintAt(screen, p.labels[i], int(p.X+10), int(y))
		w := p.widgets[i]
		w.moveTo(y + labelHeight)
		w.Draw(screen)
	})
}
