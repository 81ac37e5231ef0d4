package ui

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Slider is a horizontal bar selecting a value in [Min, Max].
// With a Step greater than zero the value snaps to multiples of Step.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	Step     float64
	X, Y     float64
	W, H     float64

	// OnChange fires when the user drags the slider, not on Set.
	OnChange func(v float64)
}

// NewSlider creates a slider of width w at (x, y).
func NewSlider(x, y, w float64, label string, min, max, value, step float64) *Slider {
	s := &Slider{
		Label: label,
		Min:   min,
		Max:   max,
		Step:  step,
		X:     x,
		Y:     y,
		W:     w,
		H:     10,
	}
	s.Set(value)
	return s
}

// Set moves the slider without firing OnChange.
func (s *Slider) Set(v float64) {
	s.Value = s.clamp(v)
}

// Int is the value rounded to the nearest integer.
func (s *Slider) Int() int {
	return int(math.Round(s.Value))
}

func (s *Slider) clamp(v float64) float64 {
	if s.Step > 0 {
		v = s.Min + math.Round((v-s.Min)/s.Step)*s.Step
	}
	return math.Max(s.Min, math.Min(s.Max, v))
}

func (s *Slider) contains(x, y float64) bool {
	return x >= s.X && x <= s.X+s.W && y >= s.Y && y <= s.Y+s.H
}

// Update checks for mouse interaction
func (s *Slider) Update() {
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if !s.contains(float64(mx), float64(my)) {
		return
	}
	p := (float64(mx) - s.X) / s.W
	v := s.clamp(s.Min + p*(s.Max-s.Min))
	if v == s.Value {
		return
	}
	s.Value = v
	if s.OnChange != nil {
		s.OnChange(v)
	}
}

// Draw renders the slider
func (s *Slider) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)

	ratio := (s.Value - s.Min) / (s.Max - s.Min)
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*ratio), float32(s.H), color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)

	ebitenutil.DebugPrintAt(screen, s.format(), int(s.X+s.W)-40, int(s.Y)-15)
}

func (s *Slider) format() string {
	if s.Step >= 1 {
		return fmt.Sprintf("%5d", s.Int())
	}
	return fmt.Sprintf("%5.2f", s.Value)
}

func (s *Slider) height() float64 { return s.H + 25 }

func (s *Slider) moveTo(y float64) { s.Y = y }
