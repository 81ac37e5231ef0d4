package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliderSetSnapsAndClamps(t *testing.T) {
	s := NewSlider(0, 0, 100, "size", 0, 400, 150, 1)
	assert.Equal(t, 150.0, s.Value)

	s.Set(12.6)
	assert.Equal(t, 13.0, s.Value)
	assert.Equal(t, 13, s.Int())

	s.Set(-5)
	assert.Equal(t, 0.0, s.Value)
	s.Set(1000)
	assert.Equal(t, 400.0, s.Value)
}

func TestSliderContinuous(t *testing.T) {
	s := NewSlider(0, 0, 100, "beta", 0, 1, 0.25, 0)
	s.Set(0.333)
	assert.InDelta(t, 0.333, s.Value, 1e-12)
	assert.Equal(t, " 0.33", s.format())
}

func TestSliderSetDoesNotFireOnChange(t *testing.T) {
	s := NewSlider(0, 0, 100, "speed", 1, 7, 3, 1)
	fired := false
	s.OnChange = func(float64) { fired = true }
	s.Set(5)
	assert.False(t, fired)
	assert.Equal(t, "    5", s.format())
}

func TestPanelRowsOrder(t *testing.T) {
	p := NewPanel(0, 0, 200, 600, "test")
	p.AddSection("a")
	p.AddSlider("one", 0, 10, 5, 1)
	p.AddCheckbox("two", true)
	p.AddSection("b")
	p.AddButton("three", "go", nil)
	p.AddSection("empty")

	var order []int
	var ys []float64
	p.rows(func(i int, y float64) {
		order = append(order, i)
		ys = append(ys, y)
	})

	assert.Equal(t, []int{-1, 0, 1, -2, 2, -3}, order)
	for i := 1; i < len(ys); i++ {
		assert.Greater(t, ys[i], ys[i-1])
	}
	assert.Equal(t, titleHeight, ys[0])

	last := ys[len(ys)-1] + sectionHeight
	assert.InDelta(t, p.contentHeight(), last, 1e-9)
}

func TestPanelScrollShiftsRows(t *testing.T) {
	p := NewPanel(0, 0, 200, 600, "test")
	p.AddSlider("one", 0, 10, 5, 1)
	p.ScrollOffset = 40

	p.rows(func(_ int, y float64) {
		assert.Equal(t, titleHeight-40, y)
	})
	assert.False(t, p.visible(titleHeight-40))
}

func TestPanelContains(t *testing.T) {
	p := NewPanel(900, 0, 260, 700, "test")
	assert.True(t, p.Contains(900, 0))
	assert.True(t, p.Contains(1000, 350))
	assert.False(t, p.Contains(899, 10))
	assert.False(t, p.Contains(1000, 701))
}

func TestCheckboxSet(t *testing.T) {
	c := NewCheckbox(0, 0, "lethal", false)
	fired := false
	c.OnChange = func(bool) { fired = true }
	c.Set(true)
	assert.True(t, c.Value)
	assert.False(t, fired)
}
