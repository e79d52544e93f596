package ai

import (
	"image/color"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// goldenAngle spreads consecutive class ids around the hue circle.
const goldenAngle = 137.508

// Palette assigns a stable, distinct box color to each class id.
type Palette struct {
	mu     sync.Mutex
	colors map[int]color.RGBA
}

func NewPalette() *Palette {
	return &Palette{colors: make(map[int]color.RGBA)}
}

func (p *Palette) Color(classID int) color.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.colors[classID]; ok {
		return c
	}

	hue := math.Mod(float64(classID)*goldenAngle, 360)
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
	c := color.RGBA{R: r, G: g, B: b, A: 255}
	p.colors[classID] = c
	return c
}

// Hex returns the class color as #rrggbb for clients that draw their own boxes.
func (p *Palette) Hex(classID int) string {
	c := p.Color(classID)
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}
