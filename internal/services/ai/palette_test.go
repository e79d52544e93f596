package ai

import (
	"regexp"
	"testing"
)

func TestPalette_StableAndDistinct(t *testing.T) {
	p := NewPalette()

	seen := make(map[[3]uint8]int)
	for id := 0; id < 20; id++ {
		c := p.Color(id)
		if c.A != 255 {
			t.Errorf("Class %d: expected opaque color", id)
		}
		if c != p.Color(id) {
			t.Errorf("Class %d: color not stable", id)
		}

		key := [3]uint8{c.R, c.G, c.B}
		if prev, ok := seen[key]; ok {
			t.Errorf("Classes %d and %d share a color", prev, id)
		}
		seen[key] = id
	}
}

func TestPalette_Hex(t *testing.T) {
	p := NewPalette()
	if hex := p.Hex(3); !regexp.MustCompile(`^#[0-9a-f]{6}$`).MatchString(hex) {
		t.Errorf("Unexpected hex color %q", hex)
	}
}
