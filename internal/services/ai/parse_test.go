package ai

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

// tensor builds a [attrs][candidates] buffer from per-candidate rows.
func tensor(rows [][]float32) []float32 {
	attrs := len(rows[0])
	n := len(rows)
	data := make([]float32, attrs*n)
	for i, row := range rows {
		for a, v := range row {
			data[a*n+i] = v
		}
	}
	return data
}

func TestLayoutFromDims(t *testing.T) {
	tests := []struct {
		dims       []int
		ok         bool
		attrs      int
		candidates int
		transposed bool
	}{
		{[]int{1, 84, 8400}, true, 84, 8400, false},
		{[]int{1, 8400, 84}, true, 84, 8400, true},
		{[]int{84, 8400}, false, 0, 0, false},
		{[]int{2, 84, 8400}, false, 0, 0, false},
	}

	for _, tt := range tests {
		got, ok := layoutFromDims(tt.dims)
		if ok != tt.ok {
			t.Errorf("dims %v: expected ok=%v", tt.dims, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if got.attrs != tt.attrs || got.candidates != tt.candidates || got.transposed != tt.transposed {
			t.Errorf("dims %v: got %+v", tt.dims, got)
		}
	}
}

func TestParseOutput(t *testing.T) {
	// Two classes; input 100x100, frame 200x100.
	rows := [][]float32{
		{50, 50, 20, 10, 0.9, 0.1},  // class 0, kept
		{10, 10, 4, 4, 0.1, 0.2},    // below threshold
		{80, 20, 10, 10, 0.3, 0.75}, // class 1, kept
	}
	layout := outputLayout{attrs: 6, candidates: 3}

	got := parseOutput(tensor(rows), layout, 100, 200, 100, 0.5)
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(got))
	}

	if got[0].classID != 0 || got[0].rect != image.Rect(80, 45, 120, 55) {
		t.Errorf("Unexpected first candidate %+v", got[0])
	}
	if got[1].classID != 1 || got[1].score != 0.75 {
		t.Errorf("Unexpected second candidate %+v", got[1])
	}
}

func TestParseOutput_Transposed(t *testing.T) {
	layout := outputLayout{attrs: 5, candidates: 1, transposed: true}
	data := []float32{10, 10, 10, 10, 0.8}

	got := parseOutput(data, layout, 20, 20, 20, 0.5)
	if len(got) != 1 || got[0].rect != image.Rect(5, 5, 15, 15) {
		t.Fatalf("Unexpected candidates %+v", got)
	}
}

func TestParseOutput_ClipsToFrame(t *testing.T) {
	layout := outputLayout{attrs: 5, candidates: 1}
	data := []float32{0, 0, 10, 10, 0.9}

	got := parseOutput(data, layout, 100, 100, 100, 0.5)
	if len(got) != 1 || got[0].rect != image.Rect(0, 0, 5, 5) {
		t.Fatalf("Expected box clipped to frame, got %+v", got)
	}
}

func TestParseOutput_ShortBuffer(t *testing.T) {
	layout := outputLayout{attrs: 84, candidates: 8400}
	if got := parseOutput(make([]float32, 10), layout, 640, 640, 480, 0.25); got != nil {
		t.Errorf("Expected nil for short buffer, got %d candidates", len(got))
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco.names")
	if err := os.WriteFile(path, []byte("person\nbicycle\n\ncar\n"), 0644); err != nil {
		t.Fatal(err)
	}

	labels, err := loadLabels(path)
	if err != nil {
		t.Fatalf("loadLabels failed: %v", err)
	}
	if len(labels) != 3 || labels[2] != "car" {
		t.Errorf("Unexpected labels %v", labels)
	}

	if got := label(labels, 1); got != "bicycle" {
		t.Errorf("Expected bicycle, got %s", got)
	}
	if got := label(labels, 7); got != "class_7" {
		t.Errorf("Expected class_7, got %s", got)
	}
}
