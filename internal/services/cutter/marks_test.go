package cutter

import (
	"errors"
	"testing"

	"camwatch/internal/errs"
)

func TestClipRange(t *testing.T) {
	tests := []struct {
		offset   float64
		window   Window
		start    float64
		duration float64
	}{
		{12, Window{Pre: 5, Post: 5}, 7, 10},
		{3, Window{Pre: 5, Post: 5}, 0, 10},
		{0, Window{Pre: 2, Post: 8}, 0, 10},
		{60, Window{Pre: 0, Post: 3}, 60, 3},
	}

	for _, tt := range tests {
		start, duration := ClipRange(Mark{Offset: tt.offset}, tt.window)
		if start != tt.start || duration != tt.duration {
			t.Errorf("ClipRange(%v, %+v) = (%v, %v), expected (%v, %v)",
				tt.offset, tt.window, start, duration, tt.start, tt.duration)
		}
	}
}

func TestMarkList(t *testing.T) {
	l := NewMarkList(30)

	l.Add(20)
	m := l.Add(1.25)
	l.Add(-3)
	l.Add(10)

	if m.FrameIndex != 38 {
		t.Errorf("Expected frame index 38, got %d", m.FrameIndex)
	}

	marks := l.Marks()
	want := []float64{0, 1.25, 10, 20}
	if len(marks) != len(want) {
		t.Fatalf("Expected %d marks, got %d", len(want), len(marks))
	}
	for i, w := range want {
		if marks[i].Offset != w {
			t.Errorf("Mark %d: expected %v, got %v", i, w, marks[i].Offset)
		}
	}

	if err := l.Remove(1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if l.Len() != 3 || l.Marks()[1].Offset != 10 {
		t.Errorf("Unexpected marks after remove: %+v", l.Marks())
	}

	if err := l.Remove(5); !errors.Is(err, errs.ErrMarkNotFound) {
		t.Errorf("Expected ErrMarkNotFound, got %v", err)
	}

	marks[0].Offset = 99
	if l.Marks()[0].Offset == 99 {
		t.Error("Marks must return a copy")
	}
}

func TestMarkBook(t *testing.T) {
	b := NewMarkBook()

	b.Add("b.mp4", 25, 4)
	b.Add("a.mp4", 25, 8)
	b.Add("a.mp4", 25, 2)

	if videos := b.Videos(); len(videos) != 2 || videos[0] != "a.mp4" {
		t.Errorf("Unexpected videos %v", videos)
	}
	if marks := b.Marks("a.mp4"); len(marks) != 2 || marks[0].Offset != 2 || marks[0].FrameIndex != 50 {
		t.Errorf("Unexpected marks %+v", marks)
	}

	if err := b.Remove("b.mp4", 0); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(b.Videos()) != 1 {
		t.Error("Video without marks should be dropped")
	}
	if err := b.Remove("missing.mp4", 0); !errors.Is(err, errs.ErrMarkNotFound) {
		t.Errorf("Expected ErrMarkNotFound, got %v", err)
	}

	b.Clear("a.mp4")
	if b.Marks("a.mp4") != nil {
		t.Error("Expected marks cleared")
	}
}

func TestWindow_Validate(t *testing.T) {
	if err := (Window{Pre: 5, Post: 0}).Validate(); err != nil {
		t.Errorf("Expected valid window, got %v", err)
	}
	if err := (Window{Pre: -1, Post: 5}).Validate(); err == nil {
		t.Error("Expected negative pre to be rejected")
	}
}
