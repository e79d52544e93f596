package cutter

import (
	"math"
	"sort"
	"sync"

	"camwatch/internal/errs"

	"github.com/go-playground/validator/v10"
)

// Mark is a point in a video chosen as the center of an export window.
type Mark struct {
	Offset     float64 `json:"offset"`
	FrameIndex int     `json:"frame_index"`
}

// Window is the amount of video kept before and after a mark, in seconds.
type Window struct {
	Pre  float64 `json:"pre" validate:"gte=0"`
	Post float64 `json:"post" validate:"gte=0"`
}

func (w Window) Validate() error {
	return validator.New().Struct(w)
}

// ClipRange returns the clip start and duration for m. The start is clamped
// at zero; the duration is always Pre+Post.
func ClipRange(m Mark, w Window) (start, duration float64) {
	return math.Max(0, m.Offset-w.Pre), w.Pre + w.Post
}

// MarkList holds the marks of one video, ordered by offset.
type MarkList struct {
	fps   float64
	marks []Mark
}

func NewMarkList(fps float64) *MarkList {
	return &MarkList{fps: fps}
}

// Add inserts a mark at offset seconds. Negative offsets are clamped to zero.
func (l *MarkList) Add(offset float64) Mark {
	if offset < 0 {
		offset = 0
	}
	m := Mark{Offset: offset}
	if l.fps > 0 {
		m.FrameIndex = int(math.Round(offset * l.fps))
	}

	i := sort.Search(len(l.marks), func(i int) bool { return l.marks[i].Offset > offset })
	l.marks = append(l.marks, Mark{})
	copy(l.marks[i+1:], l.marks[i:])
	l.marks[i] = m
	return m
}

// Remove deletes the i-th mark in offset order.
func (l *MarkList) Remove(i int) error {
	if i < 0 || i >= len(l.marks) {
		return errs.ErrMarkNotFound
	}
	l.marks = append(l.marks[:i], l.marks[i+1:]...)
	return nil
}

func (l *MarkList) Marks() []Mark {
	return append([]Mark(nil), l.marks...)
}

func (l *MarkList) Len() int {
	return len(l.marks)
}

func (l *MarkList) Clear() {
	l.marks = nil
}

// MarkBook keeps mark lists per video for concurrent callers.
type MarkBook struct {
	mu    sync.RWMutex
	lists map[string]*MarkList
}

func NewMarkBook() *MarkBook {
	return &MarkBook{lists: make(map[string]*MarkList)}
}

// Add records a mark for video. fps is used only when the video is new.
func (b *MarkBook) Add(video string, fps, offset float64) Mark {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, ok := b.lists[video]
	if !ok {
		list = NewMarkList(fps)
		b.lists[video] = list
	}
	return list.Add(offset)
}

func (b *MarkBook) Remove(video string, i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, ok := b.lists[video]
	if !ok {
		return errs.ErrMarkNotFound
	}
	if err := list.Remove(i); err != nil {
		return err
	}
	if list.Len() == 0 {
		delete(b.lists, video)
	}
	return nil
}

func (b *MarkBook) Marks(video string) []Mark {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if list, ok := b.lists[video]; ok {
		return list.Marks()
	}
	return nil
}

func (b *MarkBook) Clear(video string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.lists, video)
}

// Videos lists every video with at least one mark.
func (b *MarkBook) Videos() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.lists))
	for v := range b.lists {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
