package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"camwatch/internal/dto"
	"camwatch/internal/errs"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/services/cutter"
)

type fakeExporter struct {
	mu     sync.Mutex
	videos []string
	fail   map[float64]bool
}

func (e *fakeExporter) Export(ctx context.Context, video string, marks []cutter.Mark, w cutter.Window) ([]models.Clip, error) {
	e.mu.Lock()
	e.videos = append(e.videos, video)
	e.mu.Unlock()

	var clips []models.Clip
	var failed []error
	for i, m := range marks {
		if e.fail[m.Offset] {
			failed = append(failed, fmt.Errorf("mark %d: %w", i+1, errs.ErrCutFailed))
			continue
		}
		start, duration := cutter.ClipRange(m, w)
		clips = append(clips, models.Clip{Video: video, MarkOffset: m.Offset, Start: start, Duration: duration})
	}
	return clips, errors.Join(failed...)
}

type fakeClips struct {
	mu       sync.Mutex
	inserted []models.Clip
}

func (f *fakeClips) InsertBatch(clips []models.Clip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, clips...)
	return nil
}
func (f *fakeClips) ListByVideo(video string, limit int) ([]models.Clip, error) { return nil, nil }
func (f *fakeClips) ListByExport(exportID string) ([]models.Clip, error) { return nil, nil }

func setup(t *testing.T, exporter *fakeExporter) (*Service, *cutter.MarkBook, *fakeClips) {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "match.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	marks := cutter.NewMarkBook()
	clips := &fakeClips{}
	svc := New(exporter, marks, clips, dir, cutter.Window{Pre: 5, Post: 5}, logger.NewDiscard())
	t.Cleanup(svc.Close)
	return svc, marks, clips
}

func TestService_ExportDone(t *testing.T) {
	exporter := &fakeExporter{}
	svc, marks, clips := setup(t, exporter)
	marks.Add("match.mp4", 25, 12)
	marks.Add("match.mp4", 25, 40)

	job, err := svc.Start("match.mp4", svc.Window())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if job.Status != dto.ExportRunning || job.Marks != 2 || job.ID == "" {
		t.Errorf("Unexpected job %+v", job)
	}

	svc.Wait()

	done, err := svc.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if done.Status != dto.ExportDone || len(done.Clips) != 2 || done.Finished == nil {
		t.Errorf("Unexpected finished job %+v", done)
	}
	for _, c := range clips.inserted {
		if c.ExportID != job.ID {
			t.Errorf("Clip not tagged with export id: %+v", c)
		}
	}
	for _, c := range clips.inserted {
		if c.Video != "match.mp4" {
			t.Errorf("Expected clip keyed by video name, got %q", c.Video)
		}
	}
	if len(clips.inserted) != 2 {
		t.Errorf("Expected 2 stored clips, got %d", len(clips.inserted))
	}
	if exporter.videos[0] != svc.ResolveVideo("match.mp4") {
		t.Errorf("Expected resolved path, got %s", exporter.videos[0])
	}
}

type writingRunner struct{}

func (writingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return nil, os.WriteFile(args[len(args)-1], []byte("clip"), 0644)
}

func TestService_WithCutterStoresClipsByVideoName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "match.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	c := cutter.New("ffmpeg", filepath.Join(dir, "clips"), writingRunner{}, logger.NewDiscard())
	marks := cutter.NewMarkBook()
	marks.Add("match.mp4", 25, 12)
	clips := &fakeClips{}
	svc := New(c, marks, clips, dir, cutter.Window{Pre: 2, Post: 2}, logger.NewDiscard())
	defer svc.Close()

	job, err := svc.Start("match.mp4", svc.Window())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	svc.Wait()

	if len(clips.inserted) != 1 {
		t.Fatalf("Expected 1 stored clip, got %d", len(clips.inserted))
	}
	stored := clips.inserted[0]
	if stored.Video != "match.mp4" || stored.ExportID != job.ID {
		t.Errorf("Unexpected stored clip %+v", stored)
	}
	if _, err := os.Stat(stored.OutputFile); err != nil {
		t.Errorf("Clip file missing: %v", err)
	}
}

func TestService_PartialAndTotalFailure(t *testing.T) {
	exporter := &fakeExporter{fail: map[float64]bool{40: true}}
	svc, marks, _ := setup(t, exporter)
	marks.Add("match.mp4", 25, 12)
	marks.Add("match.mp4", 25, 40)

	job, _ := svc.Start("match.mp4", svc.Window())
	svc.Wait()
	partial, _ := svc.Get(job.ID)
	if partial.Status != dto.ExportDone || len(partial.Clips) != 1 || len(partial.Errors) != 1 {
		t.Errorf("Unexpected partial job %+v", partial)
	}

	marks.Remove("match.mp4", 0)
	job, _ = svc.Start("match.mp4", svc.Window())
	svc.Wait()
	failed, _ := svc.Get(job.ID)
	if failed.Status != dto.ExportFailed || len(failed.Clips) != 0 {
		t.Errorf("Unexpected failed job %+v", failed)
	}

	if len(svc.List()) != 2 {
		t.Errorf("Expected 2 jobs listed, got %d", len(svc.List()))
	}
}

func TestService_StartPreconditions(t *testing.T) {
	svc, marks, _ := setup(t, &fakeExporter{})

	if _, err := svc.Start("match.mp4", svc.Window()); !errors.Is(err, errs.ErrNoMarks) {
		t.Errorf("Expected ErrNoMarks, got %v", err)
	}

	marks.Add("missing.mp4", 25, 1)
	if _, err := svc.Start("missing.mp4", svc.Window()); !errors.Is(err, errs.ErrVideoNotFound) {
		t.Errorf("Expected ErrVideoNotFound, got %v", err)
	}

	marks.Add("match.mp4", 25, 1)
	if _, err := svc.Start("match.mp4", cutter.Window{Pre: -1}); err == nil {
		t.Error("Expected invalid window to be rejected")
	}

	if _, err := svc.Get("nope"); !errors.Is(err, errs.ErrExportNotFound) {
		t.Errorf("Expected ErrExportNotFound, got %v", err)
	}
}

func TestService_ResolveVideoStaysInDirectory(t *testing.T) {
	svc := New(&fakeExporter{}, cutter.NewMarkBook(), nil, "/videos", cutter.Window{}, logger.NewDiscard())
	defer svc.Close()

	if got := svc.ResolveVideo("../etc/passwd"); got != "/videos/etc/passwd" {
		t.Errorf("Unexpected path %s", got)
	}
	if got := svc.ResolveVideo("day1/match.mp4"); got != "/videos/day1/match.mp4" {
		t.Errorf("Unexpected path %s", got)
	}
}
