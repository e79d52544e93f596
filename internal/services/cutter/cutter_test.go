package cutter

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"camwatch/internal/errs"
	"camwatch/internal/logger"
)

type outcome struct {
	write  string // content left at the destination, empty for none
	err    error
	output string
}

type fakeRunner struct {
	mu       sync.Mutex
	outcomes map[Strategy]outcome
	calls    [][]string
}

func strategyOf(args []string) Strategy {
	for i, a := range args {
		if a == "-c" && args[i+1] == "copy" {
			return StrategyCopy
		}
		if a == "-c:a" {
			if args[i+1] == "copy" {
				return StrategyReencodeVideo
			}
			return StrategyReencodeAll
		}
	}
	return ""
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, args)
	o, ok := r.outcomes[strategyOf(args)]
	r.mu.Unlock()

	if !ok {
		o = outcome{write: "video"}
	}

	dst := args[len(args)-1]
	if o.write != "" || o.err == nil {
		if err := os.WriteFile(dst, []byte(o.write), 0644); err != nil {
			return nil, err
		}
	}
	return []byte(o.output), o.err
}

func (r *fakeRunner) strategies() []Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Strategy, len(r.calls))
	for i, c := range r.calls {
		out[i] = strategyOf(c)
	}
	return out
}

func equalStrategies(a, b []Strategy) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func setupVideo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(video, []byte("source"), 0644); err != nil {
		t.Fatal(err)
	}
	return video, filepath.Join(dir, "clips")
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatal(err)
	}
	return len(entries)
}

// ========================================
// Fallback chain
// ========================================

func TestCut_FallbackChain(t *testing.T) {
	fail := errors.New("exit status 1")

	tests := []struct {
		name     string
		outcomes map[Strategy]outcome
		expected Strategy
		calls    []Strategy
	}{
		{
			name:     "copy succeeds",
			outcomes: map[Strategy]outcome{},
			expected: StrategyCopy,
			calls:    []Strategy{StrategyCopy},
		},
		{
			name: "copy fails with partial output",
			outcomes: map[Strategy]outcome{
				StrategyCopy: {write: "garbage", err: fail, output: "non-keyframe start"},
			},
			expected: StrategyReencodeVideo,
			calls:    []Strategy{StrategyCopy, StrategyReencodeVideo},
		},
		{
			name: "audio copy fails too",
			outcomes: map[Strategy]outcome{
				StrategyCopy:          {err: fail},
				StrategyReencodeVideo: {write: "half", err: fail, output: "audio codec not supported"},
			},
			expected: StrategyReencodeAll,
			calls:    []Strategy{StrategyCopy, StrategyReencodeVideo, StrategyReencodeAll},
		},
		{
			name: "exit zero with empty output",
			outcomes: map[Strategy]outcome{
				StrategyCopy: {write: "", err: nil},
			},
			expected: StrategyReencodeVideo,
			calls:    []Strategy{StrategyCopy, StrategyReencodeVideo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video, out := setupVideo(t)
			if err := os.MkdirAll(out, 0755); err != nil {
				t.Fatal(err)
			}
			runner := &fakeRunner{outcomes: tt.outcomes}
			c := New("ffmpeg", out, runner, logger.NewDiscard())

			dst := filepath.Join(out, "clip.mp4")
			got, err := c.Cut(context.Background(), video, dst, 5, 10)
			if err != nil {
				t.Fatalf("Cut failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected strategy %s, got %s", tt.expected, got)
			}
			if calls := runner.strategies(); !equalStrategies(calls, tt.calls) {
				t.Errorf("Expected attempts %v, got %v", tt.calls, calls)
			}

			if n := countFiles(t, out); n != 1 {
				t.Errorf("Expected exactly one output file, got %d", n)
			}
			data, err := os.ReadFile(dst)
			if err != nil || string(data) != "video" {
				t.Errorf("Expected output from the successful attempt, got %q (%v)", data, err)
			}
		})
	}
}

func TestCut_AllStrategiesFail(t *testing.T) {
	video, out := setupVideo(t)
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}

	fail := errors.New("exit status 1")
	runner := &fakeRunner{outcomes: map[Strategy]outcome{
		StrategyCopy:          {write: "p1", err: fail},
		StrategyReencodeVideo: {write: "p2", err: fail},
		StrategyReencodeAll:   {write: "p3", err: fail},
	}}
	c := New("ffmpeg", out, runner, logger.NewDiscard())

	_, err := c.Cut(context.Background(), video, filepath.Join(out, "clip.mp4"), 0, 10)
	if !errors.Is(err, errs.ErrCutFailed) {
		t.Fatalf("Expected ErrCutFailed, got %v", err)
	}
	if !errors.Is(err, fail) {
		t.Errorf("Expected attempt errors to be joined, got %v", err)
	}
	if n := countFiles(t, out); n != 0 {
		t.Errorf("Expected no output files, got %d", n)
	}
	if len(runner.strategies()) != 3 {
		t.Errorf("Expected 3 attempts, got %d", len(runner.strategies()))
	}
}

func TestCut_CancelledContext(t *testing.T) {
	video, out := setupVideo(t)
	runner := &fakeRunner{}
	c := New("ffmpeg", out, runner, logger.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Cut(ctx, video, filepath.Join(out, "clip.mp4"), 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(runner.strategies()) != 0 {
		t.Error("Runner should not be invoked after cancellation")
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs("in.mp4", "out.mp4", 1.5, 10, StrategyReencodeAll)

	if argValue(args, "-ss") != "1.500" || argValue(args, "-t") != "10.000" {
		t.Errorf("Unexpected time arguments %v", args)
	}
	if argValue(args, "-i") != "in.mp4" || args[len(args)-1] != "out.mp4" {
		t.Errorf("Unexpected file arguments %v", args)
	}
	if argValue(args, "-c:v") != "libx264" || argValue(args, "-c:a") != "aac" {
		t.Errorf("Unexpected codec arguments %v", args)
	}
}

// ========================================
// Export
// ========================================

func TestExport_ClipRangeRoundTrip(t *testing.T) {
	video, out := setupVideo(t)
	runner := &fakeRunner{}
	c := New("ffmpeg", out, runner, logger.NewDiscard())
	c.newTag = func() string { return "run1" }

	list := NewMarkList(30)
	for _, offset := range []float64{2, 10, 42.25} {
		list.Add(offset)
	}
	w := Window{Pre: 5, Post: 5}

	clips, err := c.Export(context.Background(), video, list.Marks(), w)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(clips) != 3 {
		t.Fatalf("Expected 3 clips, got %d", len(clips))
	}

	for i, clip := range clips {
		args := runner.calls[i]
		start, _ := strconv.ParseFloat(argValue(args, "-ss"), 64)
		duration, _ := strconv.ParseFloat(argValue(args, "-t"), 64)

		wantStart := math.Max(0, clip.MarkOffset-w.Pre)
		if math.Abs(start-wantStart) > 0.001 || math.Abs(clip.Start-wantStart) > 0.001 {
			t.Errorf("Clip %d: expected start %.3f, got arg %.3f / clip %.3f", i, wantStart, start, clip.Start)
		}
		if math.Abs(duration-10) > 0.001 || clip.Duration != 10 {
			t.Errorf("Clip %d: expected duration 10, got arg %.3f / clip %.3f", i, duration, clip.Duration)
		}
		if _, err := os.Stat(clip.OutputFile); err != nil {
			t.Errorf("Clip %d: output missing: %v", i, err)
		}
		if clip.Strategy != string(StrategyCopy) {
			t.Errorf("Clip %d: expected copy strategy, got %s", i, clip.Strategy)
		}
	}

	if clips[0].Start != 0 {
		t.Errorf("Expected first clip start clamped to 0, got %v", clips[0].Start)
	}
	if clips[2].FrameIndex != 1268 {
		t.Errorf("Expected frame index 1268, got %d", clips[2].FrameIndex)
	}
	if filepath.Base(clips[1].OutputFile) != "input_run1_mark02_10000ms.mp4" {
		t.Errorf("Unexpected clip name %s", clips[1].OutputFile)
	}
}

// failingRunner fails every attempt for one source offset.
type failingRunner struct {
	fakeRunner
	failStart string
}

func (r *failingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if argValue(args, "-ss") == r.failStart {
		r.mu.Lock()
		r.calls = append(r.calls, args)
		r.mu.Unlock()
		return []byte("corrupt input"), errors.New("exit status 1")
	}
	return r.fakeRunner.Run(ctx, name, args...)
}

func TestExport_ContinuesPastFailedMark(t *testing.T) {
	video, out := setupVideo(t)
	runner := &failingRunner{failStart: "15.000"}
	c := New("ffmpeg", out, runner, logger.NewDiscard())

	marks := []Mark{{Offset: 10}, {Offset: 20}, {Offset: 30}}
	clips, err := c.Export(context.Background(), video, marks, Window{Pre: 5, Post: 5})
	if !errors.Is(err, errs.ErrCutFailed) {
		t.Fatalf("Expected ErrCutFailed, got %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("Expected 2 clips, got %d", len(clips))
	}
	if clips[0].MarkOffset != 10 || clips[1].MarkOffset != 30 {
		t.Errorf("Unexpected clips %+v", clips)
	}
	if n := countFiles(t, out); n != 2 {
		t.Errorf("Expected 2 files, got %d", n)
	}
}

func TestExport_Errors(t *testing.T) {
	video, out := setupVideo(t)

	tests := []struct {
		name     string
		outDir   string
		video    string
		marks    []Mark
		expected error
	}{
		{"output dir unset", "", video, []Mark{{Offset: 1}}, errs.ErrOutputDirUnset},
		{"missing video", out, video + ".missing", []Mark{{Offset: 1}}, errs.ErrVideoNotFound},
		{"no marks", out, video, nil, errs.ErrNoMarks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("ffmpeg", tt.outDir, &fakeRunner{}, logger.NewDiscard())
			if _, err := c.Export(context.Background(), tt.video, tt.marks, Window{Pre: 1, Post: 1}); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestClipName(t *testing.T) {
	tests := []struct {
		video    string
		tag      string
		i        int
		mark     Mark
		expected string
	}{
		{"/videos/cam0.mkv", "a1b2c3d4", 0, Mark{Offset: 1.5}, "cam0_a1b2c3d4_mark01_1500ms.mkv"},
		{"raw", "", 11, Mark{Offset: 0}, "raw_mark12_0ms.mp4"},
	}
	for _, tt := range tests {
		if got := ClipName(tt.video, tt.tag, tt.i, tt.mark); got != tt.expected {
			t.Errorf("ClipName(%s, %d) = %s, expected %s", tt.video, tt.i, got, tt.expected)
		}
	}
}

func TestExport_RepeatedExportsKeepEarlierClips(t *testing.T) {
	video, out := setupVideo(t)
	c := New("ffmpeg", out, &fakeRunner{}, logger.NewDiscard())
	marks := []Mark{{Offset: 10}}

	first, err := c.Export(context.Background(), video, marks, Window{Pre: 1, Post: 1})
	if err != nil {
		t.Fatalf("First export failed: %v", err)
	}
	second, err := c.Export(context.Background(), video, marks, Window{Pre: 1, Post: 1})
	if err != nil {
		t.Fatalf("Second export failed: %v", err)
	}

	if first[0].OutputFile == second[0].OutputFile {
		t.Fatalf("Both exports wrote %s", first[0].OutputFile)
	}
	if n := countFiles(t, out); n != 2 {
		t.Errorf("Expected 2 files, got %d", n)
	}
}
