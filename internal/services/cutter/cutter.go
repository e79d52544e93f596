package cutter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"camwatch/internal/errs"
	"camwatch/internal/logger"
	"camwatch/internal/models"

	"github.com/google/uuid"
)

type Strategy string

const (
	StrategyCopy          Strategy = "copy"
	StrategyReencodeVideo Strategy = "reencode_video"
	StrategyReencodeAll   Strategy = "reencode_all"
)

// Strategies is the order in which cuts are attempted.
var Strategies = []Strategy{StrategyCopy, StrategyReencodeVideo, StrategyReencodeAll}

func (s Strategy) codecArgs() []string {
	switch s {
	case StrategyReencodeVideo:
		return []string{"-c:v", "libx264", "-preset", "veryfast", "-c:a", "copy"}
	case StrategyReencodeAll:
		return []string{"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac"}
	default:
		return []string{"-c", "copy"}
	}
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func ffmpegArgs(src, dst string, start, duration float64, s Strategy) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error",
		"-ss", seconds(start), "-i", src, "-t", seconds(duration)}
	args = append(args, s.codecArgs()...)
	return append(args, "-avoid_negative_ts", "make_zero", dst)
}

// Cutter extracts windows from videos with ffmpeg.
type Cutter struct {
	ffmpeg string
	outDir string
	runner Runner
	log    *logger.Logger
	now    func() time.Time
	newTag func() string
}

func New(ffmpegPath, outDir string, runner Runner, log *logger.Logger) *Cutter {
	if runner == nil {
		runner = ExecRunner{}
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Cutter{
		ffmpeg: ffmpegPath,
		outDir: outDir,
		runner: runner,
		log:    log,
		now:    time.Now,
		newTag: exportTag,
	}
}

// exportTag keeps clips of separate exports of one video apart.
func exportTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// OutputDir returns the directory exports are written to.
func (c *Cutter) OutputDir() string {
	return c.outDir
}

// Cut writes [start, start+duration) of src to dst, trying each strategy in
// order. A failed attempt leaves no file behind.
func (c *Cutter) Cut(ctx context.Context, src, dst string, start, duration float64) (Strategy, error) {
	const op = "cutter.Cut"

	var attempts []error
	for _, s := range Strategies {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		out, err := c.runner.Run(ctx, c.ffmpeg, ffmpegArgs(src, dst, start, duration, s)...)
		if err == nil {
			err = checkOutput(dst)
		}
		if err == nil {
			c.log.Info("Cut %s [%ss +%ss] -> %s (%s)", src, seconds(start), seconds(duration), dst, s)
			return s, nil
		}

		if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.log.Warning("Failed to remove partial output %s: %v", dst, rmErr)
		}

		c.log.Warning("Cut %s with %s failed: %v", src, s, err)
		if msg := strings.TrimSpace(string(out)); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", s, err))
	}

	return "", fmt.Errorf("%s: %w: %w", op, errs.ErrCutFailed, errors.Join(attempts...))
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.ErrEmptyOutput
		}
		return err
	}
	if info.Size() == 0 {
		return errs.ErrEmptyOutput
	}
	return nil
}

// ClipName returns the file name used for the i-th mark of video within the
// export identified by tag.
func ClipName(video, tag string, i int, m Mark) string {
	base := filepath.Base(video)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".mp4"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if tag != "" {
		base += "_" + tag
	}
	return fmt.Sprintf("%s_mark%02d_%dms%s", base, i+1, int64(m.Offset*1000), ext)
}

// Export cuts one clip per mark. Failing marks do not stop the others; their
// errors are joined into the returned error.
func (c *Cutter) Export(ctx context.Context, video string, marks []Mark, w Window) ([]models.Clip, error) {
	const op = "cutter.Export"

	if c.outDir == "" {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrOutputDirUnset)
	}
	if _, err := os.Stat(video); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w: %s", op, errs.ErrVideoNotFound, video)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(marks) == 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNoMarks)
	}
	if err := os.MkdirAll(c.outDir, 0755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tag := c.newTag()
	var (
		clips  []models.Clip
		failed []error
	)
	for i, m := range marks {
		start, duration := ClipRange(m, w)
		dst := filepath.Join(c.outDir, ClipName(video, tag, i, m))

		strategy, err := c.Cut(ctx, video, dst, start, duration)
		if err != nil {
			failed = append(failed, fmt.Errorf("mark %d at %ss: %w", i+1, seconds(m.Offset), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		clips = append(clips, models.Clip{
			Video:      video,
			OutputFile: dst,
			MarkOffset: m.Offset,
			FrameIndex: m.FrameIndex,
			Start:      start,
			Duration:   duration,
			Strategy:   string(strategy),
			CreatedAt:  c.now(),
		})
	}

	c.log.Info("Exported %d/%d clip(s) from %s", len(clips), len(marks), video)

	if len(failed) > 0 {
		return clips, fmt.Errorf("%s: %w", op, errors.Join(failed...))
	}
	return clips, nil
}
