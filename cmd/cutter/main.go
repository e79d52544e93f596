package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"camwatch/internal/logger"
	"camwatch/internal/services/cutter"
)

func main() {
	video := flag.String("video", "", "Input video")
	marksFlag := flag.String("marks", "", "Comma separated mark offsets in seconds, e.g. 12.5,40")
	pre := flag.Float64("pre", 5, "Seconds kept before each mark")
	post := flag.Float64("post", 5, "Seconds kept after each mark")
	out := flag.String("out", "clips", "Output directory")
	ffmpeg := flag.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	fps := flag.Float64("fps", 0, "Video frame rate, used to report frame indices")
	flag.Parse()

	if *video == "" || *marksFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	offsets, err := parseMarks(*marksFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -marks: %v\n", err)
		os.Exit(2)
	}

	window := cutter.Window{Pre: *pre, Post: *post}
	if err := window.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid window: %v\n", err)
		os.Exit(2)
	}

	list := cutter.NewMarkList(*fps)
	for _, o := range offsets {
		list.Add(o)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := cutter.New(*ffmpeg, *out, cutter.ExecRunner{}, logger.NewConsole())
	clips, err := c.Export(ctx, *video, list.Marks(), window)
	for _, clip := range clips {
		fmt.Printf("%s  start=%.3fs duration=%.3fs frame=%d strategy=%s\n",
			clip.OutputFile, clip.Start, clip.Duration, clip.FrameIndex, clip.Strategy)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export finished with errors:\n%v\n", err)
		os.Exit(1)
	}
}

// parseMarks reads comma separated offsets in seconds.
func parseMarks(s string) ([]float64, error) {
	var offsets []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", field)
		}
		offsets = append(offsets, v)
	}
	if len(offsets) == 0 {
		return nil, errors.New("no marks given")
	}
	return offsets, nil
}
