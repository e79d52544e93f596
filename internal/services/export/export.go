package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"camwatch/internal/dto"
	"camwatch/internal/errs"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/repository"
	"camwatch/internal/services/cutter"

	"github.com/google/uuid"
)

type Exporter interface {
	Export(ctx context.Context, video string, marks []cutter.Mark, w cutter.Window) ([]models.Clip, error)
}

// Service runs exports in the background and keeps their status in memory.
type Service struct {
	exporter Exporter
	marks    *cutter.MarkBook
	clips    repository.ClipRepository
	videoDir string
	window   cutter.Window
	log      *logger.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*dto.ExportJob
}

func New(exporter Exporter, marks *cutter.MarkBook, clips repository.ClipRepository, videoDir string, window cutter.Window, log *logger.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		exporter: exporter,
		marks:    marks,
		clips:    clips,
		videoDir: videoDir,
		window:   window,
		log:      log,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*dto.ExportJob),
	}
}

// Window returns the default pre/post window.
func (s *Service) Window() cutter.Window {
	return s.window
}

// ResolveVideo maps a video name onto the video directory. Names cannot
// escape the directory.
func (s *Service) ResolveVideo(video string) string {
	return filepath.Join(s.videoDir, filepath.Clean("/"+video))
}

// Start validates the request and launches the export. Marks are taken as
// they are at the time of the call.
func (s *Service) Start(video string, w cutter.Window) (dto.ExportJob, error) {
	const op = "export.Start"

	if err := w.Validate(); err != nil {
		return dto.ExportJob{}, fmt.Errorf("%s: %w", op, err)
	}

	marks := s.marks.Marks(video)
	if len(marks) == 0 {
		return dto.ExportJob{}, fmt.Errorf("%s: %w", op, errs.ErrNoMarks)
	}

	path := s.ResolveVideo(video)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dto.ExportJob{}, fmt.Errorf("%s: %w: %s", op, errs.ErrVideoNotFound, video)
		}
		return dto.ExportJob{}, fmt.Errorf("%s: %w", op, err)
	}

	job := &dto.ExportJob{
		ID:      uuid.NewString(),
		Video:   video,
		Status:  dto.ExportRunning,
		Marks:   len(marks),
		Clips:   []models.Clip{},
		Started: s.now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	s.log.Info("Export %s started: %d mark(s) of %s", job.ID, len(marks), video)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job.ID, video, path, marks, w)
	}()

	return snapshot, nil
}

func (s *Service) run(id, video, path string, marks []cutter.Mark, w cutter.Window) {
	clips, err := s.exporter.Export(s.ctx, path, marks, w)

	var messages []string
	if err != nil {
		messages = strings.Split(err.Error(), "\n")
	}

	// Clips are keyed by the video name, like marks.
	for i := range clips {
		clips[i].ExportID = id
		clips[i].Video = video
	}
	if len(clips) > 0 && s.clips != nil {
		if err := s.clips.InsertBatch(clips); err != nil {
			s.log.Error("Failed to store clips of export %s: %v", id, err)
			messages = append(messages, err.Error())
		}
	}

	finished := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.jobs[id]
	job.Clips = append(job.Clips, clips...)
	job.Errors = messages
	job.Finished = &finished
	job.Status = dto.ExportDone
	if len(clips) == 0 {
		job.Status = dto.ExportFailed
	}

	if len(messages) > 0 {
		s.log.Warning("Export %s finished with %d clip(s) and errors: %v", id, len(clips), err)
	} else {
		s.log.Info("Export %s finished with %d clip(s)", id, len(clips))
	}
}

func (s *Service) Get(id string) (dto.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return dto.ExportJob{}, fmt.Errorf("export.Get: %w", errs.ErrExportNotFound)
	}
	out := *job
	out.Clips = append([]models.Clip(nil), job.Clips...)
	return out, nil
}

// List returns every job, newest first.
func (s *Service) List() []dto.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]dto.ExportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	return out
}

// Wait blocks until every running export finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels running exports and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
