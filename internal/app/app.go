package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"camwatch/internal/config"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/repository/sqlite"
	"camwatch/internal/routes"
	"camwatch/internal/services"
	"camwatch/internal/services/ai"
	"camwatch/internal/services/auth"
	"camwatch/internal/services/capture"
	"camwatch/internal/services/cutter"
	"camwatch/internal/services/export"
	"camwatch/internal/services/poller"
	"camwatch/internal/services/preview"
	"camwatch/internal/services/recorder"
	"camwatch/internal/services/storage"
	"camwatch/internal/services/websocket"
)

const (
	snapshotQuality = 90
	shutdownTimeout = 10 * time.Second
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sqlite.DB
	detector *ai.Detector
	opener   poller.Opener
	poller   *poller.Poller
	hub      *websocket.HubService
	buffer   *storage.BufferService
	manager  *services.Manager
	exports  *export.Service
	server   *http.Server

	bufferDone chan struct{}
}

// NewApp builds every service. A model that fails to load is fatal.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	const op = "app.NewApp"

	db, err := sqlite.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	palette := ai.NewPalette()
	detector, err := ai.NewDetector(ai.Config{
		ModelPath: cfg.Detector.ModelPath,
		NamesPath: cfg.Detector.NamesPath,
		InputSize: cfg.Detector.InputSize,
		NMS:       cfg.Detector.NMS,
		Backend:   cfg.Detector.Backend,
	}, palette, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authService, err := auth.New(cfg.Auth.Password, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	if err != nil {
		detector.Close()
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snapshots := sqlite.NewSnapshotRepository(db)
	segments := sqlite.NewSegmentRepository(db)
	clips := sqlite.NewClipRepository(db)

	hub := websocket.NewHubService(log)
	buffer := storage.NewBufferService(storage.Config{
		Directory:     cfg.Storage.SnapshotDir,
		BufferLimit:   cfg.Storage.BufferLimit,
		FlushInterval: cfg.Storage.FlushInterval,
		MaxAge:        cfg.Storage.MaxSnapshotAge,
	}, log, snapshots)

	var rec services.Recorder
	if cfg.Recorder.Enabled {
		codec := cfg.Recorder.Codec
		rec = recorder.New(recorder.Config{
			Directory:       cfg.Recorder.Directory,
			SegmentDuration: cfg.Recorder.SegmentDuration,
			FPS:             cfg.Poller.TargetFPS,
		}, func(path string, fps float64, first poller.Frame) (recorder.Writer, error) {
			w, err := capture.NewWriterFor(path, codec, fps, first)
			if err != nil {
				return nil, err
			}
			return w, nil
		}, segments, log)
	}

	manager := services.NewManager(
		capture.Codec{Quality: snapshotQuality},
		preview.Encoder{MaxWidth: cfg.Preview.MaxWidth, MaxHeight: cfg.Preview.MaxHeight, Quality: cfg.Preview.Quality},
		palette, hub, buffer, rec, log,
	)

	opener := capture.NewOpener(capture.Options{
		Width:      cfg.Poller.FrameWidth,
		Height:     cfg.Poller.FrameHeight,
		BufferSize: 1,
		ProbeRTSP:  true,
	}, log)

	p := poller.New(poller.Config{
		TargetFPS:    cfg.Poller.TargetFPS,
		PollInterval: cfg.Poller.PollInterval,
		Confidence:   cfg.Detector.Confidence,
		EventBuffer:  cfg.Poller.EventBuffer,
		Reconnect: poller.ReconnectConfig{
			InitialDelay: cfg.Poller.ReconnectDelay,
			MaxDelay:     cfg.Poller.ReconnectMaxDelay,
			MaxRetries:   cfg.Poller.ReconnectMaxRetries,
		},
	}, opener, detector, log,
		poller.WithStatusHandler(manager.CameraStatus),
		poller.WithErrorHandler(func(cameraID int, err error) {
			log.Warning("Camera %d: %v", cameraID, err)
		}),
	)

	marks := cutter.NewMarkBook()
	cut := cutter.New(cfg.Cutter.FFmpegPath, cfg.Cutter.OutputDir, cutter.ExecRunner{}, log)
	exports := export.New(cut, marks, clips, cfg.Cutter.VideoDir, cutter.Window{
		Pre:  cfg.Cutter.PreSeconds,
		Post: cfg.Cutter.PostSeconds,
	}, log)

	router := routes.SetupRoutes(routes.Deps{
		Auth:       authService,
		Poller:     p,
		Viewers:    hub,
		Marks:      marks,
		Exports:    exports,
		Snapshots:  snapshots,
		Detections: sqlite.NewDetectionRepository(db),
		Segments:   segments,
		Clips:      clips,
		LogDir:     cfg.LogDirectory,
		StaticDir:  "static",
	}, log)

	return &App{
		config:   cfg,
		logger:   log,
		db:       db,
		detector: detector,
		opener:   opener,
		poller:   p,
		hub:      hub,
		buffer:   buffer,
		manager:  manager,
		exports:  exports,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		bufferDone: make(chan struct{}),
	}, nil
}

// sources returns the configured cameras, or the scanned ones when
// CameraScanMax is set.
func (a *App) sources(ctx context.Context) []models.Source {
	if a.config.CameraScanMax > 0 {
		found := poller.Scan(ctx, a.opener, a.config.CameraScanMax)
		a.logger.Info("Camera scan found %d device(s)", len(found))
		return poller.Sources(found)
	}
	return a.config.Sources()
}

// Run serves until ctx is done, then shuts every service down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)
	go func() {
		defer close(a.bufferDone)
		a.buffer.Run(ctx)
	}()

	if err := a.poller.Start(ctx, a.sources(ctx)); err != nil {
		// The cutter and the gallery stay usable without cameras.
		a.logger.Error("Camera poller not started: %v", err)
	} else {
		a.manager.Start(ctx, a.poller.Events())
	}

	a.logger.Info("Security camera server on http://localhost:%d", a.config.Port)
	a.logger.Info("Snapshots: %s, model: %s", a.config.Storage.SnapshotDir, a.config.Detector.ModelPath)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	cancel()
	a.shutdown()
	return serveErr
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP shutdown: %v", err)
	}

	a.poller.Stop()
	a.manager.Stop()
	a.exports.Close()
	<-a.bufferDone

	if err := a.detector.Close(); err != nil {
		a.logger.Error("Failed to close detector: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Info("Shutdown complete")
}
