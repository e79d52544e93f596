package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"camwatch/internal/errs"
	"camwatch/internal/logger"
	"camwatch/internal/models"
)

// Config controls sampling and recovery of the poll loop.
type Config struct {
	TargetFPS    float64       // processed frames per second per camera; 0 disables throttling
	PollInterval time.Duration // sleep between ticks
	Confidence   float64       // passed to the detector
	EventBuffer  int           // capacity of the result queue
	Reconnect    ReconnectConfig
}

// Period returns the minimum spacing between processed frames of one camera.
func (c Config) Period() time.Duration {
	if c.TargetFPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.TargetFPS)
}

type Option func(*Poller)

// WithErrorHandler registers a callback for camera errors.
func WithErrorHandler(fn func(cameraID int, err error)) Option {
	return func(p *Poller) { p.onError = fn }
}

// WithStatusHandler registers a callback for registration state changes.
func WithStatusHandler(fn func(cam models.Camera)) Option {
	return func(p *Poller) { p.onStatus = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithAfterFunc replaces time.AfterFunc for reconnect scheduling.
func WithAfterFunc(after AfterFunc) Option {
	return func(p *Poller) { p.after = after }
}

type reconnectResult struct {
	cam *camera
	dev Device
	err error
}

// Poller samples frames from a set of cameras on a single goroutine, runs
// detection on the sampled frames and queues the results.
type Poller struct {
	cfg      Config
	period   time.Duration
	open     Opener
	detector Detector
	log      *logger.Logger
	now      func() time.Time
	after    AfterFunc
	onError  func(cameraID int, err error)
	onStatus func(cam models.Camera)

	pause       *PauseToken
	events      *EventQueue
	reconnected chan reconnectResult

	mu      sync.Mutex
	cameras []*camera
	started bool
	looping bool

	ctx    context.Context
	cancel context.CancelFunc
	stop   chan struct{}
	done   chan struct{}
	timers sync.WaitGroup

	processed  atomic.Uint64
	discarded  atomic.Uint64
	reconnects atomic.Uint64
	errors     atomic.Uint64
}

func New(cfg Config, open Opener, detector Detector, log *logger.Logger, opts ...Option) *Poller {
	p := &Poller{
		cfg:      cfg,
		period:   cfg.Period(),
		open:     open,
		detector: detector,
		log:      log,
		now:      time.Now,
		after:    timeAfterFunc,
		pause:    NewPauseToken(),
		events:   NewEventQueue(cfg.EventBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start connects every source in order and launches the poll loop. Sources
// that fail to open are reported once and left out of the active set.
// A Poller can be started once.
func (p *Poller) Start(ctx context.Context, sources []models.Source) error {
	const op = "poller.Start"

	if err := p.begin(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.connect(p.ctx, sources); err != nil {
		p.release()
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	p.looping = true
	p.mu.Unlock()

	go p.run()

	p.log.Info("Poller started: %d camera(s), target %.2f fps, poll interval %v",
		len(p.Cameras()), p.cfg.TargetFPS, p.cfg.PollInterval)
	return nil
}

func (p *Poller) begin(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errs.ErrPollerRunning
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	return nil
}

func (p *Poller) connect(ctx context.Context, sources []models.Source) error {
	seen := make(map[int]bool, len(sources))

	for _, src := range sources {
		if seen[src.ID] {
			p.log.Warning("Camera %d configured twice, ignoring duplicate", src.ID)
			continue
		}
		seen[src.ID] = true

		dev, err := p.open(ctx, src)
		if err != nil {
			p.reportError(src.ID, fmt.Errorf("%w: %w", errs.ErrCameraOpen, err))
			continue
		}

		cam := &camera{src: src}
		p.mu.Lock()
		cam.attach(dev)
		p.cameras = append(p.cameras, cam)
		p.mu.Unlock()

		w, h := dev.Resolution()
		p.log.Info("Camera %d (%s) connected: %dx%d @ %.1f fps", src.ID, src.Name, w, h, dev.FPS())
		p.notify(cam)
	}

	p.mu.Lock()
	n := len(p.cameras)
	p.reconnected = make(chan reconnectResult, n+1)
	p.mu.Unlock()

	if n == 0 {
		return errs.ErrNoCameras
	}
	return nil
}

func (p *Poller) run() {
	defer close(p.done)

	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		if !p.pause.Wait(p.stop) {
			return
		}

		p.tick(p.now())

		timer.Reset(p.cfg.PollInterval)
		select {
		case <-p.stop:
			return
		case <-timer.C:
		}
	}
}

// tick runs one pass over the connected cameras in registration order.
func (p *Poller) tick(now time.Time) {
	p.drainReconnects()

	for _, cam := range p.connected() {
		p.poll(cam, now)
	}
}

func (p *Poller) connected() []*camera {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*camera, 0, len(p.cameras))
	for _, cam := range p.cameras {
		if cam.state == models.StateConnected {
			out = append(out, cam)
		}
	}
	return out
}

func (p *Poller) poll(cam *camera, now time.Time) {
	id := cam.src.ID

	if err := cam.dev.Grab(); err != nil {
		p.fail(cam, fmt.Errorf("%w: %w", errs.ErrGrab, err))
		return
	}

	if p.period > 0 && !cam.lastProcessed.IsZero() && now.Sub(cam.lastProcessed) < p.period {
		p.mu.Lock()
		cam.discarded++
		p.mu.Unlock()
		p.discarded.Add(1)
		return
	}

	frame, err := cam.dev.Retrieve()
	if err != nil {
		p.fail(cam, fmt.Errorf("%w: %w", errs.ErrRetrieve, err))
		return
	}
	cam.lastProcessed = now

	started := p.now()
	result, err := p.detector.Detect(p.ctx, frame, p.cfg.Confidence)
	latency := p.now().Sub(started)
	if err != nil {
		frame.Close()
		p.reportError(id, fmt.Errorf("detect: %w", err))
		return
	}

	p.mu.Lock()
	cam.processed++
	p.mu.Unlock()
	p.processed.Add(1)

	p.events.Push(FrameEvent{
		CameraID:   id,
		Raw:        frame,
		Annotated:  result.Annotated,
		Latency:    latency,
		Detections: result.Detections,
		At:         now,
	})
}

// fail releases the handle of a connected camera and schedules a reconnect.
func (p *Poller) fail(cam *camera, err error) {
	if cam.dev != nil {
		cam.dev.Close()
	}

	p.mu.Lock()
	cam.detach()
	cam.attempts++
	attempt := cam.attempts
	p.mu.Unlock()

	p.reportError(cam.src.ID, err)
	p.notify(cam)
	p.scheduleReconnect(cam, attempt)
}

func (p *Poller) scheduleReconnect(cam *camera, attempt int) {
	if p.cfg.Reconnect.Exhausted(attempt) {
		p.retire(cam)
		return
	}

	delay := p.cfg.Reconnect.Backoff(attempt)
	p.log.Warning("Camera %d disconnected, reconnect attempt %d in %v", cam.src.ID, attempt, delay)

	p.timers.Add(1)
	cancel := p.after(delay, func() {
		defer p.timers.Done()
		p.reconnect(cam)
	})
	cam.cancelRetry = func() {
		if cancel() {
			p.timers.Done()
		}
	}
}

// reconnect runs on the timer goroutine so a slow open never stalls the loop.
// The new handle is handed to the loop through the reconnected channel.
func (p *Poller) reconnect(cam *camera) {
	select {
	case <-p.stop:
		return
	default:
	}

	p.mu.Lock()
	cam.state = models.StateConnecting
	src := cam.src
	p.mu.Unlock()
	p.reconnects.Add(1)

	dev, err := p.open(p.ctx, src)

	select {
	case p.reconnected <- reconnectResult{cam: cam, dev: dev, err: err}:
	case <-p.stop:
		if dev != nil {
			dev.Close()
		}
	}
}

func (p *Poller) drainReconnects() {
	for {
		select {
		case res := <-p.reconnected:
			p.handleReconnect(res)
		default:
			return
		}
	}
}

func (p *Poller) handleReconnect(res reconnectResult) {
	cam := res.cam
	cam.cancelRetry = nil

	if res.err != nil {
		p.mu.Lock()
		cam.state = models.StateDisconnected
		cam.attempts++
		attempt := cam.attempts
		p.mu.Unlock()

		p.reportError(cam.src.ID, fmt.Errorf("%w: %w", errs.ErrCameraOpen, res.err))
		p.scheduleReconnect(cam, attempt)
		return
	}

	p.mu.Lock()
	cam.attach(res.dev)
	p.mu.Unlock()

	p.log.Info("Camera %d reconnected", cam.src.ID)
	p.notify(cam)
}

// retire drops a camera whose retry budget is spent.
func (p *Poller) retire(cam *camera) {
	p.mu.Lock()
	cam.state = models.StateFailed
	for i, c := range p.cameras {
		if c == cam {
			p.cameras = append(p.cameras[:i], p.cameras[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	p.reportError(cam.src.ID, fmt.Errorf("%w: camera %d after %d attempts",
		errs.ErrRetriesExhausted, cam.src.ID, p.cfg.Reconnect.MaxRetries))
	p.notify(cam)
}

// Stop signals the loop, waits for it (an in-flight inference call delays
// this), cancels pending reconnects, releases every handle and closes the
// event queue.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.looping {
		p.mu.Unlock()
		return
	}
	p.looping = false
	p.mu.Unlock()

	close(p.stop)
	p.cancel()
	<-p.done

	p.release()
	p.log.Info("Poller stopped")
}

func (p *Poller) release() {
	p.mu.Lock()
	cams := p.cameras
	p.cameras = nil
	p.mu.Unlock()

	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	if p.cancel != nil {
		p.cancel()
	}

	for _, cam := range cams {
		if cam.cancelRetry != nil {
			cam.cancelRetry()
			cam.cancelRetry = nil
		}
	}
	p.timers.Wait()

	if p.reconnected != nil {
	drain:
		for {
			select {
			case res := <-p.reconnected:
				if res.dev != nil {
					res.dev.Close()
				}
			default:
				break drain
			}
		}
	}

	for _, cam := range cams {
		if cam.dev != nil {
			cam.dev.Close()
			cam.dev = nil
		}
	}

	p.events.Close()
}

func (p *Poller) Pause() {
	p.pause.Pause()
	p.log.Info("Poller paused")
}

func (p *Poller) Resume() {
	p.pause.Resume()
	p.log.Info("Poller resumed")
}

func (p *Poller) Paused() bool {
	return p.pause.Paused()
}

// Events returns the result queue. It is closed after Stop.
func (p *Poller) Events() <-chan FrameEvent {
	return p.events.C()
}

// Cameras returns the registrations in registration order.
func (p *Poller) Cameras() []models.Camera {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.Camera, 0, len(p.cameras))
	for _, cam := range p.cameras {
		out = append(out, cam.model())
	}
	return out
}

func (p *Poller) reportError(cameraID int, err error) {
	p.errors.Add(1)
	p.log.Error("Camera %d: %v", cameraID, err)
	if p.onError != nil {
		p.onError(cameraID, err)
	}
}

func (p *Poller) notify(cam *camera) {
	if p.onStatus == nil {
		return
	}
	p.mu.Lock()
	m := cam.model()
	p.mu.Unlock()
	p.onStatus(m)
}
