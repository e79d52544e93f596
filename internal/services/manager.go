package services

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"camwatch/internal/dto"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/services/poller"
)

type Encoder interface {
	JPEG(frame poller.Frame) ([]byte, error)
	Image(frame poller.Frame) (image.Image, error)
}

type Previewer interface {
	Base64(img image.Image) (string, error)
}

// Colors maps a class id to the #rrggbb color used for its boxes.
type Colors interface {
	Hex(classID int) string
}

type Broadcaster interface {
	BroadcastJSON(v any) error
	GetClientCount() int
}

type SnapshotSink interface {
	AddSnapshot(data []byte, cameraID int, detections []models.Detection) bool
}

type Recorder interface {
	Record(ev poller.FrameEvent) error
	Close(cameraID int) (*models.Segment, error)
	CloseAll() error
}

// Manager consumes poller events: every frame goes to the viewers and the
// recorder, frames with detections are also kept as snapshots.
type Manager struct {
	encoder   Encoder
	preview   Previewer
	colors    Colors
	hub       Broadcaster
	snapshots SnapshotSink
	recorder  Recorder
	logger    *logger.Logger

	handled atomic.Uint64
	stored  atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds a manager. colors and recorder may be nil.
func NewManager(encoder Encoder, preview Previewer, colors Colors, hub Broadcaster, snapshots SnapshotSink, recorder Recorder, logger *logger.Logger) *Manager {
	return &Manager{
		encoder:   encoder,
		preview:   preview,
		colors:    colors,
		hub:       hub,
		snapshots: snapshots,
		recorder:  recorder,
		logger:    logger,
	}
}

// Start consumes events in the background until the channel is closed. Once
// ctx is done, remaining events are released without being handled.
func (m *Manager) Start(ctx context.Context, events <-chan poller.FrameEvent) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, events)
	}()

	m.logger.Info("Manager started")
}

func (m *Manager) run(ctx context.Context, events <-chan poller.FrameEvent) {
	defer func() {
		if m.recorder == nil {
			return
		}
		if err := m.recorder.CloseAll(); err != nil {
			m.logger.Error("Failed to close recordings: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.discard(events)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.HandleEvent(ev)
		}
	}
}

// discard releases events until the producer closes the channel.
func (m *Manager) discard(events <-chan poller.FrameEvent) {
	n := 0
	for ev := range events {
		ev.Release()
		n++
	}
	if n > 0 {
		m.logger.Info("Released %d unhandled event(s)", n)
	}
}

// HandleEvent fans one event out and releases its frames.
func (m *Manager) HandleEvent(ev poller.FrameEvent) {
	defer ev.Release()
	m.handled.Add(1)

	frame := ev.Annotated
	if frame == nil {
		frame = ev.Raw
	}

	if m.hub.GetClientCount() > 0 {
		m.SendToViewers(ev, frame)
	}

	if len(ev.Detections) > 0 {
		data, err := m.encoder.JPEG(frame)
		if err != nil {
			m.logger.Error("Failed to encode snapshot for camera %d: %v", ev.CameraID, err)
		} else if m.snapshots.AddSnapshot(data, ev.CameraID, ev.Detections) {
			m.stored.Add(1)
		}
	}

	if m.recorder != nil {
		if err := m.recorder.Record(ev); err != nil {
			m.logger.Error("Failed to record camera %d: %v", ev.CameraID, err)
		}
	}
}

func (m *Manager) SendToViewers(ev poller.FrameEvent, frame poller.Frame) {
	img, err := m.encoder.Image(frame)
	if err != nil {
		m.logger.Error("Failed to convert frame from camera %d: %v", ev.CameraID, err)
		return
	}

	encoded, err := m.preview.Base64(img)
	if err != nil {
		m.logger.Error("Failed to encode preview for camera %d: %v", ev.CameraID, err)
		return
	}

	detections := ev.Detections
	if detections == nil {
		detections = []models.Detection{}
	}

	msg := dto.FrameMessage{
		Camera:     ev.CameraID,
		Image:      encoded,
		Detections: detections,
		Colors:     m.classColors(detections),
		LatencyMs:  ev.Latency.Milliseconds(),
		Timestamp:  ev.At,
	}
	if err := m.hub.BroadcastJSON(msg); err != nil {
		m.logger.Error("Failed to broadcast frame: %v", err)
	}
}

func (m *Manager) classColors(detections []models.Detection) map[int]string {
	if m.colors == nil || len(detections) == 0 {
		return nil
	}
	out := make(map[int]string, len(detections))
	for _, d := range detections {
		if _, ok := out[d.ClassID]; !ok {
			out[d.ClassID] = m.colors.Hex(d.ClassID)
		}
	}
	return out
}

// CameraStatus forwards a camera state change to the viewers. A camera that
// lost its stream also ends its current recording.
func (m *Manager) CameraStatus(cam models.Camera) {
	if m.recorder != nil && cam.State != models.StateConnected {
		if _, err := m.recorder.Close(cam.ID); err != nil {
			m.logger.Error("Failed to close recording of camera %d: %v", cam.ID, err)
		}
	}

	if err := m.hub.BroadcastJSON(dto.StatusMessage{Type: "camera", Camera: cam}); err != nil {
		m.logger.Error("Failed to broadcast camera status: %v", err)
	}
}

// Handled returns how many events were consumed.
func (m *Manager) Handled() uint64 {
	return m.handled.Load()
}

// Stored returns how many snapshots were accepted by the buffer.
func (m *Manager) Stored() uint64 {
	return m.stored.Load()
}

// Stop cancels the consumer and waits for it, closing open recordings. The
// events channel must be closed for Stop to return.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("Manager stopped: %d event(s) handled, %d snapshot(s) stored", m.Handled(), m.Stored())
}
