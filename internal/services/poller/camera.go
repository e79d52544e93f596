package poller

import (
	"time"

	"camwatch/internal/models"
)

// camera is the poller-side state of one registration. dev and
// lastProcessed belong to the loop goroutine; the rest is guarded by
// Poller.mu.
type camera struct {
	src   models.Source
	dev   Device
	state string

	width, height int
	fps           float64

	lastProcessed time.Time
	attempts      int
	cancelRetry   func()

	processed uint64
	discarded uint64
}

func (c *camera) attach(dev Device) {
	c.dev = dev
	c.state = models.StateConnected
	c.attempts = 0
	c.lastProcessed = time.Time{}
	c.width, c.height = dev.Resolution()
	c.fps = dev.FPS()
}

func (c *camera) detach() {
	c.dev = nil
	c.state = models.StateDisconnected
}

func (c *camera) model() models.Camera {
	return models.Camera{
		ID:      c.src.ID,
		Name:    c.src.Name,
		Width:   c.width,
		Height:  c.height,
		FPSHint: c.fps,
		Online:  c.state == models.StateConnected,
		State:   c.state,
	}
}
