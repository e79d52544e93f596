package poller

// CameraStats is the per-camera part of Stats.
type CameraStats struct {
	ID        int    `json:"id"`
	State     string `json:"state"`
	Processed uint64 `json:"processed"`
	Discarded uint64 `json:"discarded"`
	Attempts  int    `json:"reconnect_attempts"`
}

// Stats are cumulative counters since Start. Discarded counts frames grabbed
// and dropped by throttling; EventsDropped counts results evicted from a
// full queue.
type Stats struct {
	Processed         uint64        `json:"processed"`
	Discarded         uint64        `json:"discarded"`
	EventsDropped     uint64        `json:"events_dropped"`
	EventsQueued      int           `json:"events_queued"`
	ReconnectAttempts uint64        `json:"reconnect_attempts"`
	Errors            uint64        `json:"errors"`
	Paused            bool          `json:"paused"`
	Cameras           []CameraStats `json:"cameras"`
}

func (p *Poller) Stats() Stats {
	s := Stats{
		Processed:         p.processed.Load(),
		Discarded:         p.discarded.Load(),
		EventsDropped:     p.events.Dropped(),
		EventsQueued:      p.events.Len(),
		ReconnectAttempts: p.reconnects.Load(),
		Errors:            p.errors.Load(),
		Paused:            p.pause.Paused(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s.Cameras = make([]CameraStats, 0, len(p.cameras))
	for _, cam := range p.cameras {
		s.Cameras = append(s.Cameras, CameraStats{
			ID:        cam.src.ID,
			State:     cam.state,
			Processed: cam.processed,
			Discarded: cam.discarded,
			Attempts:  cam.attempts,
		})
	}
	return s
}
