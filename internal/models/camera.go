package models

// Camera state names reported in registrations.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateFailed       = "failed"
)

// Camera is the registration of a capture source known to the poller.
type Camera struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	FPSHint float64 `json:"fps_hint"`
	Online  bool    `json:"online"`
	State   string  `json:"state"`
}

// Source is a configured capture source: a local device index or a URL.
type Source struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// IsDevice reports whether the source is a local device index.
func (s Source) IsDevice() bool {
	return s.URL == ""
}
