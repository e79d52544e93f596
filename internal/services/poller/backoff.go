package poller

import "time"

// ReconnectConfig bounds the reconnect schedule of a camera that dropped.
type ReconnectConfig struct {
	InitialDelay time.Duration // delay before the first attempt
	MaxDelay     time.Duration // cap for the doubled delay
	MaxRetries   int           // consecutive failed attempts before giving up; 0 retries forever
}

// DefaultReconnectConfig returns the default schedule: 5s, 10s, 20s, ... capped at one minute.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialDelay: 5 * time.Second,
		MaxDelay:     time.Minute,
		MaxRetries:   10,
	}
}

// Backoff returns the delay before the given attempt (1-based):
// InitialDelay * 2^(attempt-1), capped at MaxDelay.
func (c ReconnectConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}

	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Exhausted reports whether attempt exceeds the retry budget.
func (c ReconnectConfig) Exhausted(attempt int) bool {
	return c.MaxRetries > 0 && attempt > c.MaxRetries
}
