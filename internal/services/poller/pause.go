package poller

import "sync"

// PauseToken gates a loop: while paused, Wait blocks until Resume or done.
type PauseToken struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func NewPauseToken() *PauseToken {
	return &PauseToken{resume: make(chan struct{})}
}

func (t *PauseToken) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
}

func (t *PauseToken) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused {
		return
	}
	t.paused = false
	close(t.resume)
	t.resume = make(chan struct{})
}

func (t *PauseToken) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Wait returns true once the token is not paused, or false if done closed first.
func (t *PauseToken) Wait(done <-chan struct{}) bool {
	for {
		t.mu.Lock()
		if !t.paused {
			t.mu.Unlock()
			return true
		}
		ch := t.resume
		t.mu.Unlock()

		select {
		case <-ch:
		case <-done:
			return false
		}
	}
}
