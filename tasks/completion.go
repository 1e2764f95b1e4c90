package tasks

import "sync"

// Completion is a one-shot readiness signal: the conditioning activity
// signals it exactly once, the measurement activity awaits it. Closing a
// channel publishes with release semantics and observing the close acquires,
// so everything conditioning did before Signal is visible to the waiter.
// There is no way to un-signal.
type Completion struct {
	once sync.Once
	ch   chan struct{}
}

func NewCompletion() *Completion {
	return &Completion{ch: make(chan struct{})}
}

// Signal marks completion. Safe to call more than once; only the first call
// has an effect.
func (c *Completion) Signal() {
	c.once.Do(func() { close(c.ch) })
}

// Done returns a channel that is closed once Signal has been called.
func (c *Completion) Done() <-chan struct{} { return c.ch }

// IsDone reports whether Signal has been called, without blocking.
func (c *Completion) IsDone() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}
