// Package timer implements the one-shot countdown used by timed quiz sessions.
package timer

import (
	"sync"
	"time"
)

// Timer counts down whole seconds and calls onExpire once each time a run
// reaches zero. A Timer created with initialSeconds <= 0 is inert.
type Timer struct {
	mu        sync.Mutex
	initial   int
	remaining int
	running   bool
	inert     bool
	gen       uint64
	cancel    func()
	onExpire  func()
	scheduler Scheduler
}

// Option configures a Timer.
type Option func(*Timer)

// WithScheduler replaces the default wall-clock tick source.
func WithScheduler(s Scheduler) Option {
	return func(t *Timer) { t.scheduler = s }
}

// New creates a stopped Timer.
func New(initialSeconds int, onExpire func(), opts ...Option) *Timer {
	t := &Timer{
		initial:   initialSeconds,
		remaining: initialSeconds,
		inert:     initialSeconds <= 0,
		onExpire:  onExpire,
	}
	if t.inert {
		t.initial, t.remaining = 0, 0
	}
	for _, o := range opts {
		o(t)
	}
	if t.scheduler == nil {
		t.scheduler = NewRealScheduler(nil)
	}
	return t
}

// Start begins counting down. It is a no-op while running, on an inert
// timer, or when no time remains.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inert || t.running || t.remaining <= 0 {
		return
	}
	t.running = true
	t.gen++
	gen := t.gen
	t.cancel = t.scheduler.Every(time.Second, func() { t.tick(gen) })
}

// Pause halts the countdown and keeps the remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	cancel := t.stopLocked()
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Reset stops the countdown and restores the initial time, or seconds[0]
// when a positive override is given.
func (t *Timer) Reset(seconds ...int) {
	t.mu.Lock()
	cancel := t.stopLocked()
	if !t.inert {
		t.remaining = t.initial
		if len(seconds) > 0 && seconds[0] > 0 {
			t.remaining = seconds[0]
		}
	}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// SecondsRemaining returns the time left, never negative.
func (t *Timer) SecondsRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether the countdown is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Inert reports whether the timer was created without a positive duration.
func (t *Timer) Inert() bool {
	return t.inert
}

// stopLocked marks the timer stopped and invalidates in-flight ticks.
// The caller runs the returned cancel after releasing t.mu.
func (t *Timer) stopLocked() func() {
	if !t.running {
		return nil
	}
	t.running = false
	t.gen++
	cancel := t.cancel
	t.cancel = nil
	return cancel
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining > 0 {
		t.mu.Unlock()
		return
	}

	cancel := t.stopLocked()
	onExpire := t.onExpire
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if onExpire != nil {
		onExpire()
	}
}
