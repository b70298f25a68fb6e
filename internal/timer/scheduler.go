package timer

import (
	"sync"
	"time"
)

// Scheduler is a tick source. Every calls fn once per interval until the
// returned cancel function is called. After cancel returns, fn may still be
// invoked at most once by a tick that was already in flight, so callers must
// guard against stale ticks themselves.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// RealScheduler drives ticks from wall-clock time. When a locker is given,
// every tick runs while holding it so ticks serialize with the owner's other
// state mutations.
type RealScheduler struct {
	locker sync.Locker
}

// NewRealScheduler creates a RealScheduler. locker may be nil.
func NewRealScheduler(locker sync.Locker) *RealScheduler {
	return &RealScheduler{locker: locker}
}

// Every starts a goroutine ticking at interval.
func (s *RealScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// A tick and a cancel can be ready together; cancel wins.
				select {
				case <-done:
					return
				default:
				}
				s.run(fn)
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

func (s *RealScheduler) run(fn func()) {
	if s.locker == nil {
		fn()
		return
	}
	s.locker.Lock()
	defer s.locker.Unlock()
	fn()
}

// Manual is a virtual clock and scheduler for deterministic tests and
// replays. Nothing happens until Advance is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	entries []*manualEntry
}

type manualEntry struct {
	every   time.Duration
	elapsed time.Duration
	fn      func()
	active  bool
}

// NewManual creates a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers fn to run each time the virtual clock crosses interval.
func (m *Manual) Every(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		interval = time.Second
	}
	e := &manualEntry{every: interval, fn: fn, active: true}

	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		e.active = false
	}
}

// Advance moves the virtual clock forward by whole seconds, firing due
// ticks after each second. Callbacks run without the clock's lock held, so
// they may cancel themselves or register new ticks.
func (m *Manual) Advance(seconds int) {
	for i := 0; i < seconds; i++ {
		m.mu.Lock()
		m.now = m.now.Add(time.Second)
		var due []*manualEntry
		live := m.entries[:0]
		for _, e := range m.entries {
			if !e.active {
				continue
			}
			live = append(live, e)
			e.elapsed += time.Second
			if e.elapsed >= e.every {
				e.elapsed -= e.every
				due = append(due, e)
			}
		}
		m.entries = live
		m.mu.Unlock()

		for _, e := range due {
			m.mu.Lock()
			active := e.active
			m.mu.Unlock()
			if active {
				e.fn()
			}
		}
	}
}

// Pending reports how many tick registrations are still active.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.active {
			n++
		}
	}
	return n
}
