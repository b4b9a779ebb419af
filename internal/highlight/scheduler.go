package highlight

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending deferred call.
type Timer interface {
	// Stop cancels the call. It returns false if the call already ran or
	// was already stopped.
	Stop() bool
}

// Scheduler runs a callback after a delay. The controller depends only on
// this, never on a particular event loop's timer.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// ClockScheduler schedules on the wall clock with time.AfterFunc. Callbacks
// run on their own goroutine.
type ClockScheduler struct{}

// AfterFunc implements Scheduler.
func (ClockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler is a Scheduler driven by Advance instead of the clock.
// Callbacks run synchronously on the goroutine calling Advance, which makes
// debounce behavior deterministic in tests and in hosts that own their loop.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	due     time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, due: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves time forward by d, running every callback that falls due in
// order. Callbacks may schedule more work; it runs too if it falls due within
// the window. Returns the number of callbacks run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	fired := 0
	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.now = target
			s.compactLocked()
			s.mu.Unlock()
			return fired
		}
		s.now = next.due
		next.fired = true
		s.mu.Unlock()

		next.f()
		fired++
	}
}

// Pending returns the remaining delay of every armed timer, in firing order.
func (s *ManualScheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			active = append(active, t)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].due != active[j].due {
			return active[i].due < active[j].due
		}
		return active[i].seq < active[j].seq
	})

	out := make([]time.Duration, len(active))
	for i, t := range active {
		out[i] = t.due - s.now
	}
	return out
}

// nextDueLocked returns the earliest active timer due at or before limit.
func (s *ManualScheduler) nextDueLocked(limit time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range s.timers {
		if t.stopped || t.fired {
			continue
		}
		if t.due > limit {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (s *ManualScheduler) compactLocked() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
}
