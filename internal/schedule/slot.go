// Package schedule provides the cancellable single-slot timers that pace
// redraws and settle change notifications.
package schedule

import (
	"sync"
	"time"
)

// Slot holds at most one pending callback. Scheduling a new callback cancels
// the previous one. A callback that already fired its timer but lost the race
// with Schedule or Cancel does not run.
type Slot struct {
	clock Clock

	mu    sync.Mutex
	gen   uint64
	timer Timer
	fn    func()
}

// NewSlot returns an empty slot. A nil clock means SystemClock.
func NewSlot(clock Clock) *Slot {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Slot{clock: clock}
}

// Schedule replaces any pending callback with f, due after d.
func (s *Slot) Schedule(d time.Duration, f func()) {
	s.mu.Lock()
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.fn = f
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
	s.mu.Unlock()
}

// Cancel drops the pending callback. It reports whether one was pending.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.fn != nil
	s.stopLocked()
	s.gen++
	return pending
}

// Flush runs the pending callback now, if any, on the calling goroutine.
func (s *Slot) Flush() bool {
	s.mu.Lock()
	f := s.fn
	s.stopLocked()
	s.gen++
	s.mu.Unlock()
	if f == nil {
		return false
	}
	f()
	return true
}

// Pending reports whether a callback is waiting.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}

func (s *Slot) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.fn == nil {
		s.mu.Unlock()
		return
	}
	f := s.fn
	s.fn = nil
	s.timer = nil
	s.mu.Unlock()
	f()
}

func (s *Slot) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.fn = nil
}

// DefaultSettle is the settling delay for change notifications.
const DefaultSettle = 200 * time.Millisecond

// Debouncer delivers a callback only after input has been quiet for Delay.
type Debouncer struct {
	Delay time.Duration
	slot  *Slot
}

// NewDebouncer returns a debouncer. A non-positive delay means DefaultSettle.
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSettle
	}
	return &Debouncer{Delay: delay, slot: NewSlot(clock)}
}

// Trigger restarts the settling delay and makes f the callback to run.
func (d *Debouncer) Trigger(f func()) { d.slot.Schedule(d.Delay, f) }

// Cancel drops the pending callback.
func (d *Debouncer) Cancel() bool { return d.slot.Cancel() }

// Flush runs the pending callback immediately.
func (d *Debouncer) Flush() bool { return d.slot.Flush() }

// Pending reports whether a callback is waiting to settle.
func (d *Debouncer) Pending() bool { return d.slot.Pending() }
