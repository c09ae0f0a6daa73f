package schedule

import (
	"sync"
	"time"
)

// DefaultRefresh is the display refresh rate assumed when none is configured.
const DefaultRefresh = 60

// Frames coalesces redraw requests onto refresh boundaries at
// origin + n*interval. A request made while one is pending replaces its
// callback but keeps its boundary, so continuous input never postpones the
// frame and at most one callback runs per interval.
type Frames struct {
	clock    Clock
	interval time.Duration
	origin   time.Time

	mu      sync.Mutex
	gen     uint64
	timer   Timer
	fn      func()
	due     time.Time
	dropped int
}

// NewFrames paces callbacks at hz frames per second. A hz that is not
// positive, or too large to give a whole nanosecond between frames, means
// DefaultRefresh. A nil clock means SystemClock.
func NewFrames(clock Clock, hz float64) *Frames {
	if clock == nil {
		clock = SystemClock{}
	}
	var interval time.Duration
	if hz > 0 {
		interval = time.Duration(float64(time.Second) / hz)
	}
	if interval <= 0 {
		interval = time.Second / DefaultRefresh
	}
	return &Frames{
		clock:    clock,
		interval: interval,
		origin:   clock.Now(),
	}
}

// Interval is the time between boundaries.
func (f *Frames) Interval() time.Duration { return f.interval }

// Request arranges for fn to run at the next boundary.
func (f *Frames) Request(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fn != nil {
		f.fn = fn
		f.dropped++
		return
	}
	now := f.clock.Now()
	f.due = f.nextBoundary(now)
	f.fn = fn
	f.gen++
	gen := f.gen
	f.timer = f.clock.AfterFunc(f.due.Sub(now), func() { f.fire(gen) })
}

// Cancel drops the pending callback. It reports whether one was pending.
func (f *Frames) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := f.fn != nil
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.fn = nil
	f.gen++
	return pending
}

// Pending reports whether a frame is waiting and when it is due.
func (f *Frames) Pending() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due, f.fn != nil
}

// Coalesced is the number of requests folded into an already pending frame.
func (f *Frames) Coalesced() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func (f *Frames) nextBoundary(now time.Time) time.Time {
	elapsed := now.Sub(f.origin)
	if elapsed < 0 {
		return f.origin
	}
	n := elapsed/f.interval + 1
	return f.origin.Add(n * f.interval)
}

func (f *Frames) fire(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || f.fn == nil {
		f.mu.Unlock()
		return
	}
	fn := f.fn
	f.fn = nil
	f.timer = nil
	f.mu.Unlock()
	fn()
}
