package clock

import "time"

// Timer expires a fixed duration after Start. It never blocks.
type Timer struct {
	clock    Clock
	duration time.Duration
	started  bool
	end      time.Duration
}

// NewTimer creates a stopped timer.
func NewTimer(c Clock, d time.Duration) *Timer {
	return &Timer{clock: c, duration: d}
}

// Seconds is a convenience for the settings layer, which stores durations as
// floating point seconds.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Start (re)arms the timer from the current clock reading.
func (t *Timer) Start() {
	t.started = true
	t.end = t.clock.Now() + t.duration
}

// Started reports whether Start has been called.
func (t *Timer) Started() bool {
	return t.started
}

// Expired reports whether the timer was started and its duration has passed.
func (t *Timer) Expired() bool {
	return t.started && t.clock.Now() >= t.end
}

// Remaining returns the time left, or zero once expired or if never started.
func (t *Timer) Remaining() time.Duration {
	if !t.started {
		return 0
	}
	left := t.end - t.clock.Now()
	if left < 0 {
		return 0
	}
	return left
}

// Duration returns the configured duration.
func (t *Timer) Duration() time.Duration {
	return t.duration
}
