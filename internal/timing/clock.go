// Package timing measures how long a learner spends on a question and schedules delayed work.
package timing

import (
	"time"
)

// Timer is a scheduled function. Stop reports whether the call was prevented.
type Timer interface {
	Stop() bool
}

// Clock is the source of time for the session
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Stopwatch records when a question was shown and reports the elapsed seconds once.
// The zero value is not running.
type Stopwatch struct {
	clock     Clock
	startedAt time.Time
	running   bool
}

// NewStopwatch creates a stopwatch reading from clock
func NewStopwatch(clock Clock) *Stopwatch {
	return &Stopwatch{clock: clock}
}

// Start captures the presentation timestamp, discarding any previous one
func (s *Stopwatch) Start() {
	s.startedAt = s.clock.Now()
	s.running = true
}

// Running reports whether a timestamp is waiting to be consumed
func (s *Stopwatch) Running() bool {
	return s.running
}

// Lap returns the seconds elapsed since Start and consumes the timestamp.
// It returns 0 when the stopwatch is not running.
func (s *Stopwatch) Lap() float64 {
	if !s.running {
		return 0
	}
	s.running = false
	elapsed := s.clock.Now().Sub(s.startedAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed.Seconds()
}

// Restore puts back a timestamp consumed by Lap, used when a submission is rolled back
func (s *Stopwatch) Restore(startedAt time.Time) {
	s.startedAt = startedAt
	s.running = true
}

// StartedAt returns the last captured timestamp
func (s *Stopwatch) StartedAt() time.Time {
	return s.startedAt
}
