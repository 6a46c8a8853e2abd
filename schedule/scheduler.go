// Package schedule provides cancellable one-shot tasks keyed by
// (spot, purpose).
//
// Scheduling a key that is already pending replaces the previous task.
// Fired callbacks must re-validate authoritative state themselves: a task
// may fire after the state it was scheduled for has moved on.
package schedule

import (
	"sync"
	"time"
)

// Purpose distinguishes the timers a single spot can carry.
type Purpose uint8

const (
	PurposeHoldExpiry Purpose = iota
	PurposeWarning
	PurposeExpiry
	PurposeOccupancy
	PurposeRelocation
)

// String returns a short name for logging.
func (p Purpose) String() string {
	switch p {
	case PurposeHoldExpiry:
		return "hold_expiry"
	case PurposeWarning:
		return "warning"
	case PurposeExpiry:
		return "expiry"
	case PurposeOccupancy:
		return "occupancy"
	case PurposeRelocation:
		return "relocation"
	default:
		return "unknown"
	}
}

// Key identifies a scheduled task.
type Key struct {
	SpotID  string
	Purpose Purpose
}

// Scheduler schedules cancellable one-shot tasks.
//
// Implementations must be safe for concurrent use.
type Scheduler interface {
	// Schedule runs fn after delay. A pending task with the same key is
	// cancelled and replaced.
	Schedule(key Key, delay time.Duration, fn func())

	// Cancel removes a pending task. Returns false if no task was pending.
	Cancel(key Key) bool

	// Stop cancels all pending tasks. The scheduler must not be reused.
	Stop()
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[Key]*time.Timer
	stopped bool
}

// NewTimerScheduler creates an empty TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[Key]*time.Timer),
	}
}

// Schedule implements Scheduler.
func (s *TimerScheduler) Schedule(key Key, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}

	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		stopped := s.stopped
		s.mu.Unlock()

		if !stopped {
			fn()
		}
	})
}

// Cancel implements Scheduler.
func (s *TimerScheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, key)
	return true
}

// Stop implements Scheduler.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
}

// Compile time check to ensure both implementations satisfy Scheduler.
var (
	_ Scheduler = (*TimerScheduler)(nil)
	_ Scheduler = (*Manual)(nil)
)
