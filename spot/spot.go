// Package spot implements the per-resource reservation state machine.
//
// A Spot moves between three states: available, advisory-held (soft lock)
// and committed (booking). All mutation is confined to a spot-local mutex,
// so different spots never contend with each other. Timers fired against a
// spot re-validate its authoritative state before acting; a stale timer is
// a no-op.
package spot

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/lotgo/model"
	"github.com/hupe1980/lotgo/schedule"
)

// Hooks are the callbacks a Spot uses to report externally visible effects.
// They are invoked outside the spot's critical section and must be cheap or
// redispatch internally. Nil hooks are skipped.
type Hooks struct {
	// StatusChanged reports a new externally visible status.
	StatusChanged func(spotID string, status model.SpotStatus)

	// Message delivers a human-readable notification.
	Message func(text string)

	// Expired reports that a committed booking timed out, so the identity
	// ledger can drop the spot. Not invoked for system bookings.
	Expired func(spotID, owner string)
}

// Spot is the state machine for one allocatable resource.
type Spot struct {
	id          string
	sched       schedule.Scheduler
	now         func() time.Time
	warningLead time.Duration
	hooks       Hooks

	mu        sync.Mutex
	booked    bool
	owner     string
	expiresAt time.Time
	holdOwner string
	holdUntil time.Time
	overrun   bool
}

// New creates an available Spot.
func New(id string, sched schedule.Scheduler, now func() time.Time, warningLead time.Duration, hooks Hooks) *Spot {
	if now == nil {
		now = time.Now
	}
	return &Spot{
		id:          id,
		sched:       sched,
		now:         now,
		warningLead: warningLead,
		hooks:       hooks,
	}
}

// ID returns the stable spot identifier.
func (s *Spot) ID() string {
	return s.id
}

// TryHold attempts to place (or refresh) an advisory hold.
//
// It succeeds if the spot is not committed, not pending expiry
// acknowledgment, and is either unheld, held by owner itself (TTL refresh),
// or held by a hold that has already expired by wall clock.
func (s *Spot) TryHold(owner string, ttl time.Duration) bool {
	s.mu.Lock()

	if s.booked || s.overrun {
		s.mu.Unlock()
		return false
	}
	if s.holdOwner != "" && s.holdOwner != owner && s.now().Before(s.holdUntil) {
		s.mu.Unlock()
		return false
	}

	s.holdOwner = owner
	s.holdUntil = s.now().Add(ttl)
	s.mu.Unlock()

	s.sched.Schedule(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeHoldExpiry}, ttl, func() {
		s.holdExpired(owner)
	})
	return true
}

// holdExpired clears a hold whose TTL elapsed. The hold may have been
// released, refreshed or superseded by a commit in the meantime.
func (s *Spot) holdExpired(owner string) {
	s.mu.Lock()
	if s.holdOwner != owner || s.booked || s.now().Before(s.holdUntil) {
		s.mu.Unlock()
		return
	}
	s.holdOwner = ""
	s.holdUntil = time.Time{}
	s.mu.Unlock()

	s.statusChanged(model.StatusAvailable)
	s.message(fmt.Sprintf("Soft lock for spot %s has expired.", s.id))
}

// ReleaseHold clears the advisory hold if owner currently holds it.
func (s *Spot) ReleaseHold(owner string) bool {
	s.mu.Lock()
	if s.holdOwner != owner {
		s.mu.Unlock()
		return false
	}
	s.holdOwner = ""
	s.holdUntil = time.Time{}
	s.mu.Unlock()

	s.sched.Cancel(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeHoldExpiry})
	return true
}

// Commit atomically flips an uncommitted spot to committed for duration.
//
// A commit from a real identity clears any advisory hold, even one held by
// a different identity. A system commit fails against a live, unexpired
// hold owned by someone else: automated callers must not evict a human
// mid-flow.
func (s *Spot) Commit(owner string, duration time.Duration) bool {
	system := owner == model.SystemUserID

	s.mu.Lock()
	if s.booked || s.overrun {
		s.mu.Unlock()
		return false
	}
	if system && s.holdOwner != "" && s.holdOwner != owner && s.now().Before(s.holdUntil) {
		s.mu.Unlock()
		return false
	}

	hadHold := s.holdOwner != ""
	s.booked = true
	s.owner = owner
	s.expiresAt = s.now().Add(duration)
	s.holdOwner = ""
	s.holdUntil = time.Time{}
	s.mu.Unlock()

	if hadHold {
		s.sched.Cancel(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeHoldExpiry})
	}

	if !system {
		warnIn := duration - s.warningLead
		if warnIn < 0 {
			warnIn = 0
		}
		s.sched.Schedule(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeWarning}, warnIn, func() {
			s.warn(owner)
		})
	}
	s.sched.Schedule(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeExpiry}, duration, func() {
		s.expire(owner)
	})

	return true
}

// warn emits the pre-expiry warning if the booking is still in place.
func (s *Spot) warn(owner string) {
	s.mu.Lock()
	stale := !s.booked || s.owner != owner
	s.mu.Unlock()

	if stale {
		return
	}
	s.message(fmt.Sprintf("Warning: booking for spot %s expires in %s.", s.id, s.warningLead))
}

// expire releases a timed-out commitment.
//
// Human bookings enter the overrun state pending acknowledgment; system
// bookings revert straight to available.
func (s *Spot) expire(owner string) {
	s.mu.Lock()
	if !s.booked || s.owner != owner {
		s.mu.Unlock()
		return
	}
	s.booked = false
	s.owner = ""
	s.expiresAt = time.Time{}

	system := owner == model.SystemUserID
	if !system {
		s.overrun = true
	}
	s.mu.Unlock()

	s.sched.Cancel(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeWarning})

	if system {
		s.statusChanged(model.StatusAvailable)
		s.message(fmt.Sprintf("Booking for spot %s has expired.", s.id))
		return
	}

	if s.hooks.Expired != nil {
		s.hooks.Expired(s.id, owner)
	}
	s.statusChanged(model.StatusTimeExceeded)
	s.message(fmt.Sprintf("Booking for spot %s has expired. Acknowledge to release the spot.", s.id))
}

// Acknowledge completes the two-phase expiry and recycles the spot.
func (s *Spot) Acknowledge() bool {
	s.mu.Lock()
	if !s.overrun {
		s.mu.Unlock()
		return false
	}
	s.overrun = false
	s.mu.Unlock()

	s.statusChanged(model.StatusAvailable)
	s.message(fmt.Sprintf("Spot %s is now available.", s.id))
	return true
}

// Release unconditionally clears a commitment, cancelling pending timers.
// Returns whether a state change occurred.
func (s *Spot) Release() (owner string, released bool) {
	s.mu.Lock()
	if !s.booked {
		s.mu.Unlock()
		return "", false
	}
	owner = s.owner
	s.booked = false
	s.owner = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	s.sched.Cancel(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeWarning})
	s.sched.Cancel(schedule.Key{SpotID: s.id, Purpose: schedule.PurposeExpiry})
	return owner, true
}

// IsBooked reports whether the spot is committed.
func (s *Spot) IsBooked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.booked
}

// Owner returns the committed owner, or "" if uncommitted.
func (s *Spot) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// IsOverrun reports whether the spot awaits expiry acknowledgment.
func (s *Spot) IsOverrun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrun
}

// IsHeld reports whether a live advisory hold exists.
func (s *Spot) IsHeld() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdOwner != "" && s.now().Before(s.holdUntil)
}

// IsHeldBy reports whether owner currently holds the advisory hold.
func (s *Spot) IsHeldBy(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdOwner == owner && s.now().Before(s.holdUntil)
}

// IsHeldByOther reports whether someone other than owner holds a live hold.
func (s *Spot) IsHeldByOther(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdOwner != "" && s.holdOwner != owner && s.now().Before(s.holdUntil)
}

// RemainingTime returns the time left on the current commitment, or 0.
func (s *Spot) RemainingTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booked {
		return 0
	}
	d := s.expiresAt.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func (s *Spot) statusChanged(status model.SpotStatus) {
	if s.hooks.StatusChanged != nil {
		s.hooks.StatusChanged(s.id, status)
	}
}

func (s *Spot) message(text string) {
	if s.hooks.Message != nil {
		s.hooks.Message(text)
	}
}
