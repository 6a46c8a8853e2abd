// Package sim contains load generators that exercise the engine from the
// outside: randomized automated bookings and cancellations, plus sensor
// events for occupancy and wrong-parking detection.
//
// The simulators only call the public engine surface. Randomness comes
// from a seeded testutil.RNG, so a fixed seed reproduces a run exactly.
package sim

import (
	"time"

	"github.com/hupe1980/lotgo/model"
	"github.com/hupe1980/lotgo/schedule"
)

// Engine is the surface the simulators drive. *lotgo.Engine satisfies it.
type Engine interface {
	SpotIDs() []string
	GetAllBookedSpots() []string
	GetSpotStatus(spotID, userID string) model.SpotStatus
	IsBooked(spotID string) bool
	IsUserBooked(spotID string) bool
	IsSoftLocked(spotID string) bool
	BookSpot(spotID, userID, plate, label string, duration time.Duration, priority bool) *model.Future
	CancelBooking(spotID string) *model.Future
	NotifyStatus(spotID string, status model.SpotStatus)
	NotifyUser(text string)
	UserIDs() []string
	UserBookings(userID string) map[string]model.BookingDetail
}

type options struct {
	seed           int64
	bookInterval   time.Duration
	cancelInterval time.Duration
	pollInterval   time.Duration
	entryDelay     time.Duration
	relocateDelay  time.Duration
	scheduler      schedule.Scheduler
}

// Option configures a simulator.
type Option func(*options)

// WithSeed fixes the random seed. The default seed changes every run.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithBookInterval sets the pause after a booking attempt.
func WithBookInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.bookInterval = d
		}
	}
}

// WithCancelInterval sets the pause after a cancellation attempt.
func WithCancelInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cancelInterval = d
		}
	}
}

// WithPollInterval sets the sensor sweep interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithEntryDelay sets how long a car takes to enter a reserved spot.
func WithEntryDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.entryDelay = d
		}
	}
}

// WithRelocateDelay sets how long a wrongly parked car takes to relocate.
func WithRelocateDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.relocateDelay = d
		}
	}
}

// WithSimScheduler replaces the simulator's timer scheduler. Tests pass
// schedule.NewManual to fire delayed sensor actions deterministically.
func WithSimScheduler(s schedule.Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.scheduler = s
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		seed:           time.Now().UnixNano(),
		bookInterval:   6 * time.Second,
		cancelInterval: 10 * time.Second,
		pollInterval:   30 * time.Second,
		entryDelay:     5 * time.Second,
		relocateDelay:  15 * time.Second,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
