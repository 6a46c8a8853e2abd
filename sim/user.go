package sim

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lotgo/model"
	"github.com/hupe1980/lotgo/testutil"
)

const (
	bookChance         = 0.3
	cancelChance       = 0.2
	shortBookingChance = 0.2
	maxBookingHours    = 24
)

// UserSim generates automated load: it alternates between booking a random
// free spot on behalf of the system identity and cancelling a random
// system-held spot.
type UserSim struct {
	engine Engine
	rng    *testutil.RNG

	bookInterval   time.Duration
	cancelInterval time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewUserSim creates a UserSim. It does nothing until Start.
func NewUserSim(engine Engine, optFns ...Option) *UserSim {
	o := applyOptions(optFns)

	return &UserSim{
		engine:         engine,
		rng:            testutil.NewRNG(o.seed),
		bookInterval:   o.bookInterval,
		cancelInterval: o.cancelInterval,
		stopCh:         make(chan struct{}),
	}
}

// Start launches the simulation loop. Subsequent calls are no-ops.
func (s *UserSim) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.loop()
}

// Stop terminates the loop and waits for it to exit. Safe to call twice.
func (s *UserSim) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *UserSim) loop() {
	defer s.wg.Done()

	book := true
	for {
		var wait time.Duration
		if book {
			s.TryBook()
			wait = s.bookInterval
		} else {
			s.TryCancel()
			wait = s.cancelInterval
		}
		book = !book

		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// TryBook books a random free spot with probability bookChance. Durations
// are uniform over 1 to 24 hours; a one-hour pick occasionally becomes a
// 30-minute short stay. Returns whether a booking was issued.
func (s *UserSim) TryBook() bool {
	var free []string
	for _, id := range s.engine.SpotIDs() {
		if !s.engine.IsBooked(id) {
			free = append(free, id)
		}
	}
	if len(free) == 0 || !s.rng.Chance(bookChance) {
		return false
	}

	spotID := s.rng.Pick(free)
	hours := s.rng.Intn(maxBookingHours) + 1

	duration := time.Duration(hours) * time.Hour
	label := fmt.Sprintf("%d hours", hours)
	if hours == 1 {
		if s.rng.Chance(shortBookingChance) {
			duration = 30 * time.Minute
			label = "30 minutes"
		} else {
			label = "1 hour"
		}
	}

	s.engine.BookSpot(spotID, model.SystemUserID, "", label, duration, false)
	return true
}

// TryCancel cancels a random system-held spot with probability
// cancelChance. Spots in the user ledger are never touched. Returns
// whether a cancellation was issued.
func (s *UserSim) TryCancel() bool {
	var system []string
	for _, id := range s.engine.GetAllBookedSpots() {
		if !s.engine.IsUserBooked(id) {
			system = append(system, id)
		}
	}
	if len(system) == 0 || !s.rng.Chance(cancelChance) {
		return false
	}

	s.engine.CancelBooking(s.rng.Pick(system))
	return true
}
