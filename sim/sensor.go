package sim

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lotgo/model"
	"github.com/hupe1980/lotgo/schedule"
	"github.com/hupe1980/lotgo/testutil"
)

const (
	occupyChance       = 0.8
	earlyExitChance    = 0.2
	wrongParkingChance = 0.8
)

// SensorSim emulates the lot's occupancy sensors. Each sweep it lets cars
// enter system-reserved spots (after an entry delay, with re-validation),
// lets some leave early, and occasionally stages a wrong-parking incident
// against a user-booked spot that resolves after a relocation delay.
type SensorSim struct {
	engine Engine
	rng    *testutil.RNG
	sched  schedule.Scheduler

	pollInterval  time.Duration
	entryDelay    time.Duration
	relocateDelay time.Duration

	ownSched bool

	mu        sync.Mutex
	corrected map[string]struct{}

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSensorSim creates a SensorSim. It does nothing until Start; Tick can
// be called directly for a single sweep.
func NewSensorSim(engine Engine, optFns ...Option) *SensorSim {
	o := applyOptions(optFns)

	sched := o.scheduler
	ownSched := false
	if sched == nil {
		sched = schedule.NewTimerScheduler()
		ownSched = true
	}

	return &SensorSim{
		engine:        engine,
		rng:           testutil.NewRNG(o.seed),
		sched:         sched,
		pollInterval:  o.pollInterval,
		entryDelay:    o.entryDelay,
		relocateDelay: o.relocateDelay,
		ownSched:      ownSched,
		corrected:     make(map[string]struct{}),
		stopCh:        make(chan struct{}),
	}
}

// Start launches the periodic sweep. Subsequent calls are no-ops.
func (s *SensorSim) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.loop()
}

// Stop terminates the sweep loop and cancels pending delayed actions when
// the simulator owns its scheduler. Safe to call twice.
func (s *SensorSim) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()

	if s.ownSched {
		s.sched.Stop()
	}
}

func (s *SensorSim) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick performs one sensor sweep over the whole lot.
func (s *SensorSim) Tick() {
	for _, id := range s.engine.SpotIDs() {
		// User bookings and soft-locked spots are out of sensor scope.
		if s.engine.IsUserBooked(id) || s.engine.IsSoftLocked(id) {
			continue
		}

		switch s.engine.GetSpotStatus(id, "") {
		case model.StatusReservedOccupied:
			if s.rng.Chance(earlyExitChance) {
				s.engine.NotifyStatus(id, model.StatusReserved)
			}
		case model.StatusReserved:
			if s.rng.Chance(occupyChance) {
				s.scheduleEntry(id)
			}
		}
	}

	if s.rng.Chance(wrongParkingChance) {
		s.stageWrongParking()
	}
}

// scheduleEntry lets a car roll into a reserved spot after the entry delay.
// The reservation may be gone by then, so the state is checked again.
func (s *SensorSim) scheduleEntry(spotID string) {
	s.sched.Schedule(schedule.Key{SpotID: spotID, Purpose: schedule.PurposeOccupancy}, s.entryDelay, func() {
		if s.engine.IsBooked(spotID) && s.engine.GetSpotStatus(spotID, "") == model.StatusReserved {
			s.engine.NotifyStatus(spotID, model.StatusReservedOccupied)
		}
	})
}

// stageWrongParking flags a free spot as wrongly occupied by the car of a
// user-booked spot, then resolves the incident after the relocation delay.
// Each user spot is targeted at most once per run.
func (s *SensorSim) stageWrongParking() {
	var userBooked []string

	s.mu.Lock()
	for _, id := range s.engine.SpotIDs() {
		if !s.engine.IsUserBooked(id) {
			continue
		}
		if _, done := s.corrected[id]; done {
			continue
		}
		userBooked = append(userBooked, id)
	}
	if len(userBooked) == 0 {
		s.mu.Unlock()
		return
	}
	correct := s.rng.Pick(userBooked)
	s.corrected[correct] = struct{}{}
	s.mu.Unlock()

	plate := "UNKNOWN"
	for _, userID := range s.engine.UserIDs() {
		if detail, ok := s.engine.UserBookings(userID)[correct]; ok && detail.Plate != "" {
			plate = detail.Plate
			break
		}
	}

	var candidates []string
	for _, id := range s.engine.SpotIDs() {
		if id == correct || s.engine.IsUserBooked(id) {
			continue
		}
		switch s.engine.GetSpotStatus(id, "") {
		case model.StatusBooked, model.StatusReservedOccupied, model.StatusWrongParking:
			continue
		}
		candidates = append(candidates, id)
	}
	wrong := s.rng.Pick(candidates)
	if wrong == "" {
		return
	}

	s.engine.NotifyStatus(wrong, model.StatusWrongParking)
	s.engine.NotifyUser(fmt.Sprintf("Wrong parking detected: plate %s belongs in spot %s.", plate, correct))

	s.sched.Schedule(schedule.Key{SpotID: wrong, Purpose: schedule.PurposeRelocation}, s.relocateDelay, func() {
		s.engine.NotifyStatus(wrong, model.StatusAvailable)

		// Re-broadcast only if the booking survived the incident.
		if s.engine.IsBooked(correct) && s.engine.IsUserBooked(correct) {
			s.engine.NotifyStatus(correct, model.StatusBooked)
		}
	})
}
