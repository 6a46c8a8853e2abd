package lotgo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lotgo "github.com/hupe1980/lotgo"
	"github.com/hupe1980/lotgo/model"
	"github.com/hupe1980/lotgo/schedule"
)

type captureObserver struct {
	mu       sync.Mutex
	statuses map[string][]model.SpotStatus
	messages []string
}

func newCaptureObserver() *captureObserver {
	return &captureObserver{statuses: make(map[string][]model.SpotStatus)}
}

func (c *captureObserver) OnSpotStatusChanged(spotID string, status model.SpotStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[spotID] = append(c.statuses[spotID], status)
}

func (c *captureObserver) OnUserMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
}

func (c *captureObserver) last(spotID string) (model.SpotStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	updates := c.statuses[spotID]
	if len(updates) == 0 {
		return 0, false
	}
	return updates[len(updates)-1], true
}

func (c *captureObserver) count(spotID string, status model.SpotStatus) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.statuses[spotID] {
		if s == status {
			n++
		}
	}
	return n
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, opts ...lotgo.Option) (*lotgo.Engine, *captureObserver) {
	t.Helper()

	base := []lotgo.Option{
		lotgo.WithThrottleInterval(-1),
		lotgo.WithQueuePollInterval(5 * time.Millisecond),
	}
	engine, err := lotgo.New(lotgo.DefaultLayout(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	obs := newCaptureObserver()
	engine.RegisterObserver(obs)
	return engine, obs
}

func waitBooking(t *testing.T, f *model.Future) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := f.Wait(ctx)
	require.NoError(t, err)
	return ok
}

func TestNewEmptyLayout(t *testing.T) {
	_, err := lotgo.New(lotgo.Layout{})
	assert.ErrorIs(t, err, lotgo.ErrEmptyLayout)
}

func TestSoftLockScenario(t *testing.T) {
	engine, _ := newTestEngine(t)

	assert.True(t, engine.TrySoftLock("B1", "U1", time.Minute))
	assert.True(t, engine.TrySoftLock("B1", "U1", time.Minute), "re-lock by holder refreshes")
	assert.False(t, engine.TrySoftLock("B1", "U2", time.Minute))

	assert.True(t, engine.IsSoftLockedBy("B1", "U1"))
	assert.True(t, engine.IsSoftLockedByOther("B1", "U2"))
	assert.Equal(t, model.StatusSoftLocked, engine.GetSpotStatus("B1", "U2"))
	assert.Equal(t, model.StatusAvailable, engine.GetSpotStatus("B1", "U1"), "holder sees its own lock as available")
}

func TestReleaseSoftLock(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.True(t, engine.TrySoftLock("B1", "U1", time.Minute))

	engine.ReleaseSoftLock("B1", "U2") // not the holder: no-op
	assert.True(t, engine.IsSoftLocked("B1"))

	engine.ReleaseSoftLock("B1", "U1")
	assert.False(t, engine.IsSoftLocked("B1"))
	assert.True(t, engine.TrySoftLock("B1", "U2", time.Minute))
}

func TestBookingRace(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.RegisterUser("U1", model.RoleRegular)
	engine.RegisterUser("U2", model.RoleRegular)

	f1 := engine.BookSpot("B1", "U1", "AA-111", "1 hour", time.Hour, false)
	f2 := engine.BookSpot("B1", "U2", "BB-222", "1 hour", time.Hour, false)

	ok1 := waitBooking(t, f1)
	ok2 := waitBooking(t, f2)

	assert.NotEqual(t, ok1, ok2, "exactly one of two racing commits wins")
	assert.True(t, engine.IsBooked("B1"))
	assert.Equal(t, model.StatusBooked, engine.GetSpotStatus("B1", "U2"))

	stats := engine.Stats()
	assert.Equal(t, int64(1), stats.BookingsProcessed)
	assert.Equal(t, int64(1), stats.FailedBookings)
}

func TestBookingUpdatesLedger(t *testing.T) {
	engine, obs := newTestEngine(t)
	engine.RegisterUser("U1", model.RoleVIP)

	f := engine.BookSpot("B2", "U1", "KX-1234", "2 hours", 2*time.Hour, false)
	require.True(t, waitBooking(t, f))

	assert.True(t, engine.IsUserBooked("B2"))
	bookings := engine.UserBookings("U1")
	require.Len(t, bookings, 1)
	assert.Equal(t, "KX-1234", bookings["B2"].Plate)
	assert.Equal(t, "2 hours", bookings["B2"].Duration)

	assert.Eventually(t, func() bool {
		s, ok := obs.last("B2")
		return ok && s == model.StatusBooked
	}, time.Second, 5*time.Millisecond)
}

func TestSystemBookingIsReserved(t *testing.T) {
	engine, obs := newTestEngine(t)

	f := engine.BookSpot("C1", model.SystemUserID, "", "3 hours", 3*time.Hour, false)
	require.True(t, waitBooking(t, f))

	assert.True(t, engine.IsBooked("C1"))
	assert.False(t, engine.IsUserBooked("C1"), "system bookings stay out of the user ledger")

	assert.Eventually(t, func() bool {
		s, ok := obs.last("C1")
		return ok && s == model.StatusReserved
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, model.StatusReserved, engine.GetSpotStatus("C1", "U1"))
}

func TestCancelBooking(t *testing.T) {
	engine, obs := newTestEngine(t)
	engine.RegisterUser("U1", model.RoleRegular)

	released := waitBooking(t, engine.CancelBooking("B3"))
	assert.False(t, released, "cancelling an uncommitted spot fails")
	assert.Equal(t, 0, obs.count("B3", model.StatusAvailable), "no notification on failed cancel")

	require.True(t, waitBooking(t, engine.BookSpot("B3", "U1", "", "1 hour", time.Hour, false)))
	assert.Eventually(t, func() bool {
		s, ok := obs.last("B3")
		return ok && s == model.StatusBooked
	}, time.Second, 5*time.Millisecond)

	released = waitBooking(t, engine.CancelBooking("B3"))
	assert.True(t, released)
	assert.False(t, engine.IsBooked("B3"))
	assert.False(t, engine.IsUserBooked("B3"))

	assert.Eventually(t, func() bool {
		return obs.count("B3", model.StatusAvailable) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestQuotaBoundary(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.RegisterUser("U1", model.RoleRegular)

	assert.False(t, engine.UserHasReachedLimit("U1"))
	require.True(t, waitBooking(t, engine.BookSpot("A1", "U1", "", "1 hour", time.Hour, false)))
	assert.True(t, engine.UserHasReachedLimit("U1"), "regular role caps at one booking")

	ok, err, resolved := engine.BookSpot("A2", "U1", "", "1 hour", time.Hour, false).TryResult()
	require.True(t, resolved)
	assert.False(t, ok)
	assert.ErrorIs(t, err, lotgo.ErrQuotaExceeded)

	require.True(t, waitBooking(t, engine.CancelBooking("A1")))
	assert.False(t, engine.UserHasReachedLimit("U1"))

	assert.True(t, engine.UserHasReachedLimit("unregistered"))
}

func TestExpiryLifecycle(t *testing.T) {
	sched := schedule.NewManual()
	clock := newTestClock()
	engine, obs := newTestEngine(t,
		lotgo.WithScheduler(sched),
		lotgo.WithClock(clock.Now),
	)
	engine.RegisterUser("U1", model.RoleRegular)

	require.True(t, waitBooking(t, engine.BookSpot("D1", "U1", "ZZ-999", "1 hour", time.Hour, false)))

	warnDelay, ok := sched.Delay(schedule.Key{SpotID: "D1", Purpose: schedule.PurposeWarning})
	require.True(t, ok)
	assert.Equal(t, 45*time.Minute, warnDelay, "warning at the 45-minute mark of a 1-hour booking")

	expiryDelay, ok := sched.Delay(schedule.Key{SpotID: "D1", Purpose: schedule.PurposeExpiry})
	require.True(t, ok)
	assert.Equal(t, time.Hour, expiryDelay)

	clock.Advance(time.Hour)
	require.True(t, sched.Fire(schedule.Key{SpotID: "D1", Purpose: schedule.PurposeExpiry}))

	assert.Eventually(t, func() bool {
		s, ok := obs.last("D1")
		return ok && s == model.StatusTimeExceeded
	}, time.Second, 5*time.Millisecond)
	assert.False(t, engine.IsUserBooked("D1"), "ledger drops the spot on expiry")
	assert.Equal(t, model.StatusTimeExceeded, engine.GetSpotStatus("D1", "U1"))

	// Pending acknowledgment, the spot is not recyclable.
	assert.False(t, engine.TrySoftLock("D1", "U2", time.Minute))

	assert.True(t, engine.AcknowledgeExpiry("D1"))
	assert.False(t, engine.AcknowledgeExpiry("D1"))

	assert.Eventually(t, func() bool {
		s, ok := obs.last("D1")
		return ok && s == model.StatusAvailable
	}, time.Second, 5*time.Millisecond)
}

func TestSystemExpirySkipsAcknowledgment(t *testing.T) {
	sched := schedule.NewManual()
	clock := newTestClock()
	engine, obs := newTestEngine(t,
		lotgo.WithScheduler(sched),
		lotgo.WithClock(clock.Now),
	)

	require.True(t, waitBooking(t, engine.BookSpot("D2", model.SystemUserID, "", "1 hour", time.Hour, false)))
	assert.False(t, sched.Pending(schedule.Key{SpotID: "D2", Purpose: schedule.PurposeWarning}),
		"no warning for system bookings")

	clock.Advance(time.Hour)
	require.True(t, sched.Fire(schedule.Key{SpotID: "D2", Purpose: schedule.PurposeExpiry}))

	assert.Eventually(t, func() bool {
		s, ok := obs.last("D2")
		return ok && s == model.StatusAvailable
	}, time.Second, 5*time.Millisecond)
	assert.False(t, engine.AcknowledgeExpiry("D2"))
}

func TestSoftLockExpiry(t *testing.T) {
	sched := schedule.NewManual()
	clock := newTestClock()
	engine, obs := newTestEngine(t,
		lotgo.WithScheduler(sched),
		lotgo.WithClock(clock.Now),
	)

	require.True(t, engine.TrySoftLock("E1", "U1", time.Minute))

	clock.Advance(2 * time.Minute)
	require.True(t, sched.Fire(schedule.Key{SpotID: "E1", Purpose: schedule.PurposeHoldExpiry}))

	assert.Eventually(t, func() bool {
		return obs.count("E1", model.StatusAvailable) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, engine.IsSoftLocked("E1"))
	assert.True(t, engine.TrySoftLock("E1", "U2", time.Minute))
}

func TestRemainingTime(t *testing.T) {
	sched := schedule.NewManual()
	clock := newTestClock()
	engine, _ := newTestEngine(t,
		lotgo.WithScheduler(sched),
		lotgo.WithClock(clock.Now),
	)
	engine.RegisterUser("U1", model.RoleRegular)

	require.True(t, waitBooking(t, engine.BookSpot("A2", "U1", "", "1 hour", time.Hour, false)))
	clock.Advance(15 * time.Minute)
	assert.Equal(t, 45*time.Minute, engine.RemainingTime("A2"))
	assert.Equal(t, time.Duration(0), engine.RemainingTime("A3"))
}

func TestUnknownSpot(t *testing.T) {
	engine, _ := newTestEngine(t)

	ok, err, resolved := engine.BookSpot("Z99", "U1", "", "1 hour", time.Hour, false).TryResult()
	require.True(t, resolved)
	assert.False(t, ok)
	assert.ErrorIs(t, err, lotgo.ErrUnknownSpot)

	ok, err, resolved = engine.CancelBooking("Z99").TryResult()
	require.True(t, resolved)
	assert.False(t, ok)
	assert.ErrorIs(t, err, lotgo.ErrUnknownSpot)

	assert.False(t, engine.TrySoftLock("Z99", "U1", time.Minute))
	assert.Equal(t, model.StatusAvailable, engine.GetSpotStatus("Z99", "U1"))
}

func TestUnknownUser(t *testing.T) {
	engine, _ := newTestEngine(t)

	ok, err, resolved := engine.BookSpot("A1", "ghost", "", "1 hour", time.Hour, false).TryResult()
	require.True(t, resolved)
	assert.False(t, ok)
	assert.ErrorIs(t, err, lotgo.ErrUnknownUser)

	f := engine.BookSpot("A1", model.SystemUserID, "", "1 hour", time.Hour, false)
	assert.True(t, waitBooking(t, f), "the system identity needs no registration")
}

func TestSpotEnumeration(t *testing.T) {
	engine, _ := newTestEngine(t)

	ids := engine.SpotIDs()
	assert.Len(t, ids, 14+12+12+12+12+14)

	zoneA := engine.SpotsInZone("A")
	require.Len(t, zoneA, 14)
	assert.Equal(t, "A1", zoneA[0])
	assert.Equal(t, "A14", zoneA[13])

	engine.RegisterUser("U1", model.RoleCorporate)
	require.True(t, waitBooking(t, engine.BookSpot("A5", "U1", "", "1 hour", time.Hour, false)))
	require.True(t, waitBooking(t, engine.BookSpot("F2", model.SystemUserID, "", "1 hour", time.Hour, false)))

	assert.ElementsMatch(t, []string{"A5", "F2"}, engine.GetAllBookedSpots())
}

func TestSystemCommitBlockedByLiveHold(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.True(t, engine.TrySoftLock("C3", "U1", time.Minute))

	ok := waitBooking(t, engine.BookSpot("C3", model.SystemUserID, "", "1 hour", time.Hour, false))
	assert.False(t, ok, "system commits must not evict a live hold")
	assert.True(t, engine.IsSoftLockedBy("C3", "U1"))
}

func TestAdmissionUnderLoad(t *testing.T) {
	engine, _ := newTestEngine(t, lotgo.WithAdmissionLimit(2))
	engine.RegisterUser("U1", model.RoleCorporate)

	spots := []string{"A1", "A2", "A3", "A4", "A5"}
	futures := make([]*model.Future, 0, len(spots))
	for _, id := range spots {
		futures = append(futures, engine.BookSpot(id, "U1", "", "1 hour", time.Hour, false))
	}

	for i, f := range futures {
		assert.True(t, waitBooking(t, f), "booking %d (%s)", i, spots[i])
	}
	assert.Equal(t, int64(5), engine.Stats().BookingsProcessed)
}

func TestCloseResolvesPending(t *testing.T) {
	engine, err := lotgo.New(lotgo.DefaultLayout(),
		lotgo.WithQueuePollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close(), "close is idempotent")

	ok, err, resolved := engine.BookSpot("A1", "U1", "", "1 hour", time.Hour, false).TryResult()
	require.True(t, resolved)
	assert.False(t, ok)
	assert.ErrorIs(t, err, lotgo.ErrEngineClosed)

	assert.False(t, engine.TrySoftLock("A1", "U1", time.Minute))
}

func TestConcurrentBookingStorm(t *testing.T) {
	engine, _ := newTestEngine(t)
	for i := 0; i < 8; i++ {
		engine.RegisterUser(fmt.Sprintf("U%d", i), model.RoleCorporate)
	}

	const goroutines = 8
	var (
		wg      sync.WaitGroup
		futures [goroutines][]*model.Future
	)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			user := fmt.Sprintf("U%d", g)
			for _, spotID := range []string{"A1", "B1", "C1", "D1"} {
				futures[g] = append(futures[g], engine.BookSpot(spotID, user, "", "1 hour", time.Hour, false))
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for g := range futures {
		for _, f := range futures[g] {
			if waitBooking(t, f) {
				total++
			}
		}
	}
	assert.Equal(t, 4, total, "each contested spot has exactly one winner")
	assert.Len(t, engine.GetAllBookedSpots(), 4)
}
