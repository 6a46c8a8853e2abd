package lotgo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lotgo/admission"
	"github.com/hupe1980/lotgo/identity"
	"github.com/hupe1980/lotgo/model"
	"github.com/hupe1980/lotgo/notify"
	"github.com/hupe1980/lotgo/pool"
	"github.com/hupe1980/lotgo/queue"
	"github.com/hupe1980/lotgo/schedule"
	"github.com/hupe1980/lotgo/spot"
)

// Engine is the reservation manager: it owns the spot registry, serializes
// booking requests through the priority queue and admission gate, and routes
// every externally visible effect through the throttled notification bus.
//
// Construct with New, share by reference, and Close when done.
type Engine struct {
	spots   map[string]*spot.Spot
	spotIDs []string
	users   *identity.Directory
	queue   *queue.BookingQueue
	gate    *admission.Gate
	bus     *notify.Bus
	sched   schedule.Scheduler
	workers *pool.WorkerPool

	logger  *Logger
	metrics MetricsCollector
	now     func() time.Time

	pollInterval    time.Duration
	monitorInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates an Engine for the given inventory layout and starts its
// booking processor, notification consumer and monitor.
func New(layout Layout, optFns ...Option) (*Engine, error) {
	o := applyOptions(optFns)

	ids := layout.SpotIDs()
	if len(ids) == 0 {
		return nil, ErrEmptyLayout
	}

	sched := o.scheduler
	if sched == nil {
		sched = schedule.NewTimerScheduler()
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		spots:           make(map[string]*spot.Spot, len(ids)),
		spotIDs:         ids,
		users:           identity.NewDirectory(),
		queue:           queue.New(),
		gate:            admission.NewGate(o.admissionLimit),
		bus:             notify.NewBus(o.throttleInterval),
		sched:           sched,
		workers:         pool.New(o.workers),
		logger:          o.logger,
		metrics:         o.metricsCollector,
		now:             o.now,
		pollInterval:    o.pollInterval,
		monitorInterval: o.monitorInterval,
		ctx:             ctx,
		cancel:          cancel,
		stopCh:          make(chan struct{}),
	}

	hooks := spot.Hooks{
		StatusChanged: e.bus.PublishStatus,
		Message:       e.bus.PublishMessage,
		Expired:       e.onBookingExpired,
	}
	for _, id := range ids {
		if _, ok := e.spots[id]; ok {
			cancel()
			return nil, fmt.Errorf("duplicate spot id %q in layout", id)
		}
		e.spots[id] = spot.New(id, sched, o.now, o.warningLead, hooks)
	}

	e.wg.Add(2)
	go e.processLoop()
	go e.monitorLoop()

	return e, nil
}

// RegisterUser registers an identity and allocates its booking ledger.
// Must precede bookings or quota checks for that identity.
func (e *Engine) RegisterUser(userID string, role model.Role) {
	e.users.Register(userID, role)
}

// RegisterObserver attaches the external observer receiving status changes
// and user messages from the bus consumer thread.
func (e *Engine) RegisterObserver(obs notify.Observer) {
	e.bus.Register(obs)
}

// TrySoftLock places a short-TTL advisory hold on a spot for the duration
// of an interactive flow. It rejects immediately when the spot's externally
// visible status is not available for this user.
func (e *Engine) TrySoftLock(spotID, userID string, ttl time.Duration) bool {
	sp, ok := e.spots[spotID]
	if !ok || e.closed.Load() {
		return false
	}

	if e.GetSpotStatus(spotID, userID) != model.StatusAvailable {
		e.metrics.RecordSoftLock(false)
		return false
	}

	locked := sp.TryHold(userID, ttl)
	if locked {
		e.bus.PublishStatus(spotID, model.StatusSoftLocked)
	}
	e.metrics.RecordSoftLock(locked)
	e.logger.LogSoftLock(e.ctx, spotID, userID, locked)
	return locked
}

// ReleaseSoftLock clears the advisory hold if userID holds it.
func (e *Engine) ReleaseSoftLock(spotID, userID string) {
	sp, ok := e.spots[spotID]
	if !ok {
		return
	}
	if sp.ReleaseHold(userID) {
		e.bus.PublishStatus(spotID, model.StatusAvailable)
	}
}

// BookSpot enqueues a booking request and returns its eventual result.
//
// The quota check happens at the enqueue boundary and is advisory:
// concurrent requests by the same identity may briefly exceed it. The
// pipeline itself only guarantees the exclusivity invariant. plate may be
// empty and is kept as ledger display metadata.
func (e *Engine) BookSpot(spotID, userID, plate, label string, duration time.Duration, priority bool) *model.Future {
	future := model.NewFuture()

	if e.closed.Load() {
		future.Resolve(false, ErrEngineClosed)
		return future
	}
	if _, ok := e.spots[spotID]; !ok {
		future.Resolve(false, ErrUnknownSpot)
		return future
	}
	if userID != model.SystemUserID {
		if _, ok := e.users.Profile(userID); !ok {
			future.Resolve(false, ErrUnknownUser)
			return future
		}
		if e.users.HasReachedLimit(userID) {
			future.Resolve(false, ErrQuotaExceeded)
			return future
		}
	}

	req := &model.BookingRequest{
		SpotID:   spotID,
		Duration: duration,
		Label:    label,
		Plate:    plate,
		Priority: priority,
		UserID:   userID,
		Result:   future,
	}
	if err := e.queue.Enqueue(req); err != nil {
		future.Resolve(false, ErrEngineClosed)
	}
	return future
}

// CancelBooking asynchronously releases a committed spot. The future
// resolves false when the spot was not committed; no notification is
// produced in that case.
func (e *Engine) CancelBooking(spotID string) *model.Future {
	future := model.NewFuture()

	sp, ok := e.spots[spotID]
	if !ok {
		future.Resolve(false, ErrUnknownSpot)
		return future
	}

	err := e.workers.Submit(e.ctx, func() {
		prev, _ := e.bus.LastStatus(spotID)

		owner, released := sp.Release()
		if released {
			if owner != model.SystemUserID {
				e.users.MarkUnbooked(spotID, owner)
			}
			e.bus.PublishStatus(spotID, model.StatusAvailable)
			if prev == model.StatusReserved || prev == model.StatusReservedOccupied {
				e.bus.PublishMessage(fmt.Sprintf("Spot %s is now available.", spotID))
			} else {
				e.bus.PublishMessage(fmt.Sprintf("Booking for spot %s cancelled.", spotID))
			}
		}
		e.metrics.RecordCancellation(released)
		e.logger.LogCancellation(e.ctx, spotID, released)
		future.Resolve(released, nil)
	})
	if err != nil {
		future.Resolve(false, ErrEngineClosed)
	}
	return future
}

// AcknowledgeExpiry completes the two-phase expiry of a human booking and
// recycles the spot. Returns false if the spot is not pending
// acknowledgment.
func (e *Engine) AcknowledgeExpiry(spotID string) bool {
	sp, ok := e.spots[spotID]
	if !ok {
		return false
	}
	return sp.Acknowledge()
}

// GetSpotStatus derives the externally visible status of a spot for a given
// caller. It is computed from authoritative state on every call, never from
// a stale broadcast: ledger-booked beats soft-locked-by-other beats the
// last-broadcast cache beats available. The holder of a soft lock sees the
// spot as available so its own flow can proceed.
func (e *Engine) GetSpotStatus(spotID, userID string) model.SpotStatus {
	sp, ok := e.spots[spotID]
	if !ok {
		return model.StatusAvailable
	}

	if e.users.IsSpotBooked(spotID) {
		return model.StatusBooked
	}

	if userID != "" && sp.IsHeldBy(userID) {
		return model.StatusAvailable
	}
	if sp.IsHeldByOther(userID) {
		return model.StatusSoftLocked
	}

	if cached, ok := e.bus.LastStatus(spotID); ok {
		return cached
	}
	return model.StatusAvailable
}

// NotifyStatus publishes an externally observed status for a spot (sensor
// events such as reserved_occupied or wrong_parking). It flows through the
// same dedup/throttle pipeline as engine-originated updates.
func (e *Engine) NotifyStatus(spotID string, status model.SpotStatus) {
	if _, ok := e.spots[spotID]; !ok {
		return
	}
	e.bus.PublishStatus(spotID, status)
}

// NotifyUser delivers a message to the registered observer.
func (e *Engine) NotifyUser(text string) {
	e.bus.PublishMessage(text)
}

// IsBooked reports whether the spot is committed (by anyone).
func (e *Engine) IsBooked(spotID string) bool {
	sp, ok := e.spots[spotID]
	return ok && sp.IsBooked()
}

// IsUserBooked reports whether a registered identity holds the spot.
func (e *Engine) IsUserBooked(spotID string) bool {
	return e.users.IsSpotBooked(spotID)
}

// IsSoftLocked reports whether any live advisory hold exists on the spot.
func (e *Engine) IsSoftLocked(spotID string) bool {
	sp, ok := e.spots[spotID]
	return ok && sp.IsHeld()
}

// IsSoftLockedBy reports whether userID holds the spot's advisory hold.
func (e *Engine) IsSoftLockedBy(spotID, userID string) bool {
	sp, ok := e.spots[spotID]
	return ok && sp.IsHeldBy(userID)
}

// IsSoftLockedByOther reports whether someone else holds the advisory hold.
func (e *Engine) IsSoftLockedByOther(spotID, userID string) bool {
	sp, ok := e.spots[spotID]
	return ok && sp.IsHeldByOther(userID)
}

// RemainingTime returns the time left on the spot's commitment, or 0.
func (e *Engine) RemainingTime(spotID string) time.Duration {
	sp, ok := e.spots[spotID]
	if !ok {
		return 0
	}
	return sp.RemainingTime()
}

// SpotIDs returns all spot identifiers in layout order.
func (e *Engine) SpotIDs() []string {
	out := make([]string, len(e.spotIDs))
	copy(out, e.spotIDs)
	return out
}

// SpotsInZone returns the spot IDs of one zone, ordered by index.
func (e *Engine) SpotsInZone(zone string) []string {
	var out []string
	for _, id := range e.spotIDs {
		rest, ok := strings.CutPrefix(id, zone)
		if !ok {
			continue
		}
		if _, err := strconv.Atoi(rest); err == nil {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimPrefix(out[i], zone))
		b, _ := strconv.Atoi(strings.TrimPrefix(out[j], zone))
		return a < b
	})
	return out
}

// GetAllBookedSpots returns the IDs of all committed spots.
func (e *Engine) GetAllBookedSpots() []string {
	var out []string
	for _, id := range e.spotIDs {
		if e.spots[id].IsBooked() {
			out = append(out, id)
		}
	}
	return out
}

// UserHasReachedLimit reports whether the identity is at its role quota.
// Unregistered identities are always limited.
func (e *Engine) UserHasReachedLimit(userID string) bool {
	return e.users.HasReachedLimit(userID)
}

// UserBookings returns the ledger entries (spot -> display detail) for an
// identity.
func (e *Engine) UserBookings(userID string) map[string]model.BookingDetail {
	return e.users.Bookings(userID)
}

// UserIDs returns all registered identities.
func (e *Engine) UserIDs() []string {
	return e.users.UserIDs()
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	BookingsProcessed int64
	FailedBookings    int64
	QueueDepth        int
	InFlight          int64
	Throttled         int64
	Suppressed        int64
}

// Stats returns current pipeline counters.
func (e *Engine) Stats() Stats {
	return Stats{
		BookingsProcessed: e.processed.Load(),
		FailedBookings:    e.failed.Load(),
		QueueDepth:        e.queue.Len(),
		InFlight:          e.gate.InFlight(),
		Throttled:         e.bus.ThrottledCount(),
		Suppressed:        e.bus.SuppressedCount(),
	}
}

// Close stops the booking processor, cancels outstanding timers and shuts
// down the notification bus. Queued but unprocessed requests resolve as
// failed with ErrEngineClosed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.queue.Close()
	close(e.stopCh)
	e.cancel()
	e.wg.Wait()

	for {
		req, ok := e.queue.Poll(0)
		if !ok {
			break
		}
		req.Result.Resolve(false, ErrEngineClosed)
	}

	e.workers.Close()
	e.sched.Stop()
	e.bus.Close()
	return nil
}

// processLoop is the single consumer serializing all commit attempts.
func (e *Engine) processLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		req, ok := e.queue.Poll(e.pollInterval)
		if !ok {
			if e.closed.Load() {
				return
			}
			continue
		}
		e.processBooking(req)
	}
}

// processBooking passes one request through the admission gate and commits
// it against the target spot. The request resolves exactly once.
func (e *Engine) processBooking(req *model.BookingRequest) {
	if err := e.gate.Acquire(e.ctx); err != nil {
		req.Result.Resolve(false, ErrEngineClosed)
		return
	}
	defer e.gate.Release()

	start := e.now()

	sp := e.spots[req.SpotID]
	success := sp != nil && sp.Commit(req.UserID, req.Duration)

	if success {
		e.processed.Add(1)
		if req.IsSystem() {
			e.bus.PublishStatus(req.SpotID, model.StatusReserved)
			e.bus.PublishMessage(fmt.Sprintf("Spot %s reserved.", req.SpotID))
		} else {
			e.users.MarkBooked(req.SpotID, req.UserID, model.BookingDetail{
				Plate:    req.Plate,
				Duration: req.Label,
			})
			e.bus.PublishStatus(req.SpotID, model.StatusBooked)
			e.bus.PublishMessage(fmt.Sprintf("Spot %s booked for %s.", req.SpotID, req.Label))
		}
	} else {
		e.failed.Add(1)
		e.bus.PublishStatus(req.SpotID, model.StatusAvailable)
		e.bus.PublishMessage(fmt.Sprintf("Booking failed for spot %s.", req.SpotID))
	}

	req.Result.Resolve(success, nil)
	e.metrics.RecordBooking(e.now().Sub(start), success)
	e.logger.LogBooking(e.ctx, req.SpotID, req.UserID, success, e.now().Sub(start))
}

// onBookingExpired keeps the ledger consistent when a commitment times out.
func (e *Engine) onBookingExpired(spotID, owner string) {
	e.users.MarkUnbooked(spotID, owner)
	e.metrics.RecordExpiry()
	e.logger.LogExpiry(e.ctx, spotID, owner)
}

// monitorLoop periodically logs pipeline pressure.
func (e *Engine) monitorLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.logger.Debug("pipeline status",
				"queue_depth", e.queue.Len(),
				"in_flight", e.gate.InFlight(),
				"processed", e.processed.Load(),
				"failed", e.failed.Load(),
			)
		}
	}
}
