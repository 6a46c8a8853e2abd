// Package notify decouples state-change producers from the single consumer
// driving observer-visible effects.
//
// Producers (timers, the booking pipeline, cancellation, generators) publish
// status updates and user messages. A single consumer goroutine drains them
// in FIFO order, so all effects for one producer arrive in the order they
// were published; no ordering is promised across spots. Updates are
// deduplicated against a last-known-status cache and throttled per spot to
// prevent redraw storms when many producers race on the same spot.
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/lotgo/model"
)

// DefaultThrottleInterval is the minimum gap between accepted status
// updates for one spot.
const DefaultThrottleInterval = 500 * time.Millisecond

const updateBufferSize = 1024

// Observer receives bus events on the consumer goroutine. Implementations
// must be cheap or redispatch internally.
type Observer interface {
	OnSpotStatusChanged(spotID string, status model.SpotStatus)
	OnUserMessage(text string)
}

type updateKind uint8

const (
	kindStatus updateKind = iota
	kindMessage
)

type update struct {
	kind   updateKind
	spotID string
	status model.SpotStatus
	text   string
}

// Bus is the single-consumer notification queue.
type Bus struct {
	interval time.Duration
	updates  chan update
	stopCh   chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool

	obsMu    sync.RWMutex
	observer Observer

	cacheMu    sync.RWMutex
	lastStatus map[string]model.SpotStatus

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter

	throttled  atomic.Int64
	suppressed atomic.Int64
	dropped    atomic.Int64
}

// NewBus creates and starts a Bus. A zero interval selects
// DefaultThrottleInterval; a negative interval disables throttling.
func NewBus(interval time.Duration) *Bus {
	if interval == 0 {
		interval = DefaultThrottleInterval
	}
	b := &Bus{
		interval:   interval,
		updates:    make(chan update, updateBufferSize),
		stopCh:     make(chan struct{}),
		lastStatus: make(map[string]model.SpotStatus),
		limiters:   make(map[string]*rate.Limiter),
	}

	b.wg.Add(1)
	go b.consume()

	return b
}

// Register sets the observer. Pass nil to detach; the status cache keeps
// updating either way.
func (b *Bus) Register(obs Observer) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	b.observer = obs
}

// PublishStatus enqueues a status change for a spot. Updates arriving
// within the throttle interval of the last accepted one for the same spot
// are skipped.
func (b *Bus) PublishStatus(spotID string, status model.SpotStatus) {
	if b.closed.Load() {
		return
	}

	if b.interval > 0 && !b.limiter(spotID).Allow() {
		b.throttled.Add(1)
		return
	}

	b.enqueue(update{kind: kindStatus, spotID: spotID, status: status})
}

// PublishMessage enqueues a user-visible message. Messages are never
// throttled or deduplicated.
func (b *Bus) PublishMessage(text string) {
	if b.closed.Load() {
		return
	}
	b.enqueue(update{kind: kindMessage, text: text})
}

// LastStatus returns the last status broadcast for spotID. It is a
// notification cache, never authoritative over actual spot state.
func (b *Bus) LastStatus(spotID string) (model.SpotStatus, bool) {
	b.cacheMu.RLock()
	defer b.cacheMu.RUnlock()
	s, ok := b.lastStatus[spotID]
	return s, ok
}

// ThrottledCount returns the number of updates skipped by throttling.
func (b *Bus) ThrottledCount() int64 {
	return b.throttled.Load()
}

// SuppressedCount returns the number of duplicate updates skipped.
func (b *Bus) SuppressedCount() int64 {
	return b.suppressed.Load()
}

// Close stops the consumer after draining pending updates.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	close(b.stopCh)
	b.wg.Wait()
}

func (b *Bus) enqueue(u update) {
	select {
	case b.updates <- u:
	default:
		// A full buffer means the observer cannot keep up; dropping beats
		// blocking timer goroutines.
		b.dropped.Add(1)
	}
}

func (b *Bus) limiter(spotID string) *rate.Limiter {
	b.limMu.Lock()
	defer b.limMu.Unlock()

	lim, ok := b.limiters[spotID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(b.interval), 1)
		b.limiters[spotID] = lim
	}
	return lim
}

func (b *Bus) consume() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopCh:
			for {
				select {
				case u := <-b.updates:
					b.dispatch(u)
				default:
					return
				}
			}
		case u := <-b.updates:
			b.dispatch(u)
		}
	}
}

func (b *Bus) dispatch(u update) {
	switch u.kind {
	case kindStatus:
		b.cacheMu.Lock()
		if last, ok := b.lastStatus[u.spotID]; ok && last == u.status {
			b.cacheMu.Unlock()
			b.suppressed.Add(1)
			return
		}
		b.lastStatus[u.spotID] = u.status
		b.cacheMu.Unlock()

		if obs := b.current(); obs != nil {
			obs.OnSpotStatusChanged(u.spotID, u.status)
		}
	case kindMessage:
		if obs := b.current(); obs != nil {
			obs.OnUserMessage(u.text)
		}
	}
}

func (b *Bus) current() Observer {
	b.obsMu.RLock()
	defer b.obsMu.RUnlock()
	return b.observer
}
