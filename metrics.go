package lotgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordBooking is called after each processed booking request.
	// took is the time from dequeue to resolution.
	RecordBooking(took time.Duration, success bool)

	// RecordCancellation is called after each cancellation attempt.
	RecordCancellation(released bool)

	// RecordSoftLock is called after each soft-lock attempt.
	RecordSoftLock(acquired bool)

	// RecordExpiry is called when a committed booking times out.
	RecordExpiry()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBooking(time.Duration, bool) {}
func (NoopMetricsCollector) RecordCancellation(bool)           {}
func (NoopMetricsCollector) RecordSoftLock(bool)               {}
func (NoopMetricsCollector) RecordExpiry()                     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BookingCount       atomic.Int64
	BookingFailures    atomic.Int64
	BookingTotalNanos  atomic.Int64
	CancellationCount  atomic.Int64
	CancellationMisses atomic.Int64
	SoftLockCount      atomic.Int64
	SoftLockFailures   atomic.Int64
	ExpiryCount        atomic.Int64
}

// RecordBooking implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBooking(took time.Duration, success bool) {
	b.BookingCount.Add(1)
	b.BookingTotalNanos.Add(took.Nanoseconds())
	if !success {
		b.BookingFailures.Add(1)
	}
}

// RecordCancellation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCancellation(released bool) {
	b.CancellationCount.Add(1)
	if !released {
		b.CancellationMisses.Add(1)
	}
}

// RecordSoftLock implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSoftLock(acquired bool) {
	b.SoftLockCount.Add(1)
	if !acquired {
		b.SoftLockFailures.Add(1)
	}
}

// RecordExpiry implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExpiry() {
	b.ExpiryCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BookingCount:       b.BookingCount.Load(),
		BookingFailures:    b.BookingFailures.Load(),
		BookingAvgNanos:    b.getAvgBookingNanos(),
		CancellationCount:  b.CancellationCount.Load(),
		CancellationMisses: b.CancellationMisses.Load(),
		SoftLockCount:      b.SoftLockCount.Load(),
		SoftLockFailures:   b.SoftLockFailures.Load(),
		ExpiryCount:        b.ExpiryCount.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgBookingNanos() int64 {
	count := b.BookingCount.Load()
	if count == 0 {
		return 0
	}
	return b.BookingTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BookingCount       int64
	BookingFailures    int64
	BookingAvgNanos    int64
	CancellationCount  int64
	CancellationMisses int64
	SoftLockCount      int64
	SoftLockFailures   int64
	ExpiryCount        int64
}
