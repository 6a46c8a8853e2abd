package lotgo

import (
	"log/slog"
	"time"

	"github.com/hupe1980/lotgo/admission"
	"github.com/hupe1980/lotgo/notify"
	"github.com/hupe1980/lotgo/schedule"
)

const (
	defaultWarningLead     = 15 * time.Minute
	defaultPollInterval    = 100 * time.Millisecond
	defaultMonitorInterval = time.Minute
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	admissionLimit   int64
	throttleInterval time.Duration
	warningLead      time.Duration
	pollInterval     time.Duration
	monitorInterval  time.Duration
	scheduler        schedule.Scheduler
	now              func() time.Time
	workers          int
}

// Option configures engine construction.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithAdmissionLimit caps the number of bookings finalized concurrently.
// Values <= 0 select admission.DefaultLimit.
func WithAdmissionLimit(limit int64) Option {
	return func(o *options) {
		o.admissionLimit = limit
	}
}

// WithThrottleInterval sets the minimum gap between accepted status
// notifications per spot. Zero selects notify.DefaultThrottleInterval;
// a negative interval disables throttling.
func WithThrottleInterval(interval time.Duration) Option {
	return func(o *options) {
		o.throttleInterval = interval
	}
}

// WithWarningLead sets how long before expiry the warning message fires.
func WithWarningLead(lead time.Duration) Option {
	return func(o *options) {
		if lead > 0 {
			o.warningLead = lead
		}
	}
}

// WithQueuePollInterval sets the booking processor's poll timeout. Shorter
// intervals react faster to shutdown at the cost of idle wakeups.
func WithQueuePollInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.pollInterval = interval
		}
	}
}

// WithMonitorInterval sets how often the engine logs queue depth and
// admission usage.
func WithMonitorInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.monitorInterval = interval
		}
	}
}

// WithScheduler replaces the timer scheduler. Tests pass schedule.NewManual
// to drive expiry deterministically.
func WithScheduler(s schedule.Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.scheduler = s
		}
	}
}

// WithClock replaces the engine's time source. Tests combine this with
// WithScheduler to simulate the passage of time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithWorkers sets the size of the pool handling asynchronous work
// (cancellations). Values <= 0 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		admissionLimit:   admission.DefaultLimit,
		throttleInterval: notify.DefaultThrottleInterval,
		warningLead:      defaultWarningLead,
		pollInterval:     defaultPollInterval,
		monitorInterval:  defaultMonitorInterval,
		now:              time.Now,
		workers:          2,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
