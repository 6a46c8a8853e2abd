package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerSchedulerFires(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule(Key{SpotID: "A1", Purpose: PurposeExpiry}, 5*time.Millisecond, func() {
		fired.Add(1)
	})

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 2*time.Millisecond)
}

func TestTimerSchedulerReplaceSameKey(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	key := Key{SpotID: "A1", Purpose: PurposeHoldExpiry}

	s.Schedule(key, 10*time.Millisecond, func() { first.Add(1) })
	s.Schedule(key, 10*time.Millisecond, func() { second.Add(1) })

	assert.Eventually(t, func() bool {
		return second.Load() == 1
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced task must not fire")
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	var fired atomic.Int32
	key := Key{SpotID: "B2", Purpose: PurposeWarning}

	s.Schedule(key, 20*time.Millisecond, func() { fired.Add(1) })
	assert.True(t, s.Cancel(key))
	assert.False(t, s.Cancel(key), "second cancel finds nothing")

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestTimerSchedulerStop(t *testing.T) {
	s := NewTimerScheduler()

	var fired atomic.Int32
	s.Schedule(Key{SpotID: "C1", Purpose: PurposeExpiry}, 10*time.Millisecond, func() { fired.Add(1) })
	s.Stop()

	// Schedule after Stop is ignored.
	s.Schedule(Key{SpotID: "C2", Purpose: PurposeExpiry}, time.Millisecond, func() { fired.Add(1) })

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestManualScheduler(t *testing.T) {
	m := NewManual()

	var fired int
	key := Key{SpotID: "A1", Purpose: PurposeExpiry}
	m.Schedule(key, time.Hour, func() { fired++ })

	delay, ok := m.Delay(key)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, delay)

	assert.True(t, m.Fire(key))
	assert.Equal(t, 1, fired)
	assert.False(t, m.Fire(key), "task fires once")
	assert.False(t, m.Pending(key))
}
