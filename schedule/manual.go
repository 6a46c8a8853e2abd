package schedule

import (
	"sync"
	"time"
)

// Manual is a Scheduler for tests: tasks never fire on their own and are
// triggered explicitly with Fire. Delays are recorded for assertions.
type Manual struct {
	mu    sync.Mutex
	tasks map[Key]manualTask
}

type manualTask struct {
	delay time.Duration
	fn    func()
}

// NewManual creates an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{tasks: make(map[Key]manualTask)}
}

// Schedule implements Scheduler.
func (m *Manual) Schedule(key Key, delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[key] = manualTask{delay: delay, fn: fn}
}

// Cancel implements Scheduler.
func (m *Manual) Cancel(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[key]; !ok {
		return false
	}
	delete(m.tasks, key)
	return true
}

// Stop implements Scheduler.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = make(map[Key]manualTask)
}

// Fire runs and removes the pending task for key.
// Returns false if no task is pending.
func (m *Manual) Fire(key Key) bool {
	m.mu.Lock()
	task, ok := m.tasks[key]
	if ok {
		delete(m.tasks, key)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	task.fn()
	return true
}

// Pending reports whether a task is scheduled for key.
func (m *Manual) Pending(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[key]
	return ok
}

// Delay returns the recorded delay for key, or false if nothing is pending.
func (m *Manual) Delay(key Key) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[key]
	return task.delay, ok
}

// Len returns the number of pending tasks.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
