package scheduler

import (
	"sync"
	"time"
)

// ManualScheduler fires tasks only when Advance is called, tasks run on the caller's goroutine
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

var _ Scheduler = &ManualScheduler{}

type manualTask struct {
	period  time.Duration
	next    time.Duration
	fn      func()
	stopped bool
	owner   *ManualScheduler
}

// NewManualScheduler .
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Every implement Scheduler
func (ms *ManualScheduler) Every(d time.Duration, fn func()) Handle {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task := &manualTask{period: d, next: ms.now + d, fn: fn, owner: ms}
	ms.tasks = append(ms.tasks, task)
	return task
}

// Advance move the clock forward by d, firing every due task once per elapsed period in time order
func (ms *ManualScheduler) Advance(d time.Duration) {
	ms.mu.Lock()
	target := ms.now + d
	ms.mu.Unlock()

	for {
		ms.mu.Lock()
		var due *manualTask
		for _, task := range ms.tasks {
			if task.stopped || task.next > target {
				continue
			}
			if due == nil || task.next < due.next {
				due = task
			}
		}
		if due == nil {
			ms.now = target
			ms.mu.Unlock()
			return
		}
		ms.now = due.next
		due.next += due.period
		fn := due.fn
		ms.mu.Unlock()

		fn()
	}
}

// Active number of tasks not yet stopped
func (ms *ManualScheduler) Active() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n := 0
	for _, task := range ms.tasks {
		if !task.stopped {
			n++
		}
	}
	return n
}

func (mt *manualTask) Stop() {
	mt.owner.mu.Lock()
	defer mt.owner.mu.Unlock()
	mt.stopped = true
}
