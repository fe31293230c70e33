package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerScheduler(t *testing.T) {
	var count int32
	h := NewTickerScheduler().Every(5*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) >= 3
	}, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
	time.Sleep(10 * time.Millisecond)
	stopped := atomic.LoadInt32(&count)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&count), "no invocation after Stop")
}

func TestManualScheduler(t *testing.T) {
	ms := NewManualScheduler()

	var fast, slow int
	ms.Every(time.Second, func() { fast++ })
	h := ms.Every(3*time.Second, func() { slow++ })
	assert.Equal(t, 2, ms.Active())

	ms.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, fast)

	ms.Advance(3 * time.Second)
	assert.Equal(t, 3, fast)
	assert.Equal(t, 1, slow)

	h.Stop()
	ms.Advance(3 * time.Second)
	assert.Equal(t, 6, fast)
	assert.Equal(t, 1, slow)
	assert.Equal(t, 1, ms.Active())
}

func TestManualSchedulerStopInsideTask(t *testing.T) {
	ms := NewManualScheduler()

	var h Handle
	count := 0
	h = ms.Every(time.Second, func() {
		count++
		if count == 2 {
			h.Stop()
		}
	})
	ms.Advance(10 * time.Second)
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, ms.Active())
}
