// Package scheduler provides cancellable periodic tasks. Exam countdowns and progress
// autosave both run on it so they can be torn down together with their owner.
package scheduler

import (
	"sync"
	"time"
)

// Handle a running periodic task
type Handle interface {
	// Stop prevents further invocations, an invocation already running is not interrupted.
	// Calling Stop more than once is a no-op
	Stop()
}

// Scheduler runs fn every d until the returned handle is stopped
type Scheduler interface {
	Every(d time.Duration, fn func()) Handle
}

// TickerScheduler Scheduler implementation using time.Ticker, one goroutine per task
type TickerScheduler struct{}

var _ Scheduler = TickerScheduler{}

// NewTickerScheduler .
func NewTickerScheduler() TickerScheduler {
	return TickerScheduler{}
}

type tickerHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// Every implement Scheduler
func (TickerScheduler) Every(d time.Duration, fn func()) Handle {
	h := &tickerHandle{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-h.done:
				return
			case <-h.ticker.C:
				// Stop may race with a pending tick
				select {
				case <-h.done:
					return
				default:
				}
				fn()
			}
		}
	}()
	return h
}

func (h *tickerHandle) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}
