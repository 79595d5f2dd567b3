/*
scheduler.go - Background replan scheduler

PURPOSE:
  Periodically regenerates the full reminder schedule so entries stay
  consistent with the current data and preferences without requiring a
  manual /api/admin/replan call after every change.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each tick loads the stored preferences and runs one Replan pass
  - Replan is idempotent, so overlapping data changes between ticks are
    absorbed by the next pass

CONFIGURATION:
  - CheckInterval: How often to replan (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReplanScheduler(store, handler.Replanner)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerReplan endpoint (manual pass)
  - notify/replan.go: The Replanner this drives
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/credential-engine/notify"
	"github.com/warp/credential-engine/store/sqlite"
)

// ReplanScheduler runs periodic replan passes.
type ReplanScheduler struct {
	Store         *sqlite.Store
	Replanner     *notify.Replanner
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReplanScheduler creates a new scheduler.
func NewReplanScheduler(store *sqlite.Store, replanner *notify.Replanner) *ReplanScheduler {
	return &ReplanScheduler{
		Store:         store,
		Replanner:     replanner,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReplanScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReplanScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReplanScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.replanOnce()

	for {
		select {
		case <-rs.ticker.C:
			rs.replanOnce()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReplanScheduler) replanOnce() {
	ctx := context.Background()

	prefs, err := rs.Store.LoadPreferences(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error loading preferences: %v", err)
		return
	}

	sum, err := rs.Replanner.Replan(ctx, prefs)
	if err != nil {
		log.Printf("[Scheduler] Replan failed: %v", err)
		return
	}
	if sum.Planned > 0 || sum.Dropped > 0 {
		log.Printf("[Scheduler] Replan completed: %d planned, %d dropped, %d suppressed",
			sum.Planned, sum.Dropped, sum.Suppressed)
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (rs *ReplanScheduler) RunNow() {
	rs.replanOnce()
}

// GetNextRunTime returns when the next scheduled pass will occur.
func (rs *ReplanScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
