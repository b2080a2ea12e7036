package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweep configuration, adjustable at runtime via /allocation/config.
// An interval of 0 disables automatic sweeps; manual runs via
// /allocation/run still work.
var (
	sweepMutex    sync.RWMutex
	sweepInterval time.Duration
)

// GetSweepInterval returns the current sweep interval (0 = disabled)
func GetSweepInterval() time.Duration {
	sweepMutex.RLock()
	defer sweepMutex.RUnlock()
	return sweepInterval
}

// SetSweepInterval updates the sweep interval
func SetSweepInterval(d time.Duration) {
	sweepMutex.Lock()
	defer sweepMutex.Unlock()
	sweepInterval = d
	log.Printf("[SWEEP] Allocation sweep interval set to %s", d)
}

// sweepDue reports whether a sweep should run now. A non-positive interval
// disables sweeping entirely.
func sweepDue(interval time.Duration, lastRun, now time.Time) bool {
	if interval <= 0 {
		return false
	}
	return now.Sub(lastRun) >= interval
}

// startSweepWorker periodically runs batch allocation over the current
// offer/request pools. The ticker fires every second and the configured
// interval gates the actual runs, so intervals shorter than the old tick are
// honored and interval changes take effect immediately. The engine serializes
// runs internally, so a sweep overlapping a manual /allocation/run simply
// waits its turn.
func startSweepWorker(app *App) {
	log.Println("Starting allocation sweep worker...")

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastRun time.Time
	for range ticker.C {
		if !sweepDue(GetSweepInterval(), lastRun, time.Now()) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		result, err := app.Engine.RunBatchAllocation(ctx)
		cancel()
		if err != nil {
			log.Printf("[SWEEP] Batch allocation failed: %v", err)
			continue
		}

		lastRun = time.Now()
		log.Printf("[SWEEP] Run %s: %d/%d requests matched (%d partial failures)",
			result.RunID, result.MatchedCount, result.TotalRequests, result.PartialFailures)
	}
}
