/*
scheduler.go - Background repair of budget totals

PURPOSE:
  Periodically re-derives ActualAmount for every budget that has an
  unresolved reconciliation failure (an increment that could not land
  after its entry was written).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Each pass repairs at most BatchSize failures
  - A pass that errors is logged and retried on the next tick

USAGE:
  scheduler := NewRepairScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - ledger/budgets.go: RepairPending
  - ledger/engine.go: Repair
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Repairer is the part of ledger.Service the scheduler drives.
type Repairer interface {
	RepairPending(ctx context.Context, limit int) (int, error)
}

// RepairScheduler handles automated budget repair.
type RepairScheduler struct {
	Repairer      Repairer
	Logger        *slog.Logger
	CheckInterval time.Duration
	BatchSize     int
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRepairScheduler creates a new scheduler.
func NewRepairScheduler(repairer Repairer, logger *slog.Logger) *RepairScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairScheduler{
		Repairer:      repairer,
		Logger:        logger.With("component", "repair-scheduler"),
		CheckInterval: 5 * time.Minute,
		BatchSize:     100,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (rs *RepairScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rs.cancel = cancel
	rs.stop = make(chan struct{})
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run(ctx)

	rs.Logger.Info("started", "interval", rs.CheckInterval)
}

// Stop stops the scheduler and waits for a running pass to finish.
func (rs *RepairScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.cancel()
	rs.wg.Wait()
	rs.ticker = nil
	rs.Logger.Info("stopped")
}

func (rs *RepairScheduler) run(ctx context.Context) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunOnce(ctx)

	for {
		select {
		case <-rs.ticker.C:
			rs.RunOnce(ctx)
		case <-rs.stop:
			return
		}
	}
}

// RunOnce performs a single repair pass and returns how many budgets were
// repaired.
func (rs *RepairScheduler) RunOnce(ctx context.Context) int {
	repaired, err := rs.Repairer.RepairPending(ctx, rs.BatchSize)
	if err != nil {
		rs.Logger.ErrorContext(ctx, "repair pass failed", "repaired", repaired, "error", err)
		return repaired
	}
	if repaired > 0 {
		rs.Logger.InfoContext(ctx, "repair pass complete", "repaired", repaired)
	} else {
		rs.Logger.DebugContext(ctx, "nothing to repair")
	}
	return repaired
}
