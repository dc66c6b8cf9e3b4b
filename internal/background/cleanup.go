package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/moverap/backend/internal/metrics"
)

// Sweeper drops attempt records whose lock has already expired
type Sweeper interface {
	Sweep(now time.Time) int
	Len() int
}

// CleanupManager periodically reclaims expired lock records and refreshes
// the gauges that are sampled rather than event driven.
type CleanupManager struct {
	sweeper  Sweeper
	stats    func()
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager. sweeper may be nil when
// the attempt store expires its own keys; stats may be nil.
func NewCleanupManager(sweeper Sweeper, stats func(), logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		sweeper:  sweeper,
		stats:    stats,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the periodic task until ctx is done or Stop is called
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup()

	for {
		select {
		case <-ticker.C:
			cm.runCleanup()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup() {
	if cm.stats != nil {
		cm.stats()
	}

	if cm.sweeper == nil {
		return
	}

	swept := cm.sweeper.Sweep(cm.now())
	metrics.LockoutRecordsSwept.Add(float64(swept))
	metrics.LockoutRecords.Set(float64(cm.sweeper.Len()))

	if swept > 0 {
		cm.logger.Info("expired lock records swept", slog.Int("records", swept))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
