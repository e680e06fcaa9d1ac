package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chalklinehq/chalkline/backend/internal/alerts"
)

// DefaultSweepInterval is how often the alert sweep runs.
const DefaultSweepInterval = 5 * time.Minute

// SweeperConfig describes the periodic alert sweep.
type SweeperConfig struct {
	Alerts   *alerts.Store
	Interval time.Duration
	Logger   *zap.Logger
}

// Sweeper runs the alert store's auto-dismiss pass on a fixed interval.
type Sweeper struct {
	alerts   *alerts.Store
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper constructs a sweeper with the default cadence when none is set.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		alerts:   cfg.Alerts,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks, sweeping on every tick until the context is cancelled. The
// sweep itself never fails; results are only logged.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := s.alerts.AutoDismissOld()
			if result.Dismissed > 0 || result.Skipped > 0 {
				s.logger.Info("alert sweep completed",
					zap.Int("dismissed", result.Dismissed),
					zap.Int("skipped", result.Skipped))
			}
		}
	}
}
