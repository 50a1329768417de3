package flow

import (
	"context"
	"time"

	"github.com/bookline-ai/bookline/internal/observability/metrics"
	"github.com/bookline-ai/bookline/pkg/logging"
)

type abandonStore interface {
	SweepAbandoned(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically pauses idle sessions. The same sweep also runs lazily
// from the message path, so the worker is a liveness aid, not a correctness
// requirement.
type Sweeper struct {
	store    abandonStore
	timeout  time.Duration
	interval time.Duration
	metrics  *metrics.RouterMetrics
	logger   *logging.Logger
}

// NewSweeper constructs a sweeper with the given idle timeout and run
// interval.
func NewSweeper(store abandonStore, timeout, interval time.Duration, m *metrics.RouterMetrics, logger *logging.Logger) *Sweeper {
	if store == nil {
		panic("flow: abandon store required")
	}
	if timeout <= 0 {
		timeout = DefaultAbandonTimeout
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{store: store, timeout: timeout, interval: interval, metrics: m, logger: logger}
}

// SweepOnce runs a single pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.timeout)
	n, err := s.store.SweepAbandoned(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.ObserveAbandoned(int(n))
		s.logger.Info("flow sessions abandoned", "count", n)
	}
	return n, nil
}

// Run loops until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("abandonment sweep failed", "error", err)
			}
		}
	}
}
