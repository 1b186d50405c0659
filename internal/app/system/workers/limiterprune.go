// internal/app/system/workers/limiterprune.go
package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pruner forgets entries idle for longer than the given duration and
// reports how many it dropped. *ratelimit.LoginLimiter satisfies it.
type Pruner interface {
	Prune(idle time.Duration) int
}

// LimiterPrune is a background worker that keeps rate-limiter memory bounded
// by dropping buckets nobody has touched recently.
type LimiterPrune struct {
	pruner   Pruner
	log      *zap.Logger
	interval time.Duration
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLimiterPrune creates a new prune worker.
//
// Parameters:
//   - pruner: the limiter to prune
//   - logger: zap logger for logging
//   - interval: how often to run (e.g., 1 minute)
//   - idle: how long a bucket must be untouched before it is dropped (e.g., 10 minutes)
func NewLimiterPrune(pruner Pruner, logger *zap.Logger, interval, idle time.Duration) *LimiterPrune {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LimiterPrune{
		pruner:   pruner,
		log:      logger,
		interval: interval,
		idle:     idle,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *LimiterPrune) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("limiter prune worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("idle", w.idle))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *LimiterPrune) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("limiter prune worker stopped")
	})
}

func (w *LimiterPrune) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.prune()
		}
	}
}

func (w *LimiterPrune) prune() {
	if n := w.pruner.Prune(w.idle); n > 0 {
		w.log.Debug("pruned idle rate-limit buckets", zap.Int("count", n))
	}
}
