package worker

import (
	"context"
	"time"

	"taskboard/internal/logger"

	"go.uber.org/zap"
)

const defaultInterval = time.Minute

// Reloader replaces local board state with the store's.
type Reloader interface {
	Reload(ctx context.Context) error
}

type SyncWorker struct {
	board    Reloader
	interval time.Duration
	timeout  time.Duration
	onSync   func()
}

// NewSyncWorker builds a worker that reloads board every interval. A nil interval means one
// minute; each pass is bounded by timeout when it is positive.
func NewSyncWorker(board Reloader, interval *time.Duration, timeout time.Duration) *SyncWorker {
	intervalToSet := defaultInterval
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}
	return &SyncWorker{
		board:    board,
		interval: intervalToSet,
		timeout:  timeout,
	}
}

// OnSync registers fn to run after every successful reload.
func (w *SyncWorker) OnSync(fn func()) {
	w.onSync = fn
}

func (w *SyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Debug("Worker: background resync", zap.Time("started_at", time.Now()))
			w.Sync(ctx)
		case <-ctx.Done():
			logger.Info("Worker: background resync stopping")
			return
		}
	}
}

// Sync runs a single reload and reports whether it succeeded.
func (w *SyncWorker) Sync(ctx context.Context) bool {
	start := time.Now()

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.board.Reload(ctx); err != nil {
		logger.Warn("Worker: resync failed", zap.Error(err), zap.Duration("ms", time.Since(start)))
		return false
	}

	logger.Debug("Worker: resync done", zap.Duration("ms", time.Since(start)))
	if w.onSync != nil {
		w.onSync()
	}
	return true
}
