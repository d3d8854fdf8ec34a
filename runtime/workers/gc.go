package workers

import (
	"context"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const gcDiscardRatio = 0.5

// BadgerGCWorker reclaims space from the channel log value log.
// Badger never rewrites value log files on its own, so a long-lived
// process has to trigger garbage collection periodically.
type BadgerGCWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewBadgerGCWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{log: log, db: db, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	w.log.Info("Starting badger GC worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// One GC call rewrites at most one value log file.
			// Keep going until badger reports nothing left to rewrite.
			rewritten := 0
			for w.db.RunValueLogGC(gcDiscardRatio) == nil {
				rewritten++
			}
			if rewritten > 0 {
				w.log.Info("Badger value log GC", "files_rewritten", rewritten)
			}
		}
	}
}
