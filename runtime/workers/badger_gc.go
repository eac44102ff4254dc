package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGCWorker periodically rewrites badger's value log. Badger never
// reclaims space on its own; without this loop the message log grows
// with every seen-flag rewrite.
type BadgerGCWorker struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGCWorker(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, log: log, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// One pass per tick; 0.5 means only value-log files that are
			// at least half garbage get rewritten.
			err := w.db.RunValueLogGC(0.5)
			switch {
			case err == nil:
				w.log.Debug("Badger value log GC rewrote a file")
			case errors.Is(err, badger.ErrNoRewrite):
				// Nothing worth collecting this round.
			default:
				w.log.Warn("Badger value log GC failed", "error", err)
			}
		}
	}
}
