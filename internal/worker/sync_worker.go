package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/sheets"
	"ledger/internal/storage"
)

// SyncWorker keeps a TransactionMirror in step with the store, driven by
// ledger events and a periodic full resync.
type SyncWorker struct {
	store  storage.Store
	mirror sheets.TransactionMirror

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(store storage.Store, mirror sheets.TransactionMirror) *SyncWorker {
	return &SyncWorker{store: store, mirror: mirror}
}

// HandleEvent applies a single ledger event to the mirror.
func (w *SyncWorker) HandleEvent(ctx context.Context, evt *amqp.Event) error {
	slog.InfoContext(ctx, "Processing ledger event", "event", evt.Event, "id", evt.ID)

	switch evt.Event {
	case amqp.EventTransactionCreated:
		t, err := w.store.GetTransaction(ctx, evt.ID)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before we got here; its delete event follows.
			slog.WarnContext(ctx, "Transaction vanished before sync", "id", evt.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		if err := w.mirror.Append(ctx, t); err != nil {
			return fmt.Errorf("append to mirror: %w", err)
		}
	case amqp.EventTransactionDeleted:
		if err := w.mirror.Remove(ctx, evt.ID); err != nil {
			return fmt.Errorf("remove from mirror: %w", err)
		}
	default:
		return fmt.Errorf("unknown event %q", evt.Event)
	}
	return nil
}

// ResyncAll rewrites the mirror from the store, repairing anything missed
// while the worker was down or the broker dropped messages.
func (w *SyncWorker) ResyncAll(ctx context.Context) error {
	ts, err := w.store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, ts); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror resynced", "transactions", len(ts))
	return nil
}

// Start runs ResyncAll immediately and then every interval until Stop or
// ctx cancellation.
func (w *SyncWorker) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid resync interval %s", interval)
	}
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, interval, stopCh, doneCh)

	slog.InfoContext(ctx, "Sync worker started", "resync_interval", interval)
	return nil
}

// Stop waits for the resync loop to exit or ctx to expire.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.resync(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.resync(ctx)
		}
	}
}

func (w *SyncWorker) resync(ctx context.Context) {
	if err := w.ResyncAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Mirror resync failed", "error", err)
	}
}
