package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cashbox/internal/amqp"
	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"
	"cashbox/internal/storage"
)

// SyncSource is the local side of the mirror: the SQLite repository.
type SyncSource interface {
	GetCurrency(ctx context.Context, id string) (*storage.StoredCurrency, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id string, version int64) error
	MarkSyncError(ctx context.Context, id string) error
}

// Mirror writes a full record to the remote store.
type Mirror interface {
	MirrorCurrency(ctx context.Context, rec core.CurrencyRecord) error
}

// SyncWorker mirrors cashed out currencies from SQLite to Google Sheets.
type SyncWorker struct {
	source    SyncSource
	mirror    Mirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(source SyncSource, mirror Mirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage processes a single cash-out sync message from AMQP.
// The record is reloaded by id, so duplicate or late messages are harmless.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.CashOutSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldBoxID, msg.CurrencyID,
		"version", msg.Version)

	stored, err := w.source.GetCurrency(ctx, msg.CurrencyID)
	if errors.Is(err, records.ErrNotFound) {
		w.logger.WarnContext(ctx, "Dropping sync message for unknown currency", log.FieldBoxID, msg.CurrencyID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get currency from storage: %w", err)
	}

	if stored.SyncStatus == storage.SyncSynced && stored.Version >= msg.Version {
		w.logger.DebugContext(ctx, "Currency already synced", log.FieldBoxID, msg.CurrencyID)
		return nil
	}

	return w.sync(ctx, stored)
}

// ProcessPending mirrors rows still pending sync. It backs up the AMQP path
// when messages are lost or the broker is not configured.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger batch of pending rows at worker startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

// Run processes pending rows every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.source.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending currencies: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending currencies", log.FieldCount, len(pending))

	synced := 0
	for _, p := range pending {
		stored, err := w.source.GetCurrency(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to get currency", log.FieldBoxID, p.ID, log.FieldError, err)
			if err := w.source.MarkSyncError(ctx, p.ID); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldBoxID, p.ID, log.FieldError, err)
			}
			continue
		}
		if err := w.sync(ctx, stored); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync currency", log.FieldBoxID, p.ID, log.FieldError, err)
			continue
		}
		synced++
	}
	return synced, nil
}

// sync mirrors the record and marks the version it saw as synced. A failed
// mirror leaves the row pending for the next pass.
func (w *SyncWorker) sync(ctx context.Context, stored *storage.StoredCurrency) error {
	if err := w.mirror.MirrorCurrency(ctx, stored.CurrencyRecord); err != nil {
		return fmt.Errorf("mirror to sheets: %w", err)
	}

	if err := w.source.MarkSynced(ctx, stored.ID, stored.Version); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldBoxID, stored.ID, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced currency",
		log.FieldOperation, log.OpSync,
		log.FieldBoxID, stored.ID,
		"version", stored.Version,
		log.FieldFinalAmount, amountString(stored.FinalAmount))
	return nil
}

func amountString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
