package adapters

import (
	"context"

	"cashbox/internal/core"
	"cashbox/internal/records"
	"cashbox/internal/services"
	"cashbox/internal/storage"
)

// SQLiteAdapter exposes the SQLite repository and the cash-out sync service
// as one records.Store: reads go straight to SQLite, cash-outs go through
// the service so they are published for mirroring.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.CashOutSyncService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.CashOutSyncService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// ListCurrencies implements records.CurrencyLister
func (a *SQLiteAdapter) ListCurrencies(ctx context.Context) ([]core.CurrencyRecord, error) {
	return a.storage.ListCurrencies(ctx)
}

// UpdateCurrency implements records.CurrencyUpdater
func (a *SQLiteAdapter) UpdateCurrency(ctx context.Context, id string, u core.CurrencyUpdate) error {
	return a.service.UpdateCurrency(ctx, id, u)
}

// Ping reports whether the database answers.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}

var _ records.Store = (*SQLiteAdapter)(nil)
