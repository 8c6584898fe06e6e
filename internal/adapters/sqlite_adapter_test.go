package adapters

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/services"
	"cashbox/internal/storage"
)

func TestSQLiteAdapter_CashOutRoundTrip(t *testing.T) {
	ctx := context.Background()
	logger := log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "cashbox.db"), logger)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	svc := services.NewCashOutSyncService(repo, nil, logger)
	t.Cleanup(func() { svc.Close() })

	if _, err := repo.SeedIfEmpty(ctx, []core.CurrencyRecord{{ID: "abc", Name: "Gold"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	adapter := NewSQLiteAdapter(repo, svc)
	if err := adapter.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := adapter.UpdateCurrency(ctx, "abc", core.CashOut(decimal.RequireFromString("6.38"))); err != nil {
		t.Fatalf("update: %v", err)
	}

	recs, err := adapter.ListCurrencies(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || !recs[0].CashedOut || recs[0].FinalAmount.StringFixed(2) != "6.38" {
		t.Fatalf("unexpected records: %+v", recs)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "abc" {
		t.Fatalf("cash-out should be pending sync, got %+v", pending)
	}
}
