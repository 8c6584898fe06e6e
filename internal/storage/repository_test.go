package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	logger := log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "cashbox.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_SeedAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n, err := repo.SeedIfEmpty(ctx, []core.CurrencyRecord{{ID: "b", Name: "Second"}, {ID: "a", Name: "First"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// second seed is a no-op
	n, err = repo.SeedIfEmpty(ctx, []core.CurrencyRecord{{ID: "c"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	recs, err := repo.ListCurrencies(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, "a", recs[1].ID)
	assert.False(t, recs[0].CashedOut)
	assert.Nil(t, recs[0].FinalAmount)

	require.NoError(t, repo.Ping(ctx))
}

func TestSQLiteRepository_CashOut(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.UpsertCurrency(ctx, core.CurrencyRecord{ID: "X", Name: "Gold"}, 0))

	amount := decimal.RequireFromString("-6.68")
	require.NoError(t, repo.UpdateCurrency(ctx, "X", core.CashOut(amount)))

	recs, err := repo.ListCurrencies(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].CashedOut)
	require.NotNil(t, recs[0].FinalAmount)
	assert.True(t, recs[0].FinalAmount.Equal(amount))

	stored, err := repo.GetCurrency(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, SyncPending, stored.SyncStatus)

	err = repo.UpdateCurrency(ctx, "X", core.CashOut(decimal.NewFromInt(40)))
	assert.ErrorIs(t, err, core.ErrAlreadyCashedOut)

	// upsert never resets a cash-out
	require.NoError(t, repo.UpsertCurrency(ctx, core.CurrencyRecord{ID: "X", Name: "Renamed"}, 3))
	stored, err = repo.GetCurrency(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.True(t, stored.CashedOut)
	assert.Equal(t, "-6.68", stored.FinalAmount.StringFixed(2))
}

func TestSQLiteRepository_CashedOutNeverReturnsToActive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.UpsertCurrency(ctx, core.CurrencyRecord{ID: "L", Name: "Legacy", CashedOut: true}, 0))

	active := false
	err := repo.UpdateCurrency(ctx, "L", core.CurrencyUpdate{CashedOut: &active})
	assert.ErrorIs(t, err, core.ErrAlreadyCashedOut)

	require.NoError(t, repo.UpdateCurrency(ctx, "L", core.CashOut(decimal.RequireFromString("2.50"))))
	err = repo.UpdateCurrency(ctx, "L", core.CashOut(decimal.NewFromInt(9)))
	assert.ErrorIs(t, err, core.ErrAlreadyCashedOut)
}

func TestSQLiteRepository_UnknownID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.UpdateCurrency(ctx, "missing", core.CashOut(decimal.Zero))
	assert.True(t, errors.Is(err, records.ErrNotFound), "got %v", err)

	_, err = repo.GetCurrency(ctx, "missing")
	assert.ErrorIs(t, err, records.ErrNotFound)

	assert.ErrorIs(t, repo.UpsertCurrency(ctx, core.CurrencyRecord{}, 0), core.ErrEmptyID)
}

func TestSQLiteRepository_SyncBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.UpsertCurrency(ctx, core.CurrencyRecord{ID: id}, i))
	}
	require.NoError(t, repo.UpdateCurrency(ctx, "a", core.CashOut(decimal.NewFromInt(1))))
	require.NoError(t, repo.UpdateCurrency(ctx, "b", core.CashOut(decimal.NewFromInt(2))))

	pending, err := repo.GetPendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	limited, err := repo.GetPendingSync(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// stale version leaves the row pending
	require.NoError(t, repo.MarkSynced(ctx, "a", 1))
	stored, err := repo.GetCurrency(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, SyncPending, stored.SyncStatus)

	require.NoError(t, repo.MarkSynced(ctx, "a", stored.Version))
	require.NoError(t, repo.MarkSyncError(ctx, "b"))

	pending, err = repo.GetPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	stored, err = repo.GetCurrency(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, SyncError, stored.SyncStatus)
}
