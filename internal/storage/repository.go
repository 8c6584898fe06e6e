package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"

	_ "modernc.org/sqlite"
)

// Sync states of a currency row relative to the remote sheet.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// StoredCurrency is a currency row with its sync bookkeeping.
type StoredCurrency struct {
	core.CurrencyRecord
	Version    int64
	SyncStatus string
	UpdatedAt  time.Time
}

// PendingSync is the minimal data needed to enqueue a sync message.
type PendingSync struct {
	ID        string
	Version   int64
	UpdatedAt time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListCurrencies implements records.CurrencyLister
func (r *SQLiteRepository) ListCurrencies(ctx context.Context) ([]core.CurrencyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, cashed_out, final_amount FROM currencies ORDER BY position, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var out []core.CurrencyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate currencies: %w", err)
	}
	return out, nil
}

// UpdateCurrency implements records.CurrencyUpdater. Every successful update
// bumps the row version and marks it pending for sync.
func (r *SQLiteRepository) UpdateCurrency(ctx context.Context, id string, u core.CurrencyUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT id, name, cashed_out, final_amount FROM currencies WHERE id = ?`, id)
	current, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", records.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	if err := u.CheckWriteOnce(current); err != nil {
		return err
	}

	next := u.Apply(current)
	if _, err := tx.ExecContext(ctx,
		`UPDATE currencies
		    SET cashed_out = ?, final_amount = ?, version = version + 1,
		        sync_status = ?, updated_at = CURRENT_TIMESTAMP
		  WHERE id = ?`,
		boolToInt(next.CashedOut), amountValue(next.FinalAmount), SyncPending, id); err != nil {
		return fmt.Errorf("update currency %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	r.logger.InfoContext(ctx, "Currency updated",
		log.FieldBoxID, id,
		"cashed_out", next.CashedOut,
		log.FieldFinalAmount, amountValue(next.FinalAmount))
	return nil
}

// UpsertCurrency inserts a record or refreshes its name and position.
// Cash-out fields of an existing row are never overwritten.
func (r *SQLiteRepository) UpsertCurrency(ctx context.Context, rec core.CurrencyRecord, position int) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO currencies (id, name, cashed_out, final_amount, position)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, position = excluded.position`,
		rec.ID, rec.Name, boolToInt(rec.CashedOut), amountValue(rec.FinalAmount), position)
	if err != nil {
		return fmt.Errorf("upsert currency %s: %w", rec.ID, err)
	}
	return nil
}

// SeedIfEmpty inserts recs when the table has no rows and reports how many were added.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, recs []core.CurrencyRecord) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM currencies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count currencies: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for i, rec := range recs {
		if err := r.UpsertCurrency(ctx, rec, i); err != nil {
			return i, err
		}
	}
	r.logger.InfoContext(ctx, "Seeded currencies", log.FieldCount, len(recs))
	return len(recs), nil
}

// GetCurrency returns one row with its sync bookkeeping.
func (r *SQLiteRepository) GetCurrency(ctx context.Context, id string) (*StoredCurrency, error) {
	var (
		sc       StoredCurrency
		cashed   int64
		amount   sql.NullString
		updateAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, cashed_out, final_amount, version, sync_status, updated_at
		   FROM currencies WHERE id = ?`, id).
		Scan(&sc.ID, &sc.Name, &cashed, &amount, &sc.Version, &sc.SyncStatus, &updateAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", records.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get currency %s: %w", id, err)
	}
	sc.CashedOut = cashed == 1
	sc.UpdatedAt = updateAt.Time
	if sc.FinalAmount, err = parseAmount(amount); err != nil {
		return nil, fmt.Errorf("currency %s: %w", id, err)
	}
	return &sc, nil
}

// GetPendingSync returns up to limit rows waiting to be mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, updated_at FROM currencies
		  WHERE sync_status = ? ORDER BY updated_at, id LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p       PendingSync
			updated sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Version, &updated); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		p.UpdatedAt = updated.Time
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a row synced if it is still at version. A newer version stays pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE currencies SET sync_status = ? WHERE id = ? AND version = ?`, SyncSynced, id, version)
	if err != nil {
		return fmt.Errorf("mark currency synced: %w", err)
	}
	r.logger.DebugContext(ctx, "Currency marked as synced", log.FieldBoxID, id, "version", version)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE currencies SET sync_status = ? WHERE id = ?`, SyncError, id)
	if err != nil {
		return fmt.Errorf("mark currency sync error: %w", err)
	}
	r.logger.WarnContext(ctx, "Currency marked with sync error", log.FieldBoxID, id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.CurrencyRecord, error) {
	var (
		rec    core.CurrencyRecord
		cashed int64
		amount sql.NullString
	)
	if err := s.Scan(&rec.ID, &rec.Name, &cashed, &amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan currency: %w", err)
	}
	rec.CashedOut = cashed == 1
	fa, err := parseAmount(amount)
	if err != nil {
		return rec, fmt.Errorf("currency %s: %w", rec.ID, err)
	}
	rec.FinalAmount = fa
	return rec, nil
}

func parseAmount(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	return core.ParseAmount(s.String)
}

func amountValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ records.Store = (*SQLiteRepository)(nil)
