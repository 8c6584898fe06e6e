// Package records defines the ports to the external currency record store.
//
// The store is intentionally narrow: it lists every currency and updates the
// mutable fields of a single one. Adapters live in the subpackages and in
// internal/storage.
package records

import (
	"context"
	"errors"

	"cashbox/internal/core"
)

var ErrNotFound = errors.New("currency record not found")

// Ports for outbound adapters.
type (
	CurrencyLister interface {
		ListCurrencies(ctx context.Context) ([]core.CurrencyRecord, error)
	}

	// CurrencyUpdater applies a partial update to one record. Implementations
	// enforce core.CurrencyUpdate.CheckWriteOnce before writing.
	CurrencyUpdater interface {
		UpdateCurrency(ctx context.Context, id string, u core.CurrencyUpdate) error
	}

	Store interface {
		CurrencyLister
		CurrencyUpdater
	}
)
