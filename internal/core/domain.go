package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTitle is shown for boxes whose record carries no usable name.
const DefaultTitle = "Untitled"

// DefaultHistoryDays is the number of entries in a box price history.
const DefaultHistoryDays = 10

type (
	// CurrencyRecord is a currency as owned by the external record store.
	CurrencyRecord struct {
		ID          string
		Name        string
		CashedOut   bool
		FinalAmount *decimal.Decimal
	}

	// CurrencyUpdate carries the fields a cash-out may change. Nil fields are left untouched.
	CurrencyUpdate struct {
		CashedOut   *bool
		FinalAmount *decimal.Decimal
	}

	// HistoryEntry is one day of a box price history.
	HistoryEntry struct {
		Date  time.Time
		Label string
		Price decimal.Decimal
	}

	// Box is the view model derived from a CurrencyRecord for a given day.
	Box struct {
		ID          string
		Title       string
		Price       decimal.Decimal
		CashedOut   bool
		FinalAmount *decimal.Decimal
		History     []HistoryEntry
	}
)

var (
	ErrEmptyID          = errors.New("empty currency id")
	ErrInvalidRange     = errors.New("invalid price range")
	ErrBoxNotFound      = errors.New("box not found")
	ErrAlreadyCashedOut = errors.New("box already cashed out")
	ErrNoConfirmation   = errors.New("no cash-out confirmation pending")
	ErrCommitInProgress = errors.New("cash-out already in progress")
	ErrCommitFailed     = errors.New("cash-out commit failed")
	ErrFetchFailed      = errors.New("currency fetch failed")
)

// CashOut builds the update that irreversibly cashes a currency out at amount.
func CashOut(amount decimal.Decimal) CurrencyUpdate {
	cashed := true
	return CurrencyUpdate{CashedOut: &cashed, FinalAmount: &amount}
}

// Apply returns a copy of r with the non-nil fields of u applied.
func (u CurrencyUpdate) Apply(r CurrencyRecord) CurrencyRecord {
	if u.CashedOut != nil {
		r.CashedOut = *u.CashedOut
	}
	if u.FinalAmount != nil {
		amount := *u.FinalAmount
		r.FinalAmount = &amount
	}
	return r
}

// CheckWriteOnce reports whether u may be applied to r. A cashed-out record
// never returns to active, and a final amount recorded on it is never replaced.
func (u CurrencyUpdate) CheckWriteOnce(r CurrencyRecord) error {
	if !r.CashedOut {
		return nil
	}
	if u.CashedOut != nil && !*u.CashedOut {
		return fmt.Errorf("%w: %s cannot return to active", ErrAlreadyCashedOut, r.ID)
	}
	if u.FinalAmount != nil && r.FinalAmount != nil {
		return fmt.Errorf("%w: %s already recorded %s", ErrAlreadyCashedOut, r.ID, r.FinalAmount.StringFixed(2))
	}
	return nil
}

// Validate reports whether the record can be turned into a box.
func (r CurrencyRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	return nil
}

// Title returns the display title, falling back to DefaultTitle.
func (r CurrencyRecord) Title() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return DefaultTitle
}

// NewBox derives the view model for record on the calendar day of today.
// A final amount on a record that is not cashed out is ignored.
func NewBox(r CurrencyRecord, g *Generator, today time.Time, days int) Box {
	b := Box{
		ID:        r.ID,
		Title:     r.Title(),
		Price:     g.Price(r.ID, today),
		CashedOut: r.CashedOut,
		History:   g.History(r.ID, today, days),
	}
	if r.CashedOut && r.FinalAmount != nil {
		amount := *r.FinalAmount
		b.FinalAmount = &amount
	}
	return b
}

// Amount is the value shown on the box: the final amount once cashed out,
// the current price otherwise. A cashed-out box without a recorded final
// amount has no value to show and ok is false.
func (b Box) Amount() (amount decimal.Decimal, ok bool) {
	if !b.CashedOut {
		return b.Price, true
	}
	if b.FinalAmount == nil {
		return decimal.Decimal{}, false
	}
	return *b.FinalAmount, true
}
