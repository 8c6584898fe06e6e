package google

import (
	"fmt"
	"strings"

	"cashbox/internal/core"
)

// firstDataRow is the sheet row of the first currency; row 1 holds headers.
const firstDataRow = 2

// parseRows converts sheet values into records. Blank rows are skipped.
// Rows with problems are still returned, with a warning describing the issue,
// so the caller decides what to do with them.
func parseRows(values [][]any) ([]core.CurrencyRecord, []error) {
	var (
		out      []core.CurrencyRecord
		warnings []error
	)
	for i, row := range values {
		cols := toStrings(row)
		if isBlank(cols) {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("row %d: %w", i+firstDataRow, err))
		}
		out = append(out, rec)
	}
	return out, warnings
}

func parseRow(row []any) (core.CurrencyRecord, error) {
	cols := toStrings(row)
	rec := core.CurrencyRecord{
		ID:        safeGet(cols, 0),
		Name:      safeGet(cols, 1),
		CashedOut: parseBool(safeGet(cols, 2)),
	}
	amount, err := core.ParseAmount(safeGet(cols, 3))
	if err != nil {
		return rec, err
	}
	rec.FinalAmount = amount
	return rec, nil
}

// rowValues renders a full row for writing.
func rowValues(rec core.CurrencyRecord) []any {
	return append([]any{rec.ID, rec.Name}, cashOutCells(rec)...)
}

func cashOutCells(rec core.CurrencyRecord) []any {
	amount := ""
	if rec.FinalAmount != nil {
		amount = rec.FinalAmount.StringFixed(2)
	}
	return []any{rec.CashedOut, amount}
}

// findRow returns the index into values of the row whose id matches, or -1.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if strings.TrimSpace(safeGet(toStrings(row), 0)) == id {
			return i
		}
	}
	return -1
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "x":
		return true
	}
	return false
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
