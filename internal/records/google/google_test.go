package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"cashbox/internal/core"
	"cashbox/internal/records"
)

func TestParseRows(t *testing.T) {
	rows := [][]any{
		{"a1", "Doubloon", "FALSE", ""},
		{},
		{"", "", "", ""},
		{"b2", "Ducat", "TRUE", "6.38"},
		{"c3", "", "true", "-$6.68"},
		{"d4", "Florin"},
		{"e5", "Broken", "TRUE", "lots"},
	}

	recs, warnings := parseRows(rows)

	require.Len(t, recs, 5)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "row 8")

	assert.Equal(t, "a1", recs[0].ID)
	assert.False(t, recs[0].CashedOut)
	assert.Nil(t, recs[0].FinalAmount)

	assert.True(t, recs[1].CashedOut)
	require.NotNil(t, recs[1].FinalAmount)
	assert.Equal(t, "6.38", recs[1].FinalAmount.StringFixed(2))

	assert.Equal(t, "", recs[2].Name)
	require.NotNil(t, recs[2].FinalAmount)
	assert.Equal(t, "-6.68", recs[2].FinalAmount.StringFixed(2))

	assert.Equal(t, "Florin", recs[3].Name)
	assert.False(t, recs[3].CashedOut)

	assert.Equal(t, "e5", recs[4].ID)
	assert.Nil(t, recs[4].FinalAmount)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"TRUE", "true", " 1 ", "yes", "x"} {
		assert.True(t, parseBool(s), s)
	}
	for _, s := range []string{"", "FALSE", "0", "no"} {
		assert.False(t, parseBool(s), s)
	}
}

func TestRowValues(t *testing.T) {
	amount := decimal.RequireFromString("19.1")
	got := rowValues(core.CurrencyRecord{ID: "x", Name: "X", CashedOut: true, FinalAmount: &amount})
	assert.Equal(t, []any{"x", "X", true, "19.10"}, got)

	got = rowValues(core.CurrencyRecord{ID: "y", Name: "Y"})
	assert.Equal(t, []any{"y", "Y", false, ""}, got)
}

func TestFindRow(t *testing.T) {
	rows := [][]any{{"a"}, {" b "}, {}}
	assert.Equal(t, 0, findRow(rows, "a"))
	assert.Equal(t, 1, findRow(rows, "b"))
	assert.Equal(t, -1, findRow(rows, "c"))
}

func TestNilServiceGuard(t *testing.T) {
	c := &Client{}
	_, err := c.ListCurrencies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_SPREADSHEET_ID")
}

func TestCredentialsFromJSON(t *testing.T) {
	b, err := credentials(Config{ServiceAccountJSON: ` {"type":"service_account"} `})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(b))
}

// fakeSheet serves the subset of the Sheets values API the client uses.
type fakeSheet struct {
	mu      sync.Mutex
	rows    [][]any
	writes  []string
	appends int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Currencies!A2:D", "values": f.rows})
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.writes = append(f.writes, string(body))
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": 1})
	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":append"):
		f.appends++
		_ = json.NewEncoder(w).Encode(map[string]any{})
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func newFakeClient(t *testing.T, rows [][]any) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{rows: rows}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, fake
}

func TestClient_ListCurrencies(t *testing.T) {
	c, _ := newFakeClient(t, [][]any{
		{"a1", "Doubloon", "FALSE", ""},
		{"b2", "Ducat", "TRUE", "6.38"},
	})

	recs, err := c.ListCurrencies(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Doubloon", recs[0].Name)
	assert.True(t, recs[1].CashedOut)
}

func TestClient_UpdateCurrency(t *testing.T) {
	c, fake := newFakeClient(t, [][]any{
		{"a1", "Doubloon", "FALSE", ""},
		{"b2", "Ducat", "TRUE", "6.38"},
	})
	ctx := context.Background()

	err := c.UpdateCurrency(ctx, "a1", core.CashOut(decimal.RequireFromString("16.26")))
	require.NoError(t, err)
	require.Len(t, fake.writes, 1)
	assert.Contains(t, fake.writes[0], "16.26")

	err = c.UpdateCurrency(ctx, "b2", core.CashOut(decimal.RequireFromString("1")))
	assert.True(t, errors.Is(err, core.ErrAlreadyCashedOut))

	err = c.UpdateCurrency(ctx, "zz", core.CashOut(decimal.RequireFromString("1")))
	assert.True(t, errors.Is(err, records.ErrNotFound))
	assert.Len(t, fake.writes, 1)
}

func TestClient_UpdateCurrencyWriteOnce(t *testing.T) {
	c, fake := newFakeClient(t, [][]any{
		{"old", "Legacy", "TRUE", ""},
		{"bad", "Broken", "FALSE", "lots"},
	})
	ctx := context.Background()

	active := false
	err := c.UpdateCurrency(ctx, "old", core.CurrencyUpdate{CashedOut: &active})
	assert.ErrorIs(t, err, core.ErrAlreadyCashedOut)

	require.NoError(t, c.UpdateCurrency(ctx, "old", core.CashOut(decimal.RequireFromString("2.50"))))
	require.Len(t, fake.writes, 1)
	assert.Contains(t, fake.writes[0], "2.50")

	err = c.UpdateCurrency(ctx, "bad", core.CashOut(decimal.RequireFromString("1")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Len(t, fake.writes, 1)
}

func TestClient_MirrorCurrency(t *testing.T) {
	c, fake := newFakeClient(t, [][]any{{"a1", "Doubloon", "FALSE", ""}})
	ctx := context.Background()
	amount := decimal.RequireFromString("6.38")

	require.NoError(t, c.MirrorCurrency(ctx, core.CurrencyRecord{ID: "a1", Name: "Doubloon", CashedOut: true, FinalAmount: &amount}))
	require.NoError(t, c.MirrorCurrency(ctx, core.CurrencyRecord{ID: "n9", Name: "New"}))

	assert.Len(t, fake.writes, 1)
	assert.Equal(t, 1, fake.appends)
}
