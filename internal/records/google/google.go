package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Currencies"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client stores currency records in a Google Sheet with the layout
// id | name | cashed_out | final_amount, one currency per row below a header row.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// Ensure interface conformance
var _ records.Store = (*Client)(nil)

func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}

	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger = logger.WithComponent(log.ComponentSheets)
	logger.InfoContext(ctx, "Google Sheets service created", "sheet", sheet)

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet, logger: logger}, nil
}

// credentials returns the service account JSON from the config, the
// configured file, or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.ServiceAccountJSON); js != "" {
		return []byte(js), nil
	}
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// ListCurrencies implements records.CurrencyLister
func (c *Client) ListCurrencies(ctx context.Context) ([]core.CurrencyRecord, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	recs, warnings := parseRows(rows)
	for _, w := range warnings {
		c.logger.WarnContext(ctx, "Malformed currency row", log.FieldError, w)
	}
	return recs, nil
}

// UpdateCurrency implements records.CurrencyUpdater. Only the cashed_out and
// final_amount cells of the matching row are written.
func (c *Client) UpdateCurrency(ctx context.Context, id string, u core.CurrencyUpdate) error {
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	idx := findRow(rows, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", records.ErrNotFound, id)
	}
	current, err := parseRow(rows[idx])
	if err != nil {
		return fmt.Errorf("row %d: %w", idx+firstDataRow, err)
	}
	if err := u.CheckWriteOnce(current); err != nil {
		return err
	}
	next := u.Apply(current)

	row := idx + firstDataRow
	rng := fmt.Sprintf("%s!C%d:D%d", c.sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{cashOutCells(next)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Currency updated in sheet", log.FieldBoxID, id, "range", rng)
	return nil
}

// MirrorCurrency writes rec to its row, appending a new row when the id is
// not in the sheet yet. The local record wins over whatever the sheet holds.
func (c *Client) MirrorCurrency(ctx context.Context, rec core.CurrencyRecord) error {
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	values := [][]any{rowValues(rec)}

	if idx := findRow(rows, rec.ID); idx >= 0 {
		row := idx + firstDataRow
		rng := fmt.Sprintf("%s!A%d:D%d", c.sheet, row, row)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:D", c.sheet)
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	c.logger.InfoContext(ctx, "Currency appended to sheet", log.FieldBoxID, rec.ID)
	return nil
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A%d:D", c.sheet, firstDataRow)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
