package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"monthly/internal/cache"
	applog "monthly/internal/log"
	"monthly/internal/ratelimit"
	ports "monthly/internal/sheets"
)

const (
	// Amounts come back as numbers and dates as serial day numbers.
	valueRenderOption    = "UNFORMATTED_VALUE"
	dateTimeRenderOption = "SERIAL_NUMBER"
	// Written values are parsed as if typed, so "2024-01-15" becomes a date.
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"

	widthCacheSize = 256
)

// Client is a SheetStore backed by the Google Sheets values API.
type Client struct {
	svc     *gsheet.Service
	widths  *cache.LRU[string, int]
	limiter *ratelimit.Limiter
	log     *applog.Logger
}

var _ ports.SheetStore = (*Client)(nil)

// Credentials locates the service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

// New wraps an existing Sheets service. Header widths are cached for
// widthTTL; a zero TTL keeps them until evicted. API calls wait on limiter
// keyed by spreadsheet id; a nil limiter does not throttle.
func New(svc *gsheet.Service, widthTTL time.Duration, limiter *ratelimit.Limiter, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &Client{
		svc:     svc,
		widths:  cache.NewLRU[string, int](widthCacheSize, widthTTL),
		limiter: limiter,
		log:     logger.WithComponent(applog.ComponentSheets),
	}
}

// NewWithCredentials creates a client authenticated as a service account.
func NewWithCredentials(ctx context.Context, creds Credentials, widthTTL time.Duration, limiter *ratelimit.Limiter, logger *applog.Logger) (*Client, error) {
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, widthTTL, limiter, logger), nil
}

func newSheetsService(ctx context.Context, creds Credentials, opts ...goption.ClientOption) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(creds.JSON) != "":
		credentialsJSON = []byte(creds.JSON)
	case strings.TrimSpace(creds.File) != "":
		data, err := os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) wait(ctx context.Context, spreadsheetID string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, spreadsheetID); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func (c *Client) ReadAllRows(ctx context.Context, spreadsheetID, sheet string) ([][]any, error) {
	if err := c.wait(ctx, spreadsheetID); err != nil {
		return nil, err
	}
	rng := quoteSheet(sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption(valueRenderOption).
		DateTimeRenderOption(dateTimeRenderOption).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) AddRow(ctx context.Context, spreadsheetID, sheet string, row []any) error {
	if err := c.wait(ctx, spreadsheetID); err != nil {
		return err
	}
	rng := quoteSheet(sheet) + "!A1"
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	if resp.Updates != nil {
		c.log.DebugContext(ctx, "Row appended",
			applog.FieldOperation, applog.OpAppend,
			applog.FieldSheet, sheet,
			"range", resp.Updates.UpdatedRange)
	}
	return nil
}

func (c *Client) GetValue(ctx context.Context, spreadsheetID, sheet string, row, col int) (any, error) {
	rng, err := cellRange(sheet, row, col)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx, spreadsheetID); err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption(valueRenderOption).
		DateTimeRenderOption(dateTimeRenderOption).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return nil, nil
	}
	return resp.Values[0][0], nil
}

func (c *Client) SetValue(ctx context.Context, spreadsheetID, sheet string, row, col int, value any) error {
	rng, err := cellRange(sheet, row, col)
	if err != nil {
		return err
	}
	if err := c.wait(ctx, spreadsheetID); err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{{value}}}
	if _, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// NumberOfColumns returns the width of the header row. Widths are cached
// because headers only change when the sheet is edited by hand.
func (c *Client) NumberOfColumns(ctx context.Context, spreadsheetID, sheet string) (int, error) {
	key := spreadsheetID + "\x00" + sheet
	if n, ok := c.widths.Get(key); ok {
		return n, nil
	}
	if err := c.wait(ctx, spreadsheetID); err != nil {
		return 0, err
	}
	rng := quoteSheet(sheet) + "!1:1"
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	n := 0
	if len(resp.Values) > 0 {
		n = len(resp.Values[0])
	}
	c.widths.Set(key, n)
	return n, nil
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cellRange(sheet string, row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", fmt.Errorf("invalid cell R%dC%d", row, col)
	}
	return fmt.Sprintf("%s!%s%d", quoteSheet(sheet), colLetter(col), row), nil
}

// colLetter converts a 1-based column index to its letter: 1 -> A, 27 -> AA.
func colLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
