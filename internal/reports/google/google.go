package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"otchet/internal/core"
	"otchet/internal/reports"
)

// Ensure interface conformance
var _ reports.PeriodReader = (*Client)(nil)

// Client reads report periods from a spreadsheet. An index sheet lists the
// period tabs in display order; every period tab holds a summary block in
// columns A:C and an entries block in columns E:H, both with a header row.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	indexSheet    string
	concurrency   int
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_INDEX_SHEET_NAME (default "Reports"),
// GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_SERVICE_ACCOUNT_FILE /
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	index := strings.TrimSpace(os.Getenv("GOOGLE_INDEX_SHEET_NAME"))
	if index == "" {
		index = "Reports"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, index), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, indexSheet string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		indexSheet:    indexSheet,
		concurrency:   4,
	}
}

// newSheetsService initializes a read-only Sheets service from Service
// Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ListPeriods reads the index and then every period tab concurrently.
// The result keeps index order.
func (c *Client) ListPeriods(ctx context.Context) ([]core.ReportPeriod, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1:D", c.indexSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	index, err := parseIndex(resp.Values)
	if err != nil {
		return nil, err
	}

	periods := make([]core.ReportPeriod, len(index))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, row := range index {
		g.Go(func() error {
			p, err := c.readPeriod(gctx, row)
			if err != nil {
				return fmt.Errorf("sheet %q: %w", row.Sheet, err)
			}
			periods[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Loaded periods from sheets", "spreadsheet_id", c.spreadsheetID, "periods", len(periods))
	return core.PreparePeriods(periods)
}

func (c *Client) readPeriod(ctx context.Context, row indexRow) (core.ReportPeriod, error) {
	summaryRng := fmt.Sprintf("%s!A1:C", row.Sheet)
	entriesRng := fmt.Sprintf("%s!E1:H", row.Sheet)
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(summaryRng, entriesRng).Context(ctx).Do()
	if err != nil {
		return core.ReportPeriod{}, fmt.Errorf("batch read: %w", err)
	}
	var summaryVals, entryVals [][]interface{}
	if len(resp.ValueRanges) > 0 {
		summaryVals = resp.ValueRanges[0].Values
	}
	if len(resp.ValueRanges) > 1 {
		entryVals = resp.ValueRanges[1].Values
	}
	return buildPeriod(row, summaryVals, entryVals)
}

func buildPeriod(row indexRow, summaryVals, entryVals [][]interface{}) (core.ReportPeriod, error) {
	main, err := parseSummary(summaryVals)
	if err != nil {
		return core.ReportPeriod{}, err
	}
	entries, err := parseEntries(entryVals)
	if err != nil {
		return core.ReportPeriod{}, err
	}
	return core.ReportPeriod{
		Title:      row.Title,
		TimePeriod: row.TimePeriod,
		Main:       main,
		Entries:    entries,
	}, nil
}
