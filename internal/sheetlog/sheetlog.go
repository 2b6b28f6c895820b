// Package sheetlog appends fetched observations to a Google Sheets tab so a
// spreadsheet keeps a durable log of everything the worker snapshotted.
package sheetlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cpiview/internal/core"
	"cpiview/internal/worker"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ worker.ObservationLogger = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet using Service
// Account credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Observations"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// AppendObservations implements worker.ObservationLogger, one row per
// observation: series name, FRED id, date, value.
func (c *Client) AppendObservations(ctx context.Context, seriesName, seriesID string, obs []core.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []interface{}{
			seriesName,
			seriesID,
			o.Date.Format(core.DateLayout),
			o.Value,
		})
	}

	rangeRef := c.sheetName + "!A:D"
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, rangeRef, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rangeRef, err)
	}

	slog.InfoContext(ctx, "Observations appended to sheet",
		"series_id", seriesID,
		"rows", len(rows),
		"sheet", c.sheetName)
	return nil
}
