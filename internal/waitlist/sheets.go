package waitlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const DefaultRange = "Sheet1!A:B"

// SheetsConfig holds service-account credentials for the signup spreadsheet.
type SheetsConfig struct {
	ClientEmail string
	PrivateKey  string
	SheetID     string
	Range       string
}

// Enabled reports whether enough is configured to write to a sheet.
func (c SheetsConfig) Enabled() bool {
	return c.ClientEmail != "" && c.PrivateKey != "" && c.SheetID != ""
}

// Sheets appends signups as [email, timestamp] rows.
type Sheets struct {
	values  *sheets.SpreadsheetsValuesService
	sheetID string
	rng     string
}

func NewSheets(ctx context.Context, cfg SheetsConfig) (*Sheets, error) {
	conf := &jwt.Config{
		Email: cfg.ClientEmail,
		// Keys supplied through env vars usually carry escaped newlines.
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	return newSheets(ctx, cfg, option.WithHTTPClient(conf.Client(ctx)))
}

func newSheets(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*Sheets, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	rng := cfg.Range
	if rng == "" {
		rng = DefaultRange
	}
	return &Sheets{values: srv.Spreadsheets.Values, sheetID: cfg.SheetID, rng: rng}, nil
}

func (s *Sheets) Append(ctx context.Context, email string, at time.Time) error {
	row := &sheets.ValueRange{
		Values: [][]interface{}{{email, at.Format(time.RFC3339)}},
	}
	_, err := s.values.Append(s.sheetID, s.rng, row).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	return nil
}
