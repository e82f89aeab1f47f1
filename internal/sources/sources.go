// Package sources builds the configured seed source.
package sources

import (
	"context"
	"fmt"

	"txreport/internal/config"
	"txreport/internal/ports"
	"txreport/internal/sources/google"
	"txreport/internal/sources/httpjson"
)

func FromConfig(ctx context.Context, cfg *config.Config) (ports.TransactionSource, error) {
	switch cfg.SeedSource {
	case "http", "":
		return httpjson.New(cfg.SeedURL, cfg.SeedTimeout), nil
	case "sheets":
		return google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	default:
		return nil, fmt.Errorf("unsupported seed source: %s", cfg.SeedSource)
	}
}
