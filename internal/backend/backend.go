// Package backend builds the SheetStore selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"
	"sort"

	"monthly/internal/config"
	applog "monthly/internal/log"
	"monthly/internal/ratelimit"
	"monthly/internal/sheets"
	gsheet "monthly/internal/sheets/google"
	"monthly/internal/sheets/memory"
)

// BackendType represents the type of backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) IsValid() bool {
	return t == SheetsBackend || t == MemoryBackend
}

// NewSheetStore returns the store for cfg.DataBackend. The memory store is
// seeded with an empty sheet per configured sheet so the commands can run
// without Google credentials.
func NewSheetStore(ctx context.Context, cfg *config.Config, layout config.SpreadSheets, logger *applog.Logger) (sheets.SheetStore, error) {
	if logger == nil {
		logger = applog.FromContext(ctx)
	}
	switch t := BackendType(cfg.DataBackend); t {
	case SheetsBackend:
		var limiter *ratelimit.Limiter
		if cfg.SheetsRequestsPerMinute > 0 {
			limiter = ratelimit.NewLimiter(ratelimit.Config{
				RequestsPerMinute: cfg.SheetsRequestsPerMinute,
				Burst:             cfg.SheetsBurst,
			})
		}
		cli, err := gsheet.NewWithCredentials(ctx, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		}, cfg.SheetWidthCacheTTL, limiter, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		logger.InfoContext(ctx, "Initialized Google Sheets backend",
			"width_cache_ttl", cfg.SheetWidthCacheTTL,
			"requests_per_minute", cfg.SheetsRequestsPerMinute)
		return cli, nil
	case MemoryBackend:
		store := SeedMemory(layout)
		logger.InfoContext(ctx, "Initialized memory backend", "spreadsheets", len(layout))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", t)
	}
}

// SeedMemory creates every configured sheet with a header built from its
// column mapping.
func SeedMemory(layout config.SpreadSheets) *memory.Store {
	store := memory.New()
	for _, ss := range layout {
		for _, sh := range ss.Sheets {
			store.CreateSheet(ss.ID, sh.Name, Header(sh)...)
		}
	}
	return store
}

// Header returns the header row implied by a sheet's columns: "Date" in
// column 1, labels at their indices and the total label last.
func Header(sh config.SheetConfig) []string {
	width := sh.Total()
	for _, idx := range sh.Columns {
		width = max(width, idx)
	}
	if width < 1 {
		return []string{"Date"}
	}
	header := make([]string, width)
	header[0] = "Date"

	labels := make([]string, 0, len(sh.Columns))
	for label := range sh.Columns {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if idx := sh.Columns[label]; idx > 1 {
			header[idx-1] = label
		}
	}
	if total := sh.Total(); total > 1 && header[total-1] == "" {
		header[total-1] = config.TotalLabel
	}
	return header
}
