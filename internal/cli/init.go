// Package cli holds the initialization steps shared by the monthly-worker,
// monthly-validate and monthly-record commands.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"monthly/internal/backend"
	"monthly/internal/config"
	applog "monthly/internal/log"
	"monthly/internal/monthly"
	"monthly/internal/registry"
	"monthly/internal/sheets"
	"monthly/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the configured level and sets
// it as the default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(component string) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the transaction ledger, running migrations.
// Exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitRegistry loads the spreadsheet layout, opens the configured sheet
// backend and binds a handler to every Monthly spreadsheet.
// Exits the process on failure.
func InitRegistry(ctx context.Context, cfg *config.Config, ledger sheets.Ledger, logger *applog.Logger) *registry.Registry {
	layout, err := config.LoadSpreadsheets(cfg.SpreadsheetsConfigPath)
	if err != nil {
		logger.Error("Failed to load spreadsheets config", applog.FieldError, err, "path", cfg.SpreadsheetsConfigPath)
		os.Exit(1)
	}

	store, err := backend.NewSheetStore(ctx, cfg, layout, logger)
	if err != nil {
		logger.Error("Failed to initialize sheet store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	reg, err := registry.New(ctx, layout, monthly.Deps{Store: store, Ledger: ledger, Logger: logger})
	if err != nil {
		logger.Error("Failed to initialize registry", applog.FieldError, err)
		os.Exit(1)
	}
	return reg
}
