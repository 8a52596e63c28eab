package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"monthly/internal/cli"
	applog "monthly/internal/log"
	"monthly/internal/monthly"
)

// Exit codes: 0 every sheet matches the ledger, 1 error, 2 mismatches found.
func main() {
	cli.LoadEnvFile()

	spreadsheet := flag.String("spreadsheet", "", "validate only the spreadsheet with this id")
	flag.Parse()

	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentValidate)
	ctx := context.Background()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()
	reg := cli.InitRegistry(ctx, cfg, repo, logger)

	var (
		reports []*monthly.Report
		err     error
	)
	if *spreadsheet != "" {
		ss, lookupErr := reg.Spreadsheet(*spreadsheet)
		if lookupErr != nil {
			logger.Error("Unknown spreadsheet", applog.FieldError, lookupErr)
			os.Exit(1)
		}
		reports, err = ss.ValidateAll(ctx)
	} else {
		reports, err = reg.ValidateAll(ctx)
	}

	mismatched := printSummary(os.Stdout, reports)
	if err != nil {
		logger.Error("Validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if mismatched {
		os.Exit(2)
	}
}

// printSummary writes one line per sheet and reports whether any sheet
// disagrees with the ledger.
func printSummary(w io.Writer, reports []*monthly.Report) bool {
	mismatched := false
	for _, r := range reports {
		status := "OK"
		if !r.OK() {
			status = fmt.Sprintf("%d mismatching rows", len(r.Mismatches))
			mismatched = true
		}
		fmt.Fprintf(w, "%s / %s: %d rows checked, %s\n", r.Spreadsheet, r.Sheet, r.RowsChecked, status)
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "  row %d %s: %s\n", m.Row, m.Month, strings.Join(m.Columns, ", "))
		}
		for _, tip := range r.Tips {
			fmt.Fprintf(w, "  tip: %s\n", tip)
		}
	}
	return mismatched
}
