package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"monthly/internal/amqp"
	"monthly/internal/cli"
	"monthly/internal/core"
	applog "monthly/internal/log"
	"monthly/internal/services"
)

func main() {
	cli.LoadEnvFile()

	var (
		kind        = flag.String("kind", string(core.Spend), "spend or reimbursement")
		date        = flag.String("date", time.Now().Format("2006-01-02"), "transaction date (YYYY-MM-DD)")
		amount      = flag.String("amount", "", "amount in euros, e.g. 12.34 or 12,34")
		category    = flag.String("category", "", "category")
		subCategory = flag.String("sub", "", "subcategory (optional)")
		account     = flag.String("account", "", "account")
		description = flag.String("desc", "", "description (optional)")
	)
	flag.Parse()

	tx, err := buildTransaction(*kind, *date, *amount, *category, *subCategory, *account, *description)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid transaction: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)
	ctx := context.Background()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, the worker sweep will pick the transaction up", applog.FieldError, err)
		} else {
			publisher = client
		}
	}

	svc := services.NewTransactionService(repo, publisher, logger)
	defer svc.Close()

	saved, err := svc.Record(ctx, tx)
	if err != nil {
		logger.Error("Failed to record transaction", applog.FieldError, err)
		os.Exit(1)
	}
	fmt.Printf("recorded transaction %d\n", saved.ID)
}

func buildTransaction(kind, date, amount, category, subCategory, account, description string) (core.Transaction, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date: %w", err)
	}
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	tx := core.Transaction{
		Kind:        core.Kind(kind),
		Date:        core.Date{Time: d},
		Amount:      core.Money{Cents: cents},
		Category:    category,
		SubCategory: subCategory,
		Account:     account,
		Description: description,
	}
	return tx, tx.Validate()
}
