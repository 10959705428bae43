package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/debit-ledger/internal/config"
	"github.com/debit-ledger/internal/data/postgres"
	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/ledgerctl"
	"github.com/debit-ledger/internal/logger"
	"github.com/debit-ledger/internal/platform/persistence"
)

func main() {
	if len(os.Args) < 2 {
		ledgerctl.Usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig("ledgerctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	accountRepo := postgres.NewAccountRepository(log, postgresDB, nil)

	deps := ledgerctl.Deps{
		Headers: postgres.NewHeaderRepository(log, postgresDB),
		Debits:  postgres.NewDebitRepository(log, postgresDB, nil),
		BeginAccounts: func(ctx context.Context) (ledgerctl.AccountWriter, ledgerctl.Tx, error) {
			tx, err := postgresDB.Pool().Begin(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
			}
			return accountRepo.WithTx(tx), tx, nil
		},
		Genesis: header.Header{
			LedgerSeq:   1,
			BaseReserve: cfg.Ledger.BaseReserve,
			BaseFee:     cfg.Ledger.BaseFee,
		},
		Out:    os.Stdout,
		Logger: log,
	}

	if err := ledgerctl.Run(ctx, deps, os.Args[1:]); err != nil {
		log.Error("Command failed", "command", os.Args[1], "error", err)
		postgresDB.Close()
		if errors.Is(err, ledgerctl.ErrUnknownCommand) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
