// Command ledger_audit runs the reconciliation checks from the command line.
// It exits 0 when the ledger is clean, 1 when findings exist and 2 on error,
// so it can gate a cron job or a deploy pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/zakeetahawi/ledgercore/internal/core/services"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
	"github.com/zakeetahawi/ledgercore/internal/repositories/database/pgsql"
	"github.com/zakeetahawi/ledgercore/pkg/config"
	"github.com/zakeetahawi/ledgercore/pkg/database"
)

func main() {
	var (
		check = flag.String("check", "all", "check to run: unbalanced, accounts, customers, zero-lines, all")
		fix   = flag.Bool("fix", false, "repair cached balances and summaries that fail verification")
		actor = flag.String("actor", "ledger_audit", "actor recorded on repaired rows")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	os.Exit(run(*check, *fix, *actor, logger))
}

func run(check string, fix bool, actor string, logger *slog.Logger) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		return 2
	}

	ctx := middleware.WithLogger(context.Background(), logger)

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		return 2
	}
	defer dbPool.Close()

	container := services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(dbPool))
	audit := container.Audit

	findings := 0
	runCheck := func(name string) bool { return check == "all" || check == name }

	if runCheck("unbalanced") {
		unbalanced, err := audit.FindUnbalancedTransactions(ctx)
		if err != nil {
			logger.Error("Unbalanced transaction check failed", slog.String("error", err.Error()))
			return 2
		}
		for _, f := range unbalanced {
			fmt.Printf("unbalanced transaction %s (%s): totals %s/%s lines %s/%s\n",
				f.TransactionNumber, f.Status, f.TotalDebit, f.TotalCredit, f.LineDebitSum, f.LineCreditSum)
		}
		findings += len(unbalanced)
	}

	if runCheck("accounts") {
		mismatches, err := audit.VerifyAccountBalances(ctx, fix, actor)
		if err != nil {
			logger.Error("Account balance check failed", slog.String("error", err.Error()))
			return 2
		}
		for _, m := range mismatches {
			fmt.Printf("account %s: cached %s recomputed %s (diff %s)\n",
				m.Code, m.Cached, m.Recomputed, m.Difference())
		}
		if fix && len(mismatches) > 0 {
			logger.Info("Account balances repaired", slog.Int("count", len(mismatches)))
		}
		findings += len(mismatches)
	}

	if runCheck("customers") {
		mismatches, err := audit.VerifyCustomerBalances(ctx, fix)
		if err != nil {
			logger.Error("Customer balance check failed", slog.String("error", err.Error()))
			return 2
		}
		for _, m := range mismatches {
			fmt.Printf("customer %s: stored debt %s recomputed %s\n",
				m.CustomerID, m.StoredDebt, m.RecomputedDebt)
		}
		if fix && len(mismatches) > 0 {
			logger.Info("Customer summaries repaired", slog.Int("count", len(mismatches)))
		}
		findings += len(mismatches)
	}

	if runCheck("zero-lines") {
		count, err := audit.CountZeroAmountLines(ctx)
		if err != nil {
			logger.Error("Zero amount line check failed", slog.String("error", err.Error()))
			return 2
		}
		if count > 0 {
			fmt.Printf("%d transaction lines carry neither a debit nor a credit\n", count)
		}
		findings += int(count)
	}

	if findings > 0 {
		logger.Warn("Audit finished with findings", slog.Int("findings", findings))
		return 1
	}
	logger.Info("Audit finished clean")
	return 0
}
