package main

import (
	"fmt"
	"os"
	"time"

	"hearth/internal/config"
	"hearth/internal/database"
	"hearth/internal/logger"
	"hearth/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Reconciliation error: %v", err)
	}
}

func run() error {
	mode, dryRun := parseArgs(os.Args[1:])

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db := dbManager.DB()
	spend := services.NewSpendService(db)
	rollover := services.NewRolloverService(spend)
	budgets := services.NewBudgetReconcileService(db, rollover, appConfig.BudgetDefaultAmount)
	history := services.NewHistoryService(db, rollover)
	reconciler := services.NewReconcileService(db, spend, rollover, budgets, history)

	log := logger.Get()
	log.Infow("starting reconciliation run", "mode", mode, "dry_run", dryRun)
	now := time.Now()

	var summary *services.Summary
	switch mode {
	case "diagnose":
		summary, err = reconciler.Diagnose(now)
	case "fix-budget-ids":
		summary, err = reconciler.FixBudgetIDs(now, dryRun)
	case "fix-rollover":
		summary, err = reconciler.FixRollover(now, dryRun)
	case "fix-all":
		summary, err = reconciler.FixAll(now, dryRun)
	default:
		return fmt.Errorf("unknown mode: %s (use diagnose, fix-budget-ids, fix-rollover, or fix-all)", mode)
	}
	if err != nil {
		return err
	}

	for _, failure := range summary.Failures() {
		log.Warnw("item failed",
			"owner", failure.Owner, "budget_id", failure.BudgetID,
			"account_book", failure.AccountBook, "detail", failure.Detail, "error", errString(failure.Err))
	}
	log.Infof("run complete: %s", summary)
	return nil
}

// parseArgs reads the positional mode (default diagnose) and the --dry-run
// flag, which may appear anywhere in argv.
func parseArgs(args []string) (string, bool) {
	mode := "diagnose"
	dryRun := false
	for _, arg := range args {
		if arg == "--dry-run" {
			dryRun = true
			continue
		}
		mode = arg
	}
	return mode, dryRun
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
