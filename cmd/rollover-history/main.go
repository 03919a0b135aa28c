package main

import (
	"fmt"
	"os"
	"time"

	"hearth/internal/database"
	"hearth/internal/logger"
	"hearth/internal/pagination"
	"hearth/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Rollover history error: %v", err)
	}
}

func run() error {
	mode := "create-missing"
	if len(os.Args) > 1 {
		mode = os.Args[1]
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
	history := services.NewHistoryService(db, rollover)

	log := logger.Get()
	log.Infow("starting rollover history run", "mode", mode)
	now := time.Now()

	switch mode {
	case "create-missing":
		summary, err := history.CreateMissing(now)
		if err != nil {
			return err
		}
		log.Infof("run complete: %s", summary)

	case "create-current":
		summary, err := history.CreateCurrent(now)
		if err != nil {
			return err
		}
		log.Infof("run complete: %s", summary)

	case "create-all":
		summary, err := history.CreateMissing(now)
		if err != nil {
			return err
		}
		current, err := history.CreateCurrent(now)
		if err != nil {
			return err
		}
		summary.Merge(current)
		log.Infof("run complete: %s", summary)

	case "list":
		return listHistory(history, log.Infof)

	default:
		return fmt.Errorf("unknown mode: %s (use create-missing, create-current, list, or create-all)", mode)
	}

	return nil
}

func listHistory(history services.HistoryWriter, printf func(string, ...interface{})) error {
	page := pagination.PageRequest{Page: 1, PageSize: 50}
	for {
		result, err := history.List(page)
		if err != nil {
			return err
		}
		if page.Page == 1 {
			printf("found %d history records", result.TotalItems)
		}
		for _, h := range result.Data {
			name := "unknown budget"
			book := "unknown"
			if h.Budget != nil {
				name = h.Budget.Name
				if h.Budget.AccountBook != nil {
					book = h.Budget.AccountBook.Name
				}
			}
			printf("%s  %-7s %10s  budget=%q book=%q  %s",
				h.Period, h.Type, h.Amount, name, book, h.Description)
		}
		if page.Page >= result.TotalPages {
			return nil
		}
		page.Page++
	}
}
