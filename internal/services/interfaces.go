package services

import (
	"time"

	"github.com/shopspring/decimal"

	"hearth/internal/models"
	"hearth/internal/pagination"
	"hearth/internal/period"
)

// SpendAggregator computes a budget's actual expense total. Two independent
// methods exist because transactions were historically written without
// their budget_id link: the authoritative sum over budget_id, and the
// reconstructive sum over owner/category/book/date conditions. Disagreement
// between them is the drift signal.
type SpendAggregator interface {
	SpentByBudgetID(budgetID string) (decimal.Decimal, error)
	SpentByConditions(budget *models.Budget) (decimal.Decimal, error)
	OrphanTransactions(budget *models.Budget) ([]models.Transaction, error)
	Drift(budget *models.Budget) (*DriftReport, error)
}

// RolloverCalculator derives the signed carry-forward amount from a
// completed period.
type RolloverCalculator interface {
	Compute(prior *models.Budget) (*Rollover, error)
	SeedAmount(template *models.Budget) (decimal.Decimal, error)
}

// BudgetReconciler guarantees one personal budget per entitled family
// member per period.
type BudgetReconciler interface {
	EnsureCurrentBudgets(w period.Window, dryRun bool) (*Summary, error)
	Verify(w period.Window) ([]VerifyResult, error)
}

// HistoryWriter appends immutable, deduplicated rollover audit records.
type HistoryWriter interface {
	RecordTransition(budget *models.Budget) (*models.BudgetHistory, error)
	CreateMissing(now time.Time) (*Summary, error)
	CreateCurrent(now time.Time) (*Summary, error)
	List(page pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error)
}

// Reconciler is the batch entry point sequencing the components above.
type Reconciler interface {
	Diagnose(now time.Time) (*Summary, error)
	FixBudgetIDs(now time.Time, dryRun bool) (*Summary, error)
	FixRollover(now time.Time, dryRun bool) (*Summary, error)
	FixAll(now time.Time, dryRun bool) (*Summary, error)
}
