package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
)

// epsilon is the tolerance for currency comparisons: anything within a
// cent is treated as equal.
var epsilon = decimal.New(1, -2)

// DriftReport describes the disagreement between the two spend methods for
// one budget.
type DriftReport struct {
	ByBudgetID   decimal.Decimal
	ByConditions decimal.Decimal
	OrphanCount  int
	OrphanTotal  decimal.Decimal
}

// Drifted reports whether the two methods disagree by more than epsilon.
func (r *DriftReport) Drifted() bool {
	return r.ByConditions.Sub(r.ByBudgetID).Abs().GreaterThan(epsilon)
}

// spendService computes actual expense totals for budgets.
type spendService struct {
	db *gorm.DB
}

// NewSpendService creates a new SpendAggregator.
func NewSpendService(db *gorm.DB) SpendAggregator {
	return &spendService{db: db}
}

// SpentByBudgetID sums expense transactions linked to the budget by
// budget_id. This is the authoritative method once backfill has run.
func (s *spendService) SpentByBudgetID(budgetID string) (decimal.Decimal, error) {
	var spent decimal.Decimal
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("budget_id = ? AND type = ?", budgetID, models.TransactionTypeExpense).
		Scan(&spent).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return spent, nil
}

// SpentByConditions reconstructs the budget's spend from the transaction
// attributes that should have produced the budget_id link: account book,
// date window, owner, and category when the budget is category-scoped.
func (s *spendService) SpentByConditions(budget *models.Budget) (decimal.Decimal, error) {
	var spent decimal.Decimal
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Scopes(matchScope(budget)).
		Scan(&spent).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return spent, nil
}

// OrphanTransactions returns the transactions that match the budget by
// conditions but lack the budget_id link.
func (s *spendService) OrphanTransactions(budget *models.Budget) ([]models.Transaction, error) {
	var orphans []models.Transaction
	err := s.db.Model(&models.Transaction{}).
		Scopes(matchScope(budget)).
		Where("budget_id IS NULL").
		Find(&orphans).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return orphans, nil
}

// Drift computes both spend methods and the orphan population for a budget.
func (s *spendService) Drift(budget *models.Budget) (*DriftReport, error) {
	byID, err := s.SpentByBudgetID(budget.ID)
	if err != nil {
		return nil, err
	}
	byConditions, err := s.SpentByConditions(budget)
	if err != nil {
		return nil, err
	}

	report := &DriftReport{
		ByBudgetID:   byID,
		ByConditions: byConditions,
		OrphanTotal:  decimal.Zero,
	}

	orphans, err := s.OrphanTransactions(budget)
	if err != nil {
		return nil, err
	}
	report.OrphanCount = len(orphans)
	for _, t := range orphans {
		report.OrphanTotal = report.OrphanTotal.Add(t.Amount)
	}
	return report, nil
}

// matchScope filters transactions to those that should count against the
// budget. The owner scope gives custodial membership precedence over the
// user id, and the end date is widened to cover its whole final day.
func matchScope(budget *models.Budget) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.
			Where("account_book_id = ?", budget.AccountBookID).
			Where("type = ?", models.TransactionTypeExpense).
			Where("date >= ? AND date < ?", budget.StartDate, budget.EndDate.AddDate(0, 0, 1)).
			Scopes(budget.Owner().TransactionScope())
		if budget.CategoryID != nil {
			db = db.Where("category_id = ?", *budget.CategoryID)
		}
		return db
	}
}
