package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/logger"
	"hearth/internal/models"
	"hearth/internal/pagination"
	"hearth/internal/period"
)

// historyService appends immutable rollover audit records. BudgetHistory
// is the source of truth for "what happened last period"; the mutable
// rollover_amount column on budgets is only its latest projection.
type historyService struct {
	db       *gorm.DB
	rollover RolloverCalculator
}

// NewHistoryService creates a new HistoryWriter.
func NewHistoryService(db *gorm.DB, rollover RolloverCalculator) HistoryWriter {
	return &historyService{db: db, rollover: rollover}
}

// RecordTransition writes the audit record for the budget's period close.
// At most one record exists per (budget_id, period); an existing record
// makes this a no-op returning (nil, nil). The record is never mutated
// after creation.
func (s *historyService) RecordTransition(budget *models.Budget) (*models.BudgetHistory, error) {
	key := periodKey(budget)

	exists, err := s.hasRecord(budget.ID, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	rollover, err := s.rollover.Compute(budget)
	if err != nil {
		return nil, err
	}

	record := &models.BudgetHistory{
		BudgetID:         budget.ID,
		Period:           key,
		Amount:           rollover.Amount.Abs(),
		Type:             rollover.Type,
		Description:      describeTransition(budget, rollover),
		BudgetAmount:     budget.Amount,
		SpentAmount:      rollover.Spent,
		PreviousRollover: budget.RolloverAmount,
		UserID:           budget.UserID,
		AccountBookID:    budget.AccountBookID,
		BudgetType:       budget.BudgetType,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction so concurrent backfills stay
		// deduplicated.
		var count int64
		if err := tx.Model(&models.BudgetHistory{}).
			Where("budget_id = ? AND period = ?", budget.ID, key).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrHistoryExists
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrHistoryExists) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return record, nil
}

// CreateMissing backfills history records for every rollover-enabled
// personal budget of the previous period.
func (s *historyService) CreateMissing(now time.Time) (*Summary, error) {
	log := logger.Get()
	summary := &Summary{}

	windows := period.Monthly(now)
	budgets, err := rolloverBudgets(s.db, windows.Previous)
	if err != nil {
		return nil, err
	}
	log.Infof("found %d rollover-enabled budgets in %s", len(budgets), windows.Previous.Key())

	for i := range budgets {
		budget := &budgets[i]
		outcome := s.recordOutcome(budget)
		summary.Add(outcome)
		logOutcome(log, "create history", outcome)
	}

	return summary, nil
}

// CreateCurrent walks current-period budgets that carry a non-zero
// rollover and backfills the missing history of the previous budget the
// carry came from.
func (s *historyService) CreateCurrent(now time.Time) (*Summary, error) {
	log := logger.Get()
	summary := &Summary{}

	windows := period.Monthly(now)

	var budgets []models.Budget
	err := s.db.Model(&models.Budget{}).
		Preload("AccountBook").
		Where("rollover = ?", true).
		Where("budget_type = ?", models.BudgetTypePersonal).
		Where("start_date >= ? AND end_date <= ?", windows.Current.Start, windows.Current.End).
		Where("rollover_amount <> 0").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	log.Infof("found %d current budgets with a non-zero carry-in", len(budgets))

	for i := range budgets {
		budget := &budgets[i]
		prior, err := period.FindMatching(s.db, budget.Owner(), budget.AccountBookID, budget.CategoryID, windows.Previous)
		if err != nil {
			kind := OutcomeFailed
			detail := ""
			if period.IsNotFound(err) {
				kind = OutcomeSkipped
				detail = "no previous-period budget"
				err = nil
			}
			outcome := Outcome{Kind: kind, BudgetID: budget.ID, Owner: budget.Owner().String(), Detail: detail, Err: err}
			summary.Add(outcome)
			logOutcome(log, "create history", outcome)
			continue
		}

		outcome := s.recordOutcome(prior)
		summary.Add(outcome)
		logOutcome(log, "create history", outcome)
	}

	return summary, nil
}

// List returns history records newest-first with their budget and account
// book attached.
func (s *historyService) List(page pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error) {
	page.Defaults()

	base := s.db.Model(&models.BudgetHistory{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var histories []models.BudgetHistory
	err := base.
		Preload("Budget.AccountBook").
		Order("created_at desc").
		Scopes(pagination.Paginate(page)).
		Find(&histories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(histories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *historyService) recordOutcome(budget *models.Budget) Outcome {
	record, err := s.RecordTransition(budget)
	owner := budget.Owner().String()
	switch {
	case err != nil:
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: err}
	case record == nil:
		return Outcome{Kind: OutcomeSkipped, BudgetID: budget.ID, Owner: owner, Detail: "history record already exists"}
	default:
		return Outcome{Kind: OutcomeCreated, BudgetID: budget.ID, Owner: owner,
			Detail: fmt.Sprintf("%s %s for %s", record.Type, record.Amount, record.Period)}
	}
}

func (s *historyService) hasRecord(budgetID, key string) (bool, error) {
	var count int64
	err := s.db.Model(&models.BudgetHistory{}).
		Where("budget_id = ? AND period = ?", budgetID, key).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// periodKey derives the history key from the budget's own window, e.g.
// "2025-8" for a monthly budget ending in August 2025.
func periodKey(budget *models.Budget) string {
	w := period.Window{Start: budget.StartDate, End: budget.EndDate}
	return w.Key()
}

func describeTransition(budget *models.Budget, rollover *Rollover) string {
	label := "Balance rollover"
	if rollover.Type == models.RolloverTypeDeficit {
		label = "Debt rollover"
	}
	return fmt.Sprintf("%s: base budget %s, previous rollover %s, actual spend %s, rollover %s",
		label, budget.Amount, budget.RolloverAmount, rollover.Spent, rollover.Amount)
}

// rolloverBudgets lists rollover-enabled personal budgets inside a window,
// with the relations the log lines need.
func rolloverBudgets(db *gorm.DB, w period.Window) ([]models.Budget, error) {
	var budgets []models.Budget
	err := db.Model(&models.Budget{}).
		Preload("User").
		Preload("FamilyMember").
		Preload("AccountBook").
		Where("rollover = ?", true).
		Where("budget_type = ?", models.BudgetTypePersonal).
		Where("start_date >= ? AND end_date <= ?", w.Start, w.End).
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}
