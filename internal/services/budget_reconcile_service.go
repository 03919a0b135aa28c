package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/logger"
	"hearth/internal/models"
	"hearth/internal/period"
)

// VerifyResult compares the entitled-member count of one family book with
// its actual current-period personal budget count.
type VerifyResult struct {
	AccountBookID   string
	AccountBookName string
	Expected        int64
	Actual          int64
}

// Missing returns how many entitled members still lack a budget.
func (v VerifyResult) Missing() int64 {
	if v.Actual >= v.Expected {
		return 0
	}
	return v.Expected - v.Actual
}

// budgetReconcileService guarantees one personal budget per entitled owner
// per period in every family account book.
type budgetReconcileService struct {
	db            *gorm.DB
	rollover      RolloverCalculator
	defaultAmount decimal.Decimal
}

// NewBudgetReconcileService creates a new BudgetReconciler. defaultAmount
// seeds budgets for members with no prior budget to clone.
func NewBudgetReconcileService(db *gorm.DB, rollover RolloverCalculator, defaultAmount decimal.Decimal) BudgetReconciler {
	return &budgetReconcileService{db: db, rollover: rollover, defaultAmount: defaultAmount}
}

// EnsureCurrentBudgets walks every FAMILY account book and creates the
// missing personal budgets for the given window. Each owner is processed
// independently: a failure is recorded and the run continues.
func (s *budgetReconcileService) EnsureCurrentBudgets(w period.Window, dryRun bool) (*Summary, error) {
	log := logger.Get()
	summary := &Summary{}

	books, err := s.familyBooks()
	if err != nil {
		return nil, err
	}

	for i := range books {
		book := &books[i]
		if book.Family == nil {
			log.Warnw("family book has no family record, skipping", "account_book", book.Name, "id", book.ID)
			continue
		}

		for _, member := range book.Family.Members {
			owner, ok := entitledOwner(member)
			if !ok {
				continue
			}

			scopes, err := s.categoryScopes(owner, book.ID)
			if err != nil {
				summary.Add(Outcome{Kind: OutcomeFailed, Owner: owner.String(), AccountBook: book.Name, Err: err})
				continue
			}

			for _, categoryID := range scopes {
				outcome := s.ensureOne(book, member, owner, categoryID, w, dryRun)
				summary.Add(outcome)
				logOutcome(log, "ensure budget", outcome)
			}
		}
	}

	return summary, nil
}

// ensureOne makes sure a single (owner, book, category scope, window) slot
// holds exactly one budget, creating it from the newest template when absent.
func (s *budgetReconcileService) ensureOne(
	book *models.AccountBook,
	member models.FamilyMember,
	owner models.Owner,
	categoryID *string,
	w period.Window,
	dryRun bool,
) Outcome {
	existing, err := period.FindMatching(s.db, owner, book.ID, categoryID, w)
	switch {
	case err == nil:
		return Outcome{Kind: OutcomeSkipped, BudgetID: existing.ID, Owner: owner.String(), AccountBook: book.Name, Detail: "budget already exists"}
	case errors.Is(err, apperrors.ErrDuplicateBudget) || !period.IsNotFound(err):
		return Outcome{Kind: OutcomeFailed, Owner: owner.String(), AccountBook: book.Name, Err: err}
	}

	template, err := s.findTemplate(owner, book.ID, categoryID)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Owner: owner.String(), AccountBook: book.Name, Err: err}
	}

	budget := s.buildBudget(book, member, owner, categoryID, w, template)

	if template == nil {
		logger.Get().Warnw("no template budget found, creating with default amount",
			"owner", owner.String(), "member", member.Name, "account_book", book.Name, "amount", s.defaultAmount)
	} else if template.Rollover {
		seed, err := s.rollover.SeedAmount(template)
		if err != nil {
			return Outcome{Kind: OutcomeFailed, Owner: owner.String(), AccountBook: book.Name, Err: err}
		}
		budget.RolloverAmount = seed
	}

	if dryRun {
		return Outcome{Kind: OutcomeCreated, Owner: owner.String(), AccountBook: book.Name,
			Detail: fmt.Sprintf("dry-run: would create budget %q amount=%s rollover_in=%s", budget.Name, budget.Amount, budget.RolloverAmount)}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction so a concurrent run fails closed
		// instead of inserting a duplicate.
		if _, err := period.FindMatching(tx, owner, book.ID, categoryID, w); err == nil {
			return apperrors.WithMessage(apperrors.ErrDuplicateBudget, "budget appeared concurrently")
		} else if !period.IsNotFound(err) {
			return err
		}
		return tx.Create(budget).Error
	})
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Owner: owner.String(), AccountBook: book.Name,
			Err: apperrors.Wrap(apperrors.ErrInternalServer, err)}
	}

	return Outcome{Kind: OutcomeCreated, BudgetID: budget.ID, Owner: owner.String(), AccountBook: book.Name,
		Detail: fmt.Sprintf("created budget %q amount=%s rollover_in=%s", budget.Name, budget.Amount, budget.RolloverAmount)}
}

// buildBudget clones the template into the new window, or synthesizes a
// default budget when no template exists.
func (s *budgetReconcileService) buildBudget(
	book *models.AccountBook,
	member models.FamilyMember,
	owner models.Owner,
	categoryID *string,
	w period.Window,
	template *models.Budget,
) *models.Budget {
	budget := &models.Budget{
		AccountBookID:  book.ID,
		FamilyID:       book.FamilyID,
		CategoryID:     categoryID,
		Name:           "Personal budget",
		Amount:         s.defaultAmount,
		RolloverAmount: decimal.Zero,
		Period:         models.BudgetPeriodMonthly,
		StartDate:      w.Start,
		EndDate:        w.End,
		BudgetType:     models.BudgetTypePersonal,
		RefreshDay:     1,
	}

	if owner.IsCustodial() {
		// Custodial budgets hang off the book creator's account.
		budget.UserID = book.UserID
		memberID := member.ID
		budget.FamilyMemberID = &memberID
	} else {
		budget.UserID = owner.UserID()
	}

	if template != nil {
		budget.Name = template.Name
		budget.Amount = template.Amount
		budget.Rollover = template.Rollover
		budget.EnableCategoryBudget = template.EnableCategoryBudget
		budget.IsAutoCalculated = template.IsAutoCalculated
		budget.RefreshDay = template.RefreshDay
	}

	return budget
}

// findTemplate returns the owner's most recent prior budget in the same
// book and category scope, or nil when the owner has no history.
func (s *budgetReconcileService) findTemplate(owner models.Owner, accountBookID string, categoryID *string) (*models.Budget, error) {
	q := s.db.Model(&models.Budget{}).
		Scopes(owner.BudgetScope()).
		Where("account_book_id = ?", accountBookID).
		Where("budget_type = ?", models.BudgetTypePersonal)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	} else {
		q = q.Where("category_id IS NULL")
	}

	var template models.Budget
	err := q.Order("end_date desc").First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &template, nil
}

// categoryScopes lists the category ids the owner currently budgets for in
// this book, always including the uncategorized scope.
func (s *budgetReconcileService) categoryScopes(owner models.Owner, accountBookID string) ([]*string, error) {
	var ids []*string
	err := s.db.Model(&models.Budget{}).
		Scopes(owner.BudgetScope()).
		Where("account_book_id = ?", accountBookID).
		Where("budget_type = ?", models.BudgetTypePersonal).
		Where("category_id IS NOT NULL").
		Distinct().
		Pluck("category_id", &ids).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	scopes := []*string{nil}
	scopes = append(scopes, ids...)
	return scopes, nil
}

// Verify recounts current-period personal budgets per family book against
// the entitled-member count.
func (s *budgetReconcileService) Verify(w period.Window) ([]VerifyResult, error) {
	books, err := s.familyBooks()
	if err != nil {
		return nil, err
	}

	var results []VerifyResult
	for i := range books {
		book := &books[i]
		if book.Family == nil {
			continue
		}

		var expected int64
		for _, member := range book.Family.Members {
			if _, ok := entitledOwner(member); ok {
				expected++
			}
		}

		var actual int64
		err := s.db.Model(&models.Budget{}).
			Where("account_book_id = ?", book.ID).
			Where("budget_type = ?", models.BudgetTypePersonal).
			Where("start_date >= ? AND end_date <= ?", w.Start, w.End).
			Count(&actual).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		results = append(results, VerifyResult{
			AccountBookID:   book.ID,
			AccountBookName: book.Name,
			Expected:        expected,
			Actual:          actual,
		})
	}
	return results, nil
}

func (s *budgetReconcileService) familyBooks() ([]models.AccountBook, error) {
	var books []models.AccountBook
	err := s.db.
		Preload("Family.Members.User").
		Where("type = ?", models.AccountBookTypeFamily).
		Find(&books).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return books, nil
}

// entitledOwner maps a family member to the owner entitled to a personal
// budget: registered members by their user id, custodial members by their
// membership row. Members that are neither get no budget.
func entitledOwner(member models.FamilyMember) (models.Owner, bool) {
	if member.UserID != nil {
		return models.RegisteredOwner(*member.UserID), true
	}
	if member.IsCustodial {
		return models.CustodialOwner(member.ID), true
	}
	return models.Owner{}, false
}

func logOutcome(log *zap.SugaredLogger, msg string, o Outcome) {
	kv := []interface{}{"kind", string(o.Kind), "owner", o.Owner, "account_book", o.AccountBook}
	if o.BudgetID != "" {
		kv = append(kv, "budget_id", o.BudgetID)
	}
	if o.Detail != "" {
		kv = append(kv, "detail", o.Detail)
	}
	if o.Err != nil {
		kv = append(kv, "error", o.Err.Error())
		log.Warnw(msg, kv...)
		return
	}
	log.Infow(msg, kv...)
}
