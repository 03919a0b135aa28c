// Package period computes the accounting windows the reconciliation engine
// operates over and the unique-or-none budget lookup tied to them.
package period

import (
	"errors"
	"fmt"
	"time"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"

	"gorm.io/gorm"
)

// Window is one accounting period. Start is the first instant of the
// period and End the first instant of its last day, matching how budget
// rows store their start_date/end_date.
type Window struct {
	Start time.Time
	End   time.Time
}

// Key returns the history-ledger period key for this window, e.g. "2025-8"
// for August 2025. Yearly windows key on the year alone.
func (w Window) Key() string {
	if w.Start.Month() == time.January && w.End.Month() == time.December {
		return fmt.Sprintf("%d", w.End.Year())
	}
	return fmt.Sprintf("%d-%d", w.End.Year(), int(w.End.Month()))
}

// Contains reports whether t falls inside the window (End is inclusive,
// covering the whole last day).
func (w Window) Contains(t time.Time) bool {
	dayAfterEnd := w.End.AddDate(0, 0, 1)
	return !t.Before(w.Start) && t.Before(dayAfterEnd)
}

// Windows holds the current period and its immediate predecessor.
type Windows struct {
	Current  Window
	Previous Window
}

// Monthly returns the current and previous calendar-month windows for the
// given instant. The previous window of January wraps into December of the
// prior year.
func Monthly(now time.Time) Windows {
	year, month := now.Year(), int(now.Month())

	prevYear, prevMonth := year, month-1
	if month == 1 {
		prevYear, prevMonth = year-1, 12
	}

	return Windows{
		Current:  monthWindow(year, month, now.Location()),
		Previous: monthWindow(prevYear, prevMonth, now.Location()),
	}
}

// Yearly returns the current and previous calendar-year windows for the
// given instant.
func Yearly(now time.Time) Windows {
	return Windows{
		Current:  yearWindow(now.Year(), now.Location()),
		Previous: yearWindow(now.Year()-1, now.Location()),
	}
}

// For resolves windows for the given budget period kind.
func For(now time.Time, p models.BudgetPeriod) Windows {
	if p == models.BudgetPeriodYearly {
		return Yearly(now)
	}
	return Monthly(now)
}

func monthWindow(year, month int, loc *time.Location) Window {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	// Day zero of the next month is the last day of this one.
	end := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc)
	return Window{Start: start, End: end}
}

func yearWindow(year int, loc *time.Location) Window {
	return Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, loc),
	}
}

// BudgetScope returns a GORM scope matching personal budgets for the given
// owner, account book, category scope and window. The uniqueness key is
// (owner, book, category-or-null, window): a nil category matches only
// uncategorized budgets, so category sub-budgets and the owner's base
// budget never collide in a lookup.
func BudgetScope(owner models.Owner, accountBookID string, categoryID *string, w Window) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.
			Scopes(owner.BudgetScope()).
			Where("account_book_id = ?", accountBookID).
			Where("budget_type = ?", models.BudgetTypePersonal).
			Where("start_date >= ? AND end_date <= ?", w.Start, w.End)
		if categoryID != nil {
			db = db.Where("category_id = ?", *categoryID)
		} else {
			db = db.Where("category_id IS NULL")
		}
		return db
	}
}

// FindMatching performs the unique-or-none budget lookup. More than one
// match means the one-budget-per-owner-per-period invariant is already
// broken and is surfaced as ErrDuplicateBudget rather than silently picking
// a row.
func FindMatching(db *gorm.DB, owner models.Owner, accountBookID string, categoryID *string, w Window) (*models.Budget, error) {
	var budgets []models.Budget
	err := db.Model(&models.Budget{}).
		Scopes(BudgetScope(owner, accountBookID, categoryID, w)).
		Limit(2).
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	switch len(budgets) {
	case 0:
		return nil, apperrors.ErrBudgetNotFound
	case 1:
		return &budgets[0], nil
	default:
		return nil, apperrors.WithMessage(apperrors.ErrDuplicateBudget,
			fmt.Sprintf("multiple budgets match owner %s in book %s for %s", owner, accountBookID, w.Key()))
	}
}

// IsNotFound reports whether err is the no-matching-budget case.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrBudgetNotFound)
}
