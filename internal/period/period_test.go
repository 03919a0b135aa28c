package period

import (
	"testing"
	"time"

	"hearth/internal/models"
	"hearth/internal/testutil"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthly(t *testing.T) {
	t.Run("mid_year", func(t *testing.T) {
		w := Monthly(date(2025, time.August, 15))

		if !w.Current.Start.Equal(date(2025, time.August, 1)) {
			t.Errorf("expected current start 2025-08-01, got %s", w.Current.Start)
		}
		if !w.Current.End.Equal(date(2025, time.August, 31)) {
			t.Errorf("expected current end 2025-08-31, got %s", w.Current.End)
		}
		if !w.Previous.Start.Equal(date(2025, time.July, 1)) {
			t.Errorf("expected previous start 2025-07-01, got %s", w.Previous.Start)
		}
		if !w.Previous.End.Equal(date(2025, time.July, 31)) {
			t.Errorf("expected previous end 2025-07-31, got %s", w.Previous.End)
		}
	})

	t.Run("january_wraps_to_december", func(t *testing.T) {
		w := Monthly(date(2025, time.January, 10))

		if !w.Previous.Start.Equal(date(2024, time.December, 1)) {
			t.Errorf("expected previous start 2024-12-01, got %s", w.Previous.Start)
		}
		if !w.Previous.End.Equal(date(2024, time.December, 31)) {
			t.Errorf("expected previous end 2024-12-31, got %s", w.Previous.End)
		}
	})

	t.Run("february_leap_year", func(t *testing.T) {
		w := Monthly(date(2024, time.February, 5))

		if !w.Current.End.Equal(date(2024, time.February, 29)) {
			t.Errorf("expected current end 2024-02-29, got %s", w.Current.End)
		}
	})
}

func TestYearly(t *testing.T) {
	w := Yearly(date(2025, time.March, 3))

	if !w.Current.Start.Equal(date(2025, time.January, 1)) {
		t.Errorf("expected current start 2025-01-01, got %s", w.Current.Start)
	}
	if !w.Current.End.Equal(date(2025, time.December, 31)) {
		t.Errorf("expected current end 2025-12-31, got %s", w.Current.End)
	}
	if !w.Previous.Start.Equal(date(2024, time.January, 1)) {
		t.Errorf("expected previous start 2024-01-01, got %s", w.Previous.Start)
	}
}

func TestWindowKey(t *testing.T) {
	t.Run("monthly", func(t *testing.T) {
		w := Monthly(date(2025, time.August, 15))
		if got := w.Previous.Key(); got != "2025-7" {
			t.Errorf("expected key 2025-7, got %s", got)
		}
	})

	t.Run("january_previous", func(t *testing.T) {
		w := Monthly(date(2025, time.January, 1))
		if got := w.Previous.Key(); got != "2024-12" {
			t.Errorf("expected key 2024-12, got %s", got)
		}
	})

	t.Run("yearly", func(t *testing.T) {
		w := Yearly(date(2025, time.June, 1))
		if got := w.Previous.Key(); got != "2024" {
			t.Errorf("expected key 2024, got %s", got)
		}
	})
}

func TestWindowContains(t *testing.T) {
	w := Monthly(date(2025, time.July, 10)).Current

	if !w.Contains(date(2025, time.July, 1)) {
		t.Error("expected window to contain its first day")
	}
	if !w.Contains(time.Date(2025, time.July, 31, 23, 0, 0, 0, time.UTC)) {
		t.Error("expected window to contain the evening of its last day")
	}
	if w.Contains(date(2025, time.August, 1)) {
		t.Error("expected window to exclude the next month")
	}
}

func TestFindMatching(t *testing.T) {
	now := date(2025, time.August, 15)

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, user)

		_, err := FindMatching(db, models.RegisteredOwner(user.ID), book.ID, nil, Monthly(now).Current)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})

	t.Run("unique_match", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, user)
		w := Monthly(now).Current

		created := testutil.CreateTestBudget(t, db, &models.Budget{
			AccountBookID: book.ID,
			UserID:        user.ID,
			Amount:        decimal.NewFromInt(1000),
			StartDate:     w.Start,
			EndDate:       w.End,
		})

		found, err := FindMatching(db, models.RegisteredOwner(user.ID), book.ID, nil, w)
		testutil.AssertNoError(t, err)
		if found.ID != created.ID {
			t.Errorf("expected budget %s, got %s", created.ID, found.ID)
		}
	})

	t.Run("duplicate_is_surfaced", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, user)
		w := Monthly(now).Current

		for i := 0; i < 2; i++ {
			testutil.CreateTestBudget(t, db, &models.Budget{
				AccountBookID: book.ID,
				UserID:        user.ID,
				Amount:        decimal.NewFromInt(500),
				StartDate:     w.Start,
				EndDate:       w.End,
			})
		}

		_, err := FindMatching(db, models.RegisteredOwner(user.ID), book.ID, nil, w)
		testutil.AssertAppError(t, err, "DUPLICATE_BUDGET")
	})

	t.Run("custodial_budget_not_matched_for_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, user)
		child := testutil.AddCustodialMember(t, db, book, "Child")
		w := Monthly(now).Current

		// Custodial budget hangs off the creator's user id.
		custodial := testutil.CreateTestBudget(t, db, &models.Budget{
			AccountBookID:  book.ID,
			UserID:         user.ID,
			FamilyMemberID: &child.ID,
			Amount:         decimal.NewFromInt(200),
			StartDate:      w.Start,
			EndDate:        w.End,
		})

		_, err := FindMatching(db, models.RegisteredOwner(user.ID), book.ID, nil, w)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")

		found, err := FindMatching(db, models.CustodialOwner(child.ID), book.ID, nil, w)
		testutil.AssertNoError(t, err)
		if found.ID != custodial.ID {
			t.Errorf("expected custodial budget %s, got %s", custodial.ID, found.ID)
		}
	})

	t.Run("category_scope_distinguishes_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, user)
		category := testutil.CreateTestCategory(t, db, book.ID)
		w := Monthly(now).Current

		testutil.CreateTestBudget(t, db, &models.Budget{
			AccountBookID: book.ID,
			UserID:        user.ID,
			CategoryID:    &category.ID,
			Amount:        decimal.NewFromInt(300),
			StartDate:     w.Start,
			EndDate:       w.End,
		})

		found, err := FindMatching(db, models.RegisteredOwner(user.ID), book.ID, &category.ID, w)
		testutil.AssertNoError(t, err)
		if found.CategoryID == nil || *found.CategoryID != category.ID {
			t.Error("expected the category-scoped budget")
		}

		// The uncategorized scope must not pick up the category budget.
		_, err = FindMatching(db, models.RegisteredOwner(user.ID), book.ID, nil, w)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}
