package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"hearth/internal/models"
	"hearth/internal/period"
	"hearth/internal/testutil"

	"gorm.io/gorm"
)

func newBudgetReconciler(db *gorm.DB) BudgetReconciler {
	rollover := NewRolloverService(NewSpendService(db))
	return NewBudgetReconcileService(db, rollover, decimal.Zero)
}

func countBudgets(t *testing.T, db *gorm.DB, w period.Window) int64 {
	t.Helper()
	var count int64
	err := db.Model(&models.Budget{}).
		Where("budget_type = ?", models.BudgetTypePersonal).
		Where("start_date >= ? AND end_date <= ?", w.Start, w.End).
		Count(&count).Error
	testutil.AssertNoError(t, err)
	return count
}

func TestEnsureCurrentBudgets(t *testing.T) {
	windows := period.Monthly(testNow)

	t.Run("creates_budgets_for_all_entitled_members", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		partner := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		testutil.AddRegisteredMember(t, db, book, partner)
		child := testutil.AddCustodialMember(t, db, book, "Child")

		summary, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)

		if created := summary.Count(OutcomeCreated); created != 3 {
			t.Errorf("expected 3 created, got %d (%s)", created, summary)
		}
		if got := countBudgets(t, db, windows.Current); got != 3 {
			t.Errorf("expected 3 current budgets, got %d", got)
		}

		// The custodial budget hangs off the creator's account.
		childBudget, err := period.FindMatching(db, models.CustodialOwner(child.ID), book.ID, nil, windows.Current)
		testutil.AssertNoError(t, err)
		if childBudget.UserID != creator.ID {
			t.Errorf("expected custodial budget under creator %s, got %s", creator.ID, childBudget.UserID)
		}
	})

	t.Run("clones_most_recent_template", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)

		// Two prior periods; the newer one is the template.
		older := period.Monthly(testNow.AddDate(0, -2, 0)).Current
		testutil.CreateTestBudget(t, db, &models.Budget{
			AccountBookID: book.ID,
			UserID:        creator.ID,
			Name:          "Stale budget",
			Amount:        testutil.D(t, "800"),
			StartDate:     older.Start,
			EndDate:       older.End,
		})
		testutil.CreateTestBudget(t, db, &models.Budget{
			AccountBookID: book.ID,
			UserID:        creator.ID,
			Name:          "Monthly allowance",
			Amount:        testutil.D(t, "1200"),
			StartDate:     windows.Previous.Start,
			EndDate:       windows.Previous.End,
			RefreshDay:    5,
		})

		_, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)

		created, err := period.FindMatching(db, models.RegisteredOwner(creator.ID), book.ID, nil, windows.Current)
		testutil.AssertNoError(t, err)
		if created.Name != "Monthly allowance" {
			t.Errorf("expected template name cloned, got %q", created.Name)
		}
		testutil.AssertDecimalEqual(t, "1200", created.Amount)
		if created.RefreshDay != 5 {
			t.Errorf("expected refresh day 5, got %d", created.RefreshDay)
		}
	})

	t.Run("seeds_positive_rollover_from_template", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		template := previousBudget(t, db, book, creator.ID, nil, "1000")

		testutil.CreateTestExpense(t, db, &models.Transaction{
			AccountBookID: book.ID,
			UserID:        creator.ID,
			BudgetID:      &template.ID,
			Amount:        testutil.D(t, "700"),
			Date:          template.StartDate,
		})

		_, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)

		created, err := period.FindMatching(db, models.RegisteredOwner(creator.ID), book.ID, nil, windows.Current)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "300", created.RolloverAmount)
	})

	t.Run("overspent_template_seeds_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		template := previousBudget(t, db, book, creator.ID, nil, "1000")

		testutil.CreateTestExpense(t, db, &models.Transaction{
			AccountBookID: book.ID,
			UserID:        creator.ID,
			BudgetID:      &template.ID,
			Amount:        testutil.D(t, "1400"),
			Date:          template.StartDate,
		})

		_, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)

		created, err := period.FindMatching(db, models.RegisteredOwner(creator.ID), book.ID, nil, windows.Current)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "0", created.RolloverAmount)
	})

	t.Run("missing_template_creates_default_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)

		summary, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)
		if summary.Count(OutcomeCreated) != 1 {
			t.Fatalf("expected 1 created, got %s", summary)
		}

		created, err := period.FindMatching(db, models.RegisteredOwner(creator.ID), book.ID, nil, windows.Current)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "0", created.Amount)
	})

	t.Run("rerun_creates_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		testutil.AddCustodialMember(t, db, book, "Child")

		_, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)
		before := countBudgets(t, db, windows.Current)

		summary, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)

		if summary.Count(OutcomeCreated) != 0 {
			t.Errorf("expected no creations on rerun, got %s", summary)
		}
		if after := countBudgets(t, db, windows.Current); after != before {
			t.Errorf("expected budget count to stay at %d, got %d", before, after)
		}
	})

	t.Run("dry_run_writes_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		testutil.AddCustodialMember(t, db, book, "Child")

		summary, err := budgets.EnsureCurrentBudgets(windows.Current, true)
		testutil.AssertNoError(t, err)

		if summary.Count(OutcomeCreated) != 2 {
			t.Errorf("expected dry run to report 2 creations, got %s", summary)
		}
		if got := countBudgets(t, db, windows.Current); got != 0 {
			t.Errorf("expected no budgets written, got %d", got)
		}
	})

	t.Run("category_scopes_get_their_own_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		category := testutil.CreateTestCategory(t, db, book.ID)

		testutil.CreateTestBudget(t, db, &models.Budget{
			AccountBookID: book.ID,
			UserID:        creator.ID,
			CategoryID:    &category.ID,
			Name:          "Groceries",
			Amount:        testutil.D(t, "400"),
			StartDate:     windows.Previous.Start,
			EndDate:       windows.Previous.End,
		})

		summary, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)

		// One for the base scope, one for the category scope.
		if summary.Count(OutcomeCreated) != 2 {
			t.Fatalf("expected 2 created, got %s", summary)
		}

		scoped, err := period.FindMatching(db, models.RegisteredOwner(creator.ID), book.ID, &category.ID, windows.Current)
		testutil.AssertNoError(t, err)
		if scoped.Name != "Groceries" {
			t.Errorf("expected category budget cloned, got %q", scoped.Name)
		}
	})
}

func TestVerify(t *testing.T) {
	windows := period.Monthly(testNow)

	t.Run("reports_missing_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		testutil.AddCustodialMember(t, db, book, "Child")

		results, err := budgets.Verify(windows.Current)
		testutil.AssertNoError(t, err)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].Expected != 2 || results[0].Actual != 0 || results[0].Missing() != 2 {
			t.Errorf("expected 2 missing, got expected=%d actual=%d", results[0].Expected, results[0].Actual)
		}
	})

	t.Run("complete_after_reconciliation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		budgets := newBudgetReconciler(db)

		creator := testutil.CreateTestUser(t, db)
		book := testutil.CreateTestFamilyBook(t, db, creator)
		testutil.AddCustodialMember(t, db, book, "Child")

		_, err := budgets.EnsureCurrentBudgets(windows.Current, false)
		testutil.AssertNoError(t, err)

		results, err := budgets.Verify(windows.Current)
		testutil.AssertNoError(t, err)
		if results[0].Missing() != 0 {
			t.Errorf("expected no missing budgets, got %d", results[0].Missing())
		}
	})
}
