package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/logger"
	"hearth/internal/models"
	"hearth/internal/period"
)

// reconcileService sequences the reconciliation components. Every mode is
// idempotent and treats item failures as data, not control flow: only a
// systemic error (store unreachable) crosses this boundary.
type reconcileService struct {
	db       *gorm.DB
	spend    SpendAggregator
	rollover RolloverCalculator
	budgets  BudgetReconciler
	history  HistoryWriter
}

// NewReconcileService creates a new Reconciler.
func NewReconcileService(db *gorm.DB, spend SpendAggregator, rollover RolloverCalculator, budgets BudgetReconciler, history HistoryWriter) Reconciler {
	return &reconcileService{
		db:       db,
		spend:    spend,
		rollover: rollover,
		budgets:  budgets,
		history:  history,
	}
}

// Diagnose reports, without writing, the state of every rollover-enabled
// budget of the previous period: both spend methods, orphan counts, and
// the expected versus actual carry on the successor budget. It also
// recounts family-book budget coverage for the current period.
func (s *reconcileService) Diagnose(now time.Time) (*Summary, error) {
	log := logger.Get()
	summary := &Summary{}

	windows := period.Monthly(now)
	budgets, err := rolloverBudgets(s.db, windows.Previous)
	if err != nil {
		return nil, err
	}
	log.Infof("diagnosing %d rollover-enabled budgets for %s", len(budgets), windows.Previous.Key())

	for i := range budgets {
		budget := &budgets[i]
		outcome := s.diagnoseOne(budget, windows)
		summary.Add(outcome)
		logOutcome(log, "diagnose", outcome)
	}

	results, err := s.budgets.Verify(windows.Current)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Missing() > 0 {
			log.Warnw("family book is missing budgets",
				"account_book", r.AccountBookName, "expected", r.Expected, "actual", r.Actual)
			summary.Add(Outcome{Kind: OutcomeFailed, AccountBook: r.AccountBookName,
				Detail: fmt.Sprintf("%d of %d member budgets missing", r.Missing(), r.Expected)})
		} else {
			log.Infow("family book budgets complete",
				"account_book", r.AccountBookName, "expected", r.Expected, "actual", r.Actual)
		}
	}

	log.Infof("diagnose summary: %s", summary)
	return summary, nil
}

func (s *reconcileService) diagnoseOne(budget *models.Budget, windows period.Windows) Outcome {
	owner := budget.Owner().String()

	drift, err := s.spend.Drift(budget)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: err}
	}

	rollover, err := s.rollover.Compute(budget)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: err}
	}

	detail := fmt.Sprintf("spent by id=%s by conditions=%s expected rollover=%s",
		drift.ByBudgetID, drift.ByConditions, rollover.Amount)
	if drift.Drifted() {
		detail += fmt.Sprintf(" | drift: %d orphan transactions totaling %s",
			drift.OrphanCount, drift.OrphanTotal)
	}

	successor, err := period.FindMatching(s.db, budget.Owner(), budget.AccountBookID, budget.CategoryID, windows.Current)
	if err != nil {
		if period.IsNotFound(err) {
			return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner,
				Detail: detail, Err: apperrors.ErrSuccessorNotFound}
		}
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Detail: detail, Err: err}
	}

	diff := successor.RolloverAmount.Sub(rollover.Amount).Abs()
	if drift.Drifted() || diff.GreaterThan(epsilon) {
		return Outcome{Kind: OutcomeFixed, BudgetID: budget.ID, Owner: owner,
			Detail: detail + fmt.Sprintf(" | successor carry actual=%s expected=%s", successor.RolloverAmount, rollover.Amount)}
	}
	return Outcome{Kind: OutcomeSkipped, BudgetID: budget.ID, Owner: owner, Detail: detail + " | consistent"}
}

// FixBudgetIDs backfills the budget_id link on orphaned transactions, one
// bulk update per rollover-enabled previous-period budget.
func (s *reconcileService) FixBudgetIDs(now time.Time, dryRun bool) (*Summary, error) {
	log := logger.Get()
	summary := &Summary{}

	windows := period.Monthly(now)
	budgets, err := rolloverBudgets(s.db, windows.Previous)
	if err != nil {
		return nil, err
	}
	log.Infof("backfilling budget ids for %d budgets in %s", len(budgets), windows.Previous.Key())

	for i := range budgets {
		budget := &budgets[i]
		outcome := s.fixBudgetIDsOne(budget, dryRun)
		summary.Add(outcome)
		logOutcome(log, "fix budget ids", outcome)
	}

	log.Infof("fix-budget-ids summary: %s", summary)
	return summary, nil
}

func (s *reconcileService) fixBudgetIDsOne(budget *models.Budget, dryRun bool) Outcome {
	owner := budget.Owner().String()

	orphans, err := s.spend.OrphanTransactions(budget)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: err}
	}
	if len(orphans) == 0 {
		return Outcome{Kind: OutcomeSkipped, BudgetID: budget.ID, Owner: owner, Detail: "all transactions already linked"}
	}

	ids := make([]string, len(orphans))
	for i, t := range orphans {
		ids[i] = t.ID
	}

	if dryRun {
		return Outcome{Kind: OutcomeFixed, BudgetID: budget.ID, Owner: owner,
			Detail: fmt.Sprintf("dry-run: would link %d transactions", len(ids))}
	}

	result := s.db.Model(&models.Transaction{}).
		Where("id IN ?", ids).
		Update("budget_id", budget.ID)
	if result.Error != nil {
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner,
			Err: apperrors.Wrap(apperrors.ErrInternalServer, result.Error)}
	}

	return Outcome{Kind: OutcomeFixed, BudgetID: budget.ID, Owner: owner,
		Detail: fmt.Sprintf("linked %d transactions", result.RowsAffected)}
}

// FixRollover recomputes each previous-period budget's carry and overwrites
// the successor's rollover_amount when it differs by more than epsilon.
// A budget that still has orphaned transactions is skipped: its Method A
// spend cannot be trusted until fix-budget-ids has run.
func (s *reconcileService) FixRollover(now time.Time, dryRun bool) (*Summary, error) {
	return s.fixRollover(now, dryRun, false)
}

func (s *reconcileService) fixRollover(now time.Time, dryRun, assumeBackfilled bool) (*Summary, error) {
	log := logger.Get()
	summary := &Summary{}

	windows := period.Monthly(now)
	budgets, err := rolloverBudgets(s.db, windows.Previous)
	if err != nil {
		return nil, err
	}
	log.Infof("recomputing rollover for %d budgets in %s", len(budgets), windows.Previous.Key())

	for i := range budgets {
		budget := &budgets[i]
		outcome := s.fixRolloverOne(budget, windows, dryRun, assumeBackfilled)
		summary.Add(outcome)
		logOutcome(log, "fix rollover", outcome)
	}

	log.Infof("fix-rollover summary: %s", summary)
	return summary, nil
}

func (s *reconcileService) fixRolloverOne(budget *models.Budget, windows period.Windows, dryRun, assumeBackfilled bool) Outcome {
	owner := budget.Owner().String()

	orphans, err := s.spend.OrphanTransactions(budget)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: err}
	}
	if len(orphans) > 0 && !assumeBackfilled {
		return Outcome{Kind: OutcomeSkipped, BudgetID: budget.ID, Owner: owner,
			Detail: fmt.Sprintf("%d orphaned transactions outstanding", len(orphans)),
			Err:    apperrors.ErrBackfillPending}
	}

	rollover, err := s.rollover.Compute(budget)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: err}
	}
	expected := rollover.Amount
	if len(orphans) > 0 && dryRun {
		// A dry fix-all hasn't actually linked the orphans yet, so fold
		// them into the spend the real run would see.
		for _, t := range orphans {
			expected = expected.Sub(t.Amount)
		}
	}

	successor, err := period.FindMatching(s.db, budget.Owner(), budget.AccountBookID, budget.CategoryID, windows.Current)
	if err != nil {
		if period.IsNotFound(err) {
			return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: apperrors.ErrSuccessorNotFound}
		}
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner, Err: err}
	}

	diff := successor.RolloverAmount.Sub(expected).Abs()
	if !diff.GreaterThan(epsilon) {
		return Outcome{Kind: OutcomeSkipped, BudgetID: budget.ID, Owner: owner, Detail: "rollover already correct"}
	}

	if dryRun {
		return Outcome{Kind: OutcomeFixed, BudgetID: budget.ID, Owner: owner,
			Detail: fmt.Sprintf("dry-run: would update successor %s rollover %s -> %s", successor.ID, successor.RolloverAmount, expected)}
	}

	err = s.db.Model(&models.Budget{}).
		Where("id = ?", successor.ID).
		Update("rollover_amount", expected).Error
	if err != nil {
		return Outcome{Kind: OutcomeFailed, BudgetID: budget.ID, Owner: owner,
			Err: apperrors.Wrap(apperrors.ErrInternalServer, err)}
	}

	return Outcome{Kind: OutcomeFixed, BudgetID: budget.ID, Owner: owner,
		Detail: fmt.Sprintf("updated successor %s rollover %s -> %s", successor.ID, successor.RolloverAmount, expected)}
}

// FixAll runs the repairs in dependency order: budget-id backfill first,
// then existence reconciliation for the current period, then rollover
// correction, which may trust Method A once the backfill has run.
func (s *reconcileService) FixAll(now time.Time, dryRun bool) (*Summary, error) {
	log := logger.Get()

	summary, err := s.FixBudgetIDs(now, dryRun)
	if err != nil {
		return nil, err
	}

	windows := period.Monthly(now)
	ensured, err := s.budgets.EnsureCurrentBudgets(windows.Current, dryRun)
	if err != nil {
		return summary, err
	}
	summary.Merge(ensured)

	fixed, err := s.fixRollover(now, dryRun, true)
	if err != nil {
		return summary, err
	}
	summary.Merge(fixed)

	log.Infof("fix-all summary: %s", summary)
	return summary, nil
}
