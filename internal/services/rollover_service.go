package services

import (
	"github.com/shopspring/decimal"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
)

// Rollover is the computed carry-forward for a completed period. Amount is
// signed; Type classifies it.
type Rollover struct {
	Amount decimal.Decimal
	Type   models.RolloverType
	Spent  decimal.Decimal
}

// rolloverService derives carry-forward amounts from completed periods.
type rolloverService struct {
	spend SpendAggregator
}

// NewRolloverService creates a new RolloverCalculator.
func NewRolloverService(spend SpendAggregator) RolloverCalculator {
	return &rolloverService{spend: spend}
}

// Compute returns the signed rollover for a prior-period budget:
// amount plus carry-in minus authoritative spend. Recomputing against the
// same data always yields the same result; the calculator never reads its
// own prior output except through the budget's stored rollover_amount.
func (s *rolloverService) Compute(prior *models.Budget) (*Rollover, error) {
	spent, err := s.spend.SpentByBudgetID(prior.ID)
	if err != nil {
		return nil, err
	}

	amount := prior.TotalAvailable().Sub(spent)
	typ := models.RolloverTypeSurplus
	if amount.IsNegative() {
		typ = models.RolloverTypeDeficit
	}

	return &Rollover{Amount: amount, Type: typ, Spent: spent}, nil
}

// SeedAmount returns the carry-in for a newly created successor budget.
// Only a positive surplus is carried; a deficit seeds zero, so debt is not
// silently inherited by a fresh budget. Existing successors keep their
// deficits via fix-rollover, which writes the full signed value.
func (s *rolloverService) SeedAmount(template *models.Budget) (decimal.Decimal, error) {
	if !template.Rollover {
		return decimal.Zero, apperrors.ErrRolloverDisabled
	}

	rollover, err := s.Compute(template)
	if err != nil {
		return decimal.Zero, err
	}
	if rollover.Amount.IsNegative() {
		return decimal.Zero, nil
	}
	return rollover.Amount, nil
}
