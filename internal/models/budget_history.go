package models

import "github.com/shopspring/decimal"

// RolloverType classifies a period's closing balance.
type RolloverType string

const (
	RolloverTypeSurplus RolloverType = "SURPLUS"
	RolloverTypeDeficit RolloverType = "DEFICIT"
)

// BudgetHistory is the immutable audit record of one rollover transition.
// At most one row exists per (budget_id, period); it is created when a
// period closes and never mutated afterward. Amount stores the absolute
// value of the rollover, Type carries its sign.
type BudgetHistory struct {
	Base
	BudgetID string `gorm:"type:uuid;not null;uniqueIndex:idx_budget_history_key" json:"budget_id"`
	Period   string `gorm:"not null;uniqueIndex:idx_budget_history_key" json:"period"`

	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type             RolloverType    `gorm:"not null" json:"type"`
	Description      string          `json:"description"`
	BudgetAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"budget_amount"`
	SpentAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"spent_amount"`
	PreviousRollover decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"previous_rollover"`

	// Denormalized for reporting
	UserID        string     `gorm:"type:uuid;not null" json:"user_id"`
	AccountBookID string     `gorm:"type:uuid;not null" json:"account_book_id"`
	BudgetType    BudgetType `gorm:"not null;default:'PERSONAL'" json:"budget_type"`

	// Relationships
	Budget *Budget `gorm:"foreignKey:BudgetID" json:"budget,omitempty"`
}
