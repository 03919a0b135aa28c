package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// Transaction represents an expense or income event. BudgetID is the
// authoritative link to the budget it counts against; rows written without
// it are "orphans" the reconciliation engine repairs.
type Transaction struct {
	Base
	AccountBookID  string  `gorm:"type:uuid;not null;index" json:"account_book_id"`
	UserID         string  `gorm:"type:uuid;not null" json:"user_id"`
	FamilyMemberID *string `gorm:"type:uuid;index" json:"family_member_id,omitempty"`
	CategoryID     *string `gorm:"type:uuid" json:"category_id,omitempty"`
	BudgetID       *string `gorm:"type:uuid;index" json:"budget_id,omitempty"`

	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null;index" json:"date"`

	// Relationships
	AccountBook  *AccountBook  `gorm:"foreignKey:AccountBookID" json:"account_book,omitempty"`
	Category     *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Budget       *Budget       `gorm:"foreignKey:BudgetID" json:"budget,omitempty"`
	FamilyMember *FamilyMember `gorm:"foreignKey:FamilyMemberID" json:"family_member,omitempty"`
}
