package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "MONTHLY"
	BudgetPeriodYearly  BudgetPeriod = "YEARLY"
)

// BudgetType distinguishes per-member personal budgets from account-book
// wide general budgets.
type BudgetType string

const (
	BudgetTypePersonal BudgetType = "PERSONAL"
	BudgetTypeGeneral  BudgetType = "GENERAL"
)

// Budget is one funding envelope for one owner for one period. Exactly one
// of UserID/FamilyMemberID identifies the owner: custodial members' budgets
// carry the book creator's UserID plus a FamilyMemberID.
type Budget struct {
	Base
	AccountBookID  string  `gorm:"type:uuid;not null;index" json:"account_book_id"`
	UserID         string  `gorm:"type:uuid;not null" json:"user_id"`
	FamilyMemberID *string `gorm:"type:uuid;index" json:"family_member_id,omitempty"`
	FamilyID       *string `gorm:"type:uuid" json:"family_id,omitempty"`
	CategoryID     *string `gorm:"type:uuid" json:"category_id,omitempty"`

	Name           string          `gorm:"not null" json:"name"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	RolloverAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"rollover_amount"`
	Period         BudgetPeriod    `gorm:"not null;default:'MONTHLY'" json:"period"`
	StartDate      time.Time       `gorm:"not null;index" json:"start_date"`
	EndDate        time.Time       `gorm:"not null;index" json:"end_date"`

	Rollover             bool       `gorm:"default:false" json:"rollover"`
	EnableCategoryBudget bool       `gorm:"default:false" json:"enable_category_budget"`
	IsAutoCalculated     bool       `gorm:"default:false" json:"is_auto_calculated"`
	BudgetType           BudgetType `gorm:"not null;default:'PERSONAL'" json:"budget_type"`
	RefreshDay           int        `gorm:"default:1" json:"refresh_day"`

	// Relationships
	AccountBook  *AccountBook  `gorm:"foreignKey:AccountBookID" json:"account_book,omitempty"`
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	FamilyMember *FamilyMember `gorm:"foreignKey:FamilyMemberID" json:"family_member,omitempty"`
	Category     *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:BudgetID" json:"transactions,omitempty"`
}

// Owner returns the budget's owner as a tagged variant.
func (b *Budget) Owner() Owner {
	if b.FamilyMemberID != nil {
		return CustodialOwner(*b.FamilyMemberID)
	}
	return RegisteredOwner(b.UserID)
}

// TotalAvailable is the base allotment plus the carry-in from the prior period.
func (b *Budget) TotalAvailable() decimal.Decimal {
	return b.Amount.Add(b.RolloverAmount)
}
