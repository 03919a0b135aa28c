package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// Category represents a transaction category
type Category struct {
	Base
	AccountBookID string       `gorm:"type:uuid;not null" json:"account_book_id"`
	Name          string       `gorm:"not null" json:"name"`
	Type          CategoryType `gorm:"not null" json:"type"`
	Icon          string       `json:"icon"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
	Budgets      []Budget      `gorm:"foreignKey:CategoryID" json:"budgets,omitempty"`
}
