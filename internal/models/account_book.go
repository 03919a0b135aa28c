package models

// AccountBookType represents the type of account book
type AccountBookType string

const (
	AccountBookTypePersonal AccountBookType = "PERSONAL"
	AccountBookTypeFamily   AccountBookType = "FAMILY"
)

// AccountBook is the top-level container all budgets and transactions
// belong to. FAMILY books carry a Family whose members are each entitled
// to one personal budget per period.
type AccountBook struct {
	Base
	UserID      string          `gorm:"type:uuid;not null" json:"user_id"`
	FamilyID    *string         `gorm:"type:uuid" json:"family_id,omitempty"`
	Name        string          `gorm:"not null" json:"name"`
	Type        AccountBookType `gorm:"not null;default:'PERSONAL'" json:"type"`
	Description string          `json:"description"`

	// Relationships
	Family       *Family       `gorm:"foreignKey:FamilyID" json:"family,omitempty"`
	Budgets      []Budget      `gorm:"foreignKey:AccountBookID" json:"budgets,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:AccountBookID" json:"transactions,omitempty"`
}
