package models

// Family groups the members sharing a FAMILY account book.
type Family struct {
	Base
	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`
	Name      string `gorm:"not null" json:"name"`

	// Relationships
	Members []FamilyMember `gorm:"foreignKey:FamilyID" json:"members,omitempty"`
}

// FamilyMember is a membership record in a family. UserID is nil for
// custodial members, who have no login of their own and are tracked
// purely through this row.
type FamilyMember struct {
	Base
	FamilyID    string  `gorm:"type:uuid;not null" json:"family_id"`
	UserID      *string `gorm:"type:uuid" json:"user_id,omitempty"`
	Name        string  `gorm:"not null" json:"name"`
	Role        string  `gorm:"default:'member'" json:"role"`
	IsCustodial bool    `gorm:"default:false" json:"is_custodial"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
