package models

import "gorm.io/gorm"

// Owner identifies who a budget or transaction belongs to: either a
// registered user or a custodial family member, never both. The tagged
// variant replaces scattered "familyMemberId set?" branching with a single
// place that knows how each kind is queried.
type Owner struct {
	userID         string
	familyMemberID string
}

// RegisteredOwner identifies a member with a login of their own.
func RegisteredOwner(userID string) Owner {
	return Owner{userID: userID}
}

// CustodialOwner identifies a family member without a login.
func CustodialOwner(familyMemberID string) Owner {
	return Owner{familyMemberID: familyMemberID}
}

// IsCustodial reports whether the owner is a custodial family member.
func (o Owner) IsCustodial() bool {
	return o.familyMemberID != ""
}

// UserID returns the user id for registered owners, "" otherwise.
func (o Owner) UserID() string {
	return o.userID
}

// FamilyMemberID returns the family member id for custodial owners, "" otherwise.
func (o Owner) FamilyMemberID() string {
	return o.familyMemberID
}

// String returns a short identity for log lines.
func (o Owner) String() string {
	if o.IsCustodial() {
		return "member:" + o.familyMemberID
	}
	return "user:" + o.userID
}

// BudgetScope returns a GORM scope matching budgets owned by this owner.
// Custodial ownership takes precedence: a budget with family_member_id set
// is matched by that column, registered owners additionally require
// family_member_id to be null so custodial budgets held under the book
// creator's user id are not picked up.
func (o Owner) BudgetScope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if o.IsCustodial() {
			return db.Where("family_member_id = ?", o.familyMemberID)
		}
		return db.Where("user_id = ? AND family_member_id IS NULL", o.userID)
	}
}

// TransactionScope returns a GORM scope matching transactions recorded for
// this owner. The precedence rule mirrors BudgetScope.
func (o Owner) TransactionScope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if o.IsCustodial() {
			return db.Where("family_member_id = ?", o.familyMemberID)
		}
		return db.Where("user_id = ?", o.userID)
	}
}
