package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"hearth/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// D parses a decimal literal, failing the test on bad input.
func D(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", s, err)
	}
	return d
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	n := nextID()
	user := &models.User{
		Email:    fmt.Sprintf("user%d@test.com", n),
		Password: string(hash),
		Name:     fmt.Sprintf("Test User %d", n),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestFamilyBook creates a FAMILY account book with its family and
// the creator enrolled as a registered member.
func CreateTestFamilyBook(t *testing.T, db *gorm.DB, creator *models.User) *models.AccountBook {
	t.Helper()

	family := &models.Family{
		CreatedBy: creator.ID,
		Name:      fmt.Sprintf("Test Family %d", nextID()),
	}
	if err := db.Create(family).Error; err != nil {
		t.Fatalf("failed to create test family: %v", err)
	}

	book := &models.AccountBook{
		UserID:   creator.ID,
		FamilyID: &family.ID,
		Name:     fmt.Sprintf("Test Family Book %d", nextID()),
		Type:     models.AccountBookTypeFamily,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("failed to create test family book: %v", err)
	}

	AddRegisteredMember(t, db, book, creator)
	return book
}

// AddRegisteredMember enrolls a user in the book's family.
func AddRegisteredMember(t *testing.T, db *gorm.DB, book *models.AccountBook, user *models.User) *models.FamilyMember {
	t.Helper()

	member := &models.FamilyMember{
		FamilyID: *book.FamilyID,
		UserID:   &user.ID,
		Name:     user.Name,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test family member: %v", err)
	}
	return member
}

// AddCustodialMember enrolls a member with no login in the book's family.
func AddCustodialMember(t *testing.T, db *gorm.DB, book *models.AccountBook, name string) *models.FamilyMember {
	t.Helper()

	member := &models.FamilyMember{
		FamilyID:    *book.FamilyID,
		Name:        name,
		IsCustodial: true,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test custodial member: %v", err)
	}
	return member
}

// CreateTestCategory creates an expense category in the given book.
func CreateTestCategory(t *testing.T, db *gorm.DB, bookID string) *models.Category {
	t.Helper()

	category := &models.Category{
		AccountBookID: bookID,
		Name:          fmt.Sprintf("Test Category %d", nextID()),
		Type:          models.CategoryTypeExpense,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestBudget persists the given budget, filling in defaults for
// fields the test left zero.
func CreateTestBudget(t *testing.T, db *gorm.DB, budget *models.Budget) *models.Budget {
	t.Helper()

	if budget.Name == "" {
		budget.Name = fmt.Sprintf("Test Budget %d", nextID())
	}
	if budget.Period == "" {
		budget.Period = models.BudgetPeriodMonthly
	}
	if budget.BudgetType == "" {
		budget.BudgetType = models.BudgetTypePersonal
	}
	if budget.RefreshDay == 0 {
		budget.RefreshDay = 1
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestExpense persists an expense transaction, defaulting the date
// to now when unset.
func CreateTestExpense(t *testing.T, db *gorm.DB, tx *models.Transaction) *models.Transaction {
	t.Helper()

	tx.Type = models.TransactionTypeExpense
	if tx.Date.IsZero() {
		tx.Date = time.Now()
	}
	if tx.Description == "" {
		tx.Description = fmt.Sprintf("Test Expense %d", nextID())
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
