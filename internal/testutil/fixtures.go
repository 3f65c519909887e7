package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"quid/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a current account with a zero opening balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, 0)
}

// CreateTestAccountWithBalance creates a current account whose opening
// balance (in pence) is the given amount.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID string, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Account %d", nextID()),
		Type:           models.AccountTypeCurrent,
		Currency:       "GBP",
		InitialBalance: balance,
		Balance:        balance,
		IsActive:       true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestSavingsAccount creates a savings account with the given opening balance.
func CreateTestSavingsAccount(t *testing.T, db *gorm.DB, userID string, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Savings %d", nextID()),
		Type:           models.AccountTypeSavings,
		Currency:       "GBP",
		InitialBalance: balance,
		Balance:        balance,
		IsActive:       true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test savings account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction of the given type and amount (in pence).
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID string, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:    userID,
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
		Date:      time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates a monthly category budget of the given amount (in pence).
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID string, amount int64) *models.Budget {
	t.Helper()

	start := time.Now().Truncate(24 * time.Hour)
	budget := &models.Budget{
		UserID:          userID,
		Name:            fmt.Sprintf("Test Budget %d", nextID()),
		Amount:          amount,
		Scope:           models.BudgetScopeCategory,
		CategoryID:      &categoryID,
		Period:          models.BudgetPeriodMonthly,
		StartDate:       start,
		PeriodStartDate: start,
		IsActive:        true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestPool creates a pool on the given account with the given amount (in pence).
func CreateTestPool(t *testing.T, db *gorm.DB, userID, accountID string, amount int64) *models.Pool {
	t.Helper()

	pool := &models.Pool{
		UserID:    userID,
		AccountID: accountID,
		Name:      fmt.Sprintf("Test Pool %d", nextID()),
		Amount:    amount,
	}
	if err := db.Create(pool).Error; err != nil {
		t.Fatalf("failed to create test pool: %v", err)
	}
	return pool
}
