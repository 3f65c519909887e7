package services

import (
	"time"

	"gorm.io/gorm"

	"quid/internal/models"
	"quid/internal/pagination"
	"quid/internal/snapshot"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID, name, description string, accountType models.AccountType, currency string, initialBalance int64) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID, name, description string) (*models.Account, error)
	DeleteAccount(userID, accountID string) error
	// RecalculateBalances rederives every account balance of the user from
	// initial balances plus the full transaction set. Runs on the given
	// handle so callers can compose it into their own transactions.
	RecalculateBalances(tx *gorm.DB, userID string) error
	// Recalculate is RecalculateBalances in a transaction of its own.
	Recalculate(userID string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetUserCategoriesByType(userID string, categoryType models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionInput carries every field needed to create a transaction,
// including the optional split, recurrence, and pool facets.
type TransactionInput struct {
	AccountID   string
	CategoryID  *string
	Type        models.TransactionType
	Amount      int64
	Description string
	Date        time.Time

	// Split facet
	IsSplit              bool
	SplitFriendName      string
	SplitFriendAmount    int64
	SplitSettleAccountID *string
	SplitSettleLabel     string

	// Recurrence facet
	IsRecurring        bool
	RecurrenceInterval models.RecurrenceInterval
	RecurrenceEndDate  *time.Time

	// Pool facet
	PoolID *string
}

// TransactionUpdate carries the mutable fields of a transaction; nil
// means "leave unchanged". Description and category edits on a
// recurrence origin propagate to its generated instances; amount and
// split edits deliberately do not.
type TransactionUpdate struct {
	Description *string
	Date        *time.Time
	CategoryID  *string
	Amount      *int64
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	PoolID     *string
	MinAmount  *int64
	MaxAmount  *int64
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error)
	CreateTransfer(userID, fromAccountID, toAccountID string, amount int64, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, upd TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	// GenerateInstances materializes the missing instances of one
	// recurring origin up to horizon, deduplicated by calendar day.
	GenerateInstances(userID, originID string, horizon time.Time) ([]models.Transaction, error)
	// GenerateAllInstances does the same for every origin of the user.
	GenerateAllInstances(userID string, horizon time.Time) ([]models.Transaction, error)
}

// BudgetStatus reports a budget's position inside its current window.
type BudgetStatus struct {
	BudgetID      string    `json:"budget_id"`
	Name          string    `json:"name"`
	Budgeted      int64     `json:"budgeted"`
	Spent         int64     `json:"spent"`
	Remaining     int64     `json:"remaining"`
	PercentUsed   float64   `json:"percent_used"`
	PeriodStart   time.Time `json:"period_start"`
	NextReset     time.Time `json:"next_reset"`
	DaysRemaining int       `json:"days_remaining"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID, name string, amount int64, scope models.BudgetScope, categoryID, accountID *string, period models.BudgetPeriod, startDate time.Time) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID, name string, amount *int64, period *models.BudgetPeriod) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	// RefreshBudget rolls the budget's window forward past any elapsed
	// period boundaries, recomputes spending for the current window, and
	// reports the result.
	RefreshBudget(userID, budgetID string, now time.Time) (*BudgetStatus, error)
	RefreshAllBudgets(userID string, now time.Time) ([]BudgetStatus, error)
}

// PoolServicer defines the contract for pool-related business logic.
type PoolServicer interface {
	CreatePool(userID, accountID, name string, amount int64, color string) (*models.Pool, error)
	GetAccountPools(userID, accountID string) ([]models.Pool, error)
	GetPoolByID(userID, poolID string) (*models.Pool, error)
	UpdatePool(userID, poolID, name string, amount *int64, color string) (*models.Pool, error)
	DeletePool(userID, poolID string) error
	// AssignTransaction moves a transaction between pools (or to none,
	// when poolID is nil), reversing the prior pool effect before
	// applying the new one.
	AssignTransaction(userID, transactionID string, poolID *string) (*models.Transaction, error)
}

// CategorySpend aggregates expense totals for one category.
type CategorySpend struct {
	CategoryID   *string `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name"`
	Total        int64   `json:"total"`
	Count        int     `json:"count"`
}

// MonthlyTotal aggregates income and expenses for one calendar month.
type MonthlyTotal struct {
	Month   string `json:"month"` // YYYY-MM
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
	Net     int64  `json:"net"`
}

// AnalyticsServicer defines the contract for spending analytics.
type AnalyticsServicer interface {
	SpendingByCategory(userID string, from, to time.Time) ([]CategorySpend, error)
	MonthlySummary(userID string, year int) ([]MonthlyTotal, error)
}

// ExportServicer defines the contract for exporting and importing state.
type ExportServicer interface {
	ExportBundle(userID string) (*snapshot.Bundle, error)
	ExportCSV(userID string) ([]byte, error)
	// ImportBundle replaces the user's collections wholesale with the
	// bundle's contents, then recomputes balances.
	ImportBundle(userID string, b *snapshot.Bundle) error
	// BackupToDisk writes the user's collections as one JSON file per
	// collection under the configured snapshot directory.
	BackupToDisk(userID string) (string, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
