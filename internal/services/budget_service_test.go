package services

import (
	"testing"
	"time"

	"quid/internal/models"
	"quid/internal/testutil"
)

func TestCreateBudget(t *testing.T) {
	t.Run("category_scope", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		budget, err := svc.CreateBudget(user.ID, "Food", 20000, models.BudgetScopeCategory, &cat.ID, nil, models.BudgetPeriodMonthly, time.Now())
		testutil.AssertNoError(t, err)

		if budget.ID == "" {
			t.Fatal("expected budget ID to be set")
		}
		if budget.Scope != models.BudgetScopeCategory {
			t.Errorf("expected category scope, got %s", budget.Scope)
		}
		if budget.PeriodStartDate.IsZero() {
			t.Error("expected period start date to be initialized")
		}
	})

	t.Run("category_scope_requires_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateBudget(user.ID, "Food", 20000, models.BudgetScopeCategory, nil, nil, models.BudgetPeriodMonthly, time.Now())
		testutil.AssertAppError(t, err, "BUDGET_SCOPE_MISSING")
	})

	t.Run("account_scope_requires_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateBudget(user.ID, "Current acct", 50000, models.BudgetScopeAccount, nil, nil, models.BudgetPeriodWeekly, time.Now())
		testutil.AssertAppError(t, err, "BUDGET_SCOPE_MISSING")
	})

	t.Run("wrong_user_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user2.ID, models.CategoryTypeExpense)

		_, err := svc.CreateBudget(user1.ID, "Not mine", 20000, models.BudgetScopeCategory, &cat.ID, nil, models.BudgetPeriodMonthly, time.Now())
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("overall_scope_drops_references", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		budget, err := svc.CreateBudget(user.ID, "Everything", 100000, models.BudgetScopeOverall, &cat.ID, nil, models.BudgetPeriodMonthly, time.Now())
		testutil.AssertNoError(t, err)
		if budget.CategoryID != nil || budget.AccountID != nil {
			t.Error("overall budgets must not carry category or account references")
		}
	})
}

func TestRefreshBudget(t *testing.T) {
	t.Run("sums_category_expenses_in_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		budget, err := svc.CreateBudget(user.ID, "Food", 20000, models.BudgetScopeCategory, &food.ID, nil, models.BudgetPeriodMonthly, start)
		testutil.AssertNoError(t, err)

		// 50 and 30 pounds of food inside the window
		for _, amount := range []int64{5000, 3000} {
			tx := &models.Transaction{
				UserID:     user.ID,
				AccountID:  account.ID,
				CategoryID: &food.ID,
				Type:       models.TransactionTypeExpense,
				Amount:     amount,
				Date:       start.AddDate(0, 0, 5),
			}
			testutil.AssertNoError(t, db.Create(tx).Error)
		}
		// A different category does not count
		other := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		outside := &models.Transaction{
			UserID: user.ID, AccountID: account.ID, CategoryID: &other.ID,
			Type: models.TransactionTypeExpense, Amount: 9999, Date: start.AddDate(0, 0, 5),
		}
		testutil.AssertNoError(t, db.Create(outside).Error)

		status, err := svc.RefreshBudget(user.ID, budget.ID, start.AddDate(0, 0, 10))
		testutil.AssertNoError(t, err)

		if status.Spent != 8000 {
			t.Errorf("expected spent 8000, got %d", status.Spent)
		}
		if status.Remaining != 12000 {
			t.Errorf("expected remaining 12000, got %d", status.Remaining)
		}
		if status.PercentUsed != 0.4 {
			t.Errorf("expected percent used 0.4, got %f", status.PercentUsed)
		}
	})

	t.Run("window_advances_after_month_boundary", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		start := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
		budget, err := svc.CreateBudget(user.ID, "Food", 20000, models.BudgetScopeCategory, &food.ID, nil, models.BudgetPeriodMonthly, start)
		testutil.AssertNoError(t, err)

		// Spend in June; refresh in August
		june := &models.Transaction{
			UserID: user.ID, AccountID: account.ID, CategoryID: &food.ID,
			Type: models.TransactionTypeExpense, Amount: 5000, Date: start.AddDate(0, 0, 2),
		}
		testutil.AssertNoError(t, db.Create(june).Error)

		now := time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC)
		status, err := svc.RefreshBudget(user.ID, budget.ID, now)
		testutil.AssertNoError(t, err)

		wantStart := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
		if !status.PeriodStart.Equal(wantStart) {
			t.Errorf("expected window start %v, got %v", wantStart, status.PeriodStart)
		}
		if status.Spent != 0 {
			t.Errorf("expected June spending excluded from August window, got %d", status.Spent)
		}
	})

	t.Run("weekly_window_advances_two_weeks", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		// A Monday, so each rollover lands exactly 7 days later
		start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		budget, err := svc.CreateBudget(user.ID, "Weekly", 10000, models.BudgetScopeOverall, nil, nil, models.BudgetPeriodWeekly, start)
		testutil.AssertNoError(t, err)

		now := start.AddDate(0, 0, 14)
		status, err := svc.RefreshBudget(user.ID, budget.ID, now)
		testutil.AssertNoError(t, err)

		if !status.PeriodStart.Equal(start.AddDate(0, 0, 14)) {
			t.Errorf("expected window start %v, got %v", start.AddDate(0, 0, 14), status.PeriodStart)
		}
	})

	t.Run("refresh_is_idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		budget, err := svc.CreateBudget(user.ID, "Food", 20000, models.BudgetScopeCategory, &food.ID, nil, models.BudgetPeriodMonthly, start)
		testutil.AssertNoError(t, err)

		tx := &models.Transaction{
			UserID: user.ID, AccountID: account.ID, CategoryID: &food.ID,
			Type: models.TransactionTypeExpense, Amount: 5000, Date: start.AddDate(0, 0, 3),
		}
		testutil.AssertNoError(t, db.Create(tx).Error)

		now := start.AddDate(0, 0, 10)
		first, err := svc.RefreshBudget(user.ID, budget.ID, now)
		testutil.AssertNoError(t, err)
		second, err := svc.RefreshBudget(user.ID, budget.ID, now)
		testutil.AssertNoError(t, err)

		if first.Spent != second.Spent || !first.PeriodStart.Equal(second.PeriodStart) {
			t.Error("expected repeated refresh to be a no-op")
		}
	})

	t.Run("account_scope_counts_account_expenses_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		tracked := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		other := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)

		start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		budget, err := svc.CreateBudget(user.ID, "Current acct", 50000, models.BudgetScopeAccount, nil, &tracked.ID, models.BudgetPeriodMonthly, start)
		testutil.AssertNoError(t, err)

		in := &models.Transaction{
			UserID: user.ID, AccountID: tracked.ID,
			Type: models.TransactionTypeExpense, Amount: 7000, Date: start.AddDate(0, 0, 1),
		}
		out := &models.Transaction{
			UserID: user.ID, AccountID: other.ID,
			Type: models.TransactionTypeExpense, Amount: 9000, Date: start.AddDate(0, 0, 1),
		}
		testutil.AssertNoError(t, db.Create(in).Error)
		testutil.AssertNoError(t, db.Create(out).Error)

		status, err := svc.RefreshBudget(user.ID, budget.ID, start.AddDate(0, 0, 5))
		testutil.AssertNoError(t, err)
		if status.Spent != 7000 {
			t.Errorf("expected spent 7000, got %d", status.Spent)
		}
	})
}

func TestUpdateBudget(t *testing.T) {
	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 20000)

		bad := int64(0)
		_, err := svc.UpdateBudget(user.ID, budget.ID, "", &bad, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeleteBudget(t *testing.T) {
	t.Run("leaves_transactions_alone", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 20000)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 1000)

		testutil.AssertNoError(t, svc.DeleteBudget(user.ID, budget.ID))

		_, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")

		var count int64
		db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected transaction untouched, got %d rows", count)
		}
	})
}
