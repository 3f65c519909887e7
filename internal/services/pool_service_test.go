package services

import (
	"testing"
	"time"

	"quid/internal/models"
	"quid/internal/testutil"
)

func TestCreatePool(t *testing.T) {
	t.Run("allocation_within_unallocated_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewPoolService(db, accounts)
		user := testutil.CreateTestUser(t, db)
		// 1000 pounds in the account
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)

		// Earmark 300 for a holiday
		pool, err := svc.CreatePool(user.ID, account.ID, "Holiday", 30000, "#00AACC")
		testutil.AssertNoError(t, err)
		if pool.Amount != 30000 {
			t.Errorf("expected pool amount 30000, got %d", pool.Amount)
		}

		// 700 remains unallocated, so an 800 pool must be refused
		_, err = svc.CreatePool(user.ID, account.ID, "Rent", 80000, "")
		testutil.AssertAppError(t, err, "POOL_OVER_ALLOCATION")

		// But 700 exactly is fine
		_, err = svc.CreatePool(user.ID, account.ID, "Rent", 70000, "")
		testutil.AssertNoError(t, err)

		got, err := accounts.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if got.UnallocatedBalance() != 0 {
			t.Errorf("expected fully allocated account, got %d unallocated", got.UnallocatedBalance())
		}
	})

	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)

		_, err := svc.CreatePool(user.ID, account.ID, "Empty", 0, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpdatePool(t *testing.T) {
	t.Run("growth_bounded_by_unallocated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewPoolService(db, accounts)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)

		pool, err := svc.CreatePool(user.ID, account.ID, "Holiday", 30000, "")
		testutil.AssertNoError(t, err)

		// Growing to the full balance is allowed
		full := int64(100000)
		_, err = svc.UpdatePool(user.ID, pool.ID, "", &full, "")
		testutil.AssertNoError(t, err)

		// One penny more is not
		over := int64(100001)
		_, err = svc.UpdatePool(user.ID, pool.ID, "", &over, "")
		testutil.AssertAppError(t, err, "POOL_OVER_ALLOCATION")
	})

	t.Run("shrinking_always_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		pool := testutil.CreateTestPool(t, db, user.ID, account.ID, 30000)

		zero := int64(0)
		updated, err := svc.UpdatePool(user.ID, pool.ID, "", &zero, "")
		testutil.AssertNoError(t, err)
		_ = updated

		got, err := svc.GetPoolByID(user.ID, pool.ID)
		testutil.AssertNoError(t, err)
		if got.Amount != 0 {
			t.Errorf("expected pool shrunk to 0, got %d", got.Amount)
		}
	})
}

func TestAssignTransaction(t *testing.T) {
	t.Run("expense_draws_pool_down", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		pool := testutil.CreateTestPool(t, db, user.ID, account.ID, 30000)
		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 10000)

		updated, err := svc.AssignTransaction(user.ID, tx.ID, &pool.ID)
		testutil.AssertNoError(t, err)
		if updated.PoolID == nil || *updated.PoolID != pool.ID {
			t.Fatal("expected pool assignment on transaction")
		}

		got, _ := svc.GetPoolByID(user.ID, pool.ID)
		if got.Amount != 20000 {
			t.Errorf("expected pool drawn down to 20000, got %d", got.Amount)
		}
	})

	t.Run("assign_then_unassign_round_trips", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		pool := testutil.CreateTestPool(t, db, user.ID, account.ID, 30000)
		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 10000)

		_, err := svc.AssignTransaction(user.ID, tx.ID, &pool.ID)
		testutil.AssertNoError(t, err)
		_, err = svc.AssignTransaction(user.ID, tx.ID, nil)
		testutil.AssertNoError(t, err)

		got, _ := svc.GetPoolByID(user.ID, pool.ID)
		if got.Amount != 30000 {
			t.Errorf("expected pool restored to 30000, got %d", got.Amount)
		}
	})

	t.Run("reassignment_moves_effect_between_pools", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		holiday := testutil.CreateTestPool(t, db, user.ID, account.ID, 30000)
		rent := testutil.CreateTestPool(t, db, user.ID, account.ID, 50000)
		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 10000)

		_, err := svc.AssignTransaction(user.ID, tx.ID, &holiday.ID)
		testutil.AssertNoError(t, err)
		_, err = svc.AssignTransaction(user.ID, tx.ID, &rent.ID)
		testutil.AssertNoError(t, err)

		gotHoliday, _ := svc.GetPoolByID(user.ID, holiday.ID)
		gotRent, _ := svc.GetPoolByID(user.ID, rent.ID)
		if gotHoliday.Amount != 30000 {
			t.Errorf("expected holiday pool restored to 30000, got %d", gotHoliday.Amount)
		}
		if gotRent.Amount != 40000 {
			t.Errorf("expected rent pool drawn to 40000, got %d", gotRent.Amount)
		}
	})

	t.Run("expense_larger_than_pool_refused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		pool := testutil.CreateTestPool(t, db, user.ID, account.ID, 5000)
		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 10000)

		_, err := svc.AssignTransaction(user.ID, tx.ID, &pool.ID)
		testutil.AssertAppError(t, err, "POOL_OVER_ALLOCATION")
	})

	t.Run("pool_on_other_account_refused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		other := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		pool := testutil.CreateTestPool(t, db, user.ID, other.ID, 30000)
		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 1000)

		_, err := svc.AssignTransaction(user.ID, tx.ID, &pool.ID)
		testutil.AssertAppError(t, err, "POOL_ACCOUNT_MISMATCH")
	})

	t.Run("income_tops_pool_up", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPoolService(db, NewAccountService(db))
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		pool := testutil.CreateTestPool(t, db, user.ID, account.ID, 30000)
		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeIncome, 20000)

		_, err := svc.AssignTransaction(user.ID, tx.ID, &pool.ID)
		testutil.AssertNoError(t, err)

		got, _ := svc.GetPoolByID(user.ID, pool.ID)
		if got.Amount != 50000 {
			t.Errorf("expected pool topped up to 50000, got %d", got.Amount)
		}
	})
}

func TestDeletePool(t *testing.T) {
	t.Run("releases_earmark_without_moving_money", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewPoolService(db, accounts)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
		pool := testutil.CreateTestPool(t, db, user.ID, account.ID, 30000)
		tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, 1000)

		_, err := svc.AssignTransaction(user.ID, tx.ID, &pool.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.DeletePool(user.ID, pool.ID))

		// Balance untouched, assignment cleared
		got, err := accounts.GetAccountByID(user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if got.UnallocatedBalance() != got.Balance {
			t.Error("expected no pools left on the account")
		}

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.Where("id = ?", tx.ID).First(&reloaded).Error)
		if reloaded.PoolID != nil {
			t.Error("expected pool assignment cleared on transaction")
		}
	})
}

// Creating a transaction directly into a pool applies the pool effect in
// the same commit as the balance recompute.
func TestCreateTransactionIntoPool(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	accounts := NewAccountService(db)
	pools := NewPoolService(db, accounts)
	transactions := NewTransactionService(db, accounts)
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 100000)
	pool := testutil.CreateTestPool(t, db, user.ID, account.ID, 30000)

	tx, err := transactions.CreateTransaction(user.ID, TransactionInput{
		AccountID:   account.ID,
		Type:        models.TransactionTypeExpense,
		Amount:      10000,
		Description: "Flights",
		Date:        time.Now(),
		PoolID:      &pool.ID,
	})
	testutil.AssertNoError(t, err)
	if tx.ID == "" {
		t.Fatal("expected transaction to be created")
	}

	gotPool, err := pools.GetPoolByID(user.ID, pool.ID)
	testutil.AssertNoError(t, err)
	if gotPool.Amount != 20000 {
		t.Errorf("expected pool drawn down to 20000, got %d", gotPool.Amount)
	}

	gotAccount, err := accounts.GetAccountByID(user.ID, account.ID)
	testutil.AssertNoError(t, err)
	if gotAccount.Balance != 90000 {
		t.Errorf("expected balance 90000, got %d", gotAccount.Balance)
	}
}
