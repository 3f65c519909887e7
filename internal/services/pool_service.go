package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "quid/internal/errors"
	"quid/internal/models"
)

// poolService handles pool-related business logic. Pools are notional
// earmarks of an account's balance: allocating to a pool never moves
// money, it only partitions what the account already holds.
type poolService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewPoolService creates a new PoolServicer.
func NewPoolService(db *gorm.DB, accountService AccountServicer) PoolServicer {
	return &poolService{db: db, accountService: accountService}
}

// CreatePool earmarks part of the account's unallocated balance under a
// name. The allocation may not exceed what is left unallocated.
func (s *poolService) CreatePool(userID, accountID, name string, amount int64, color string) (*models.Pool, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "pool name is required")
	}
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "pool amount must be positive")
	}

	account, err := s.accountService.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}
	if amount > account.UnallocatedBalance() {
		return nil, apperrors.ErrPoolOverAllocation
	}

	pool := &models.Pool{
		UserID:    userID,
		AccountID: account.ID,
		Name:      name,
		Amount:    amount,
		Color:     color,
	}

	if err := s.db.Create(pool).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pool, nil
}

// GetAccountPools lists every pool on the given account.
func (s *poolService) GetAccountPools(userID, accountID string) ([]models.Pool, error) {
	if _, err := s.accountService.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}

	var pools []models.Pool
	if err := s.db.Where("account_id = ? AND user_id = ?", accountID, userID).Order("name asc").Find(&pools).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pools, nil
}

// GetPoolByID retrieves a pool by ID for a specific user
func (s *poolService) GetPoolByID(userID, poolID string) (*models.Pool, error) {
	var pool models.Pool
	if err := s.db.Where("id = ? AND user_id = ?", poolID, userID).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPoolNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &pool, nil
}

// UpdatePool renames or recolors a pool and optionally resizes its
// allocation. Growing the allocation is bounded by the account's
// unallocated balance; shrinking is always allowed down to zero.
func (s *poolService) UpdatePool(userID, poolID, name string, amount *int64, color string) (*models.Pool, error) {
	pool, err := s.GetPoolByID(userID, poolID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if color != "" {
		updates["color"] = color
	}
	if amount != nil {
		if *amount < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "pool amount cannot be negative")
		}
		growth := *amount - pool.Amount
		if growth > 0 {
			account, err := s.accountService.GetAccountByID(userID, pool.AccountID)
			if err != nil {
				return nil, err
			}
			if growth > account.UnallocatedBalance() {
				return nil, apperrors.ErrPoolOverAllocation
			}
		}
		updates["amount"] = *amount
	}

	if len(updates) > 0 {
		if err := s.db.Model(pool).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return pool, nil
}

// DeletePool releases the earmark. Transactions assigned to the pool keep
// existing but drop the assignment; no balance changes, since pools never
// held real money.
func (s *poolService) DeletePool(userID, poolID string) error {
	pool, err := s.GetPoolByID(userID, poolID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("pool_id = ?", pool.ID).Update("pool_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(pool).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// AssignTransaction moves a transaction between pools. The effect of the
// old assignment is reversed before the new one is applied, so assigning
// and unassigning always round-trips the pool back to its prior amount.
func (s *poolService) AssignTransaction(userID, transactionID string, poolID *string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if transaction.PoolID != nil {
			if err := unassignPool(tx, &transaction); err != nil {
				return err
			}
		}
		if poolID != nil {
			if err := assignPool(tx, &transaction, *poolID); err != nil {
				return err
			}
		}
		if err := tx.Model(&transaction).Update("pool_id", poolID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	transaction.PoolID = poolID
	return &transaction, nil
}

// assignPool applies a transaction's effect to a pool: an expense draws
// the pool down by the user's share, an income tops it up. The pool must
// sit on the transaction's own account, and an expense may not draw more
// than the pool holds.
func assignPool(tx *gorm.DB, t *models.Transaction, poolID string) error {
	var pool models.Pool
	if err := tx.Where("id = ? AND user_id = ?", poolID, t.UserID).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPoolNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if pool.AccountID != t.AccountID {
		return apperrors.ErrPoolAccountMismatch
	}

	switch t.Type {
	case models.TransactionTypeExpense:
		if t.Amount > pool.Amount {
			return apperrors.ErrPoolOverAllocation
		}
		pool.Amount -= t.Amount
	case models.TransactionTypeIncome:
		pool.Amount += t.Amount
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "only income and expense transactions can be pooled")
	}

	if err := tx.Model(&pool).Update("amount", pool.Amount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// unassignPool reverses the effect assignPool applied for t. The pool
// amount is floored at zero so a heavily drawn-down pool cannot go
// negative when an old income assignment is removed.
func unassignPool(tx *gorm.DB, t *models.Transaction) error {
	if t.PoolID == nil {
		return nil
	}

	var pool models.Pool
	if err := tx.Where("id = ?", *t.PoolID).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Pool already deleted; nothing to reverse.
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	switch t.Type {
	case models.TransactionTypeExpense:
		pool.Amount += t.Amount
	case models.TransactionTypeIncome:
		pool.Amount -= t.Amount
		if pool.Amount < 0 {
			pool.Amount = 0
		}
	}

	if err := tx.Model(&pool).Update("amount", pool.Amount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
