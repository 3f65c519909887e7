package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "quid/internal/errors"
	"quid/internal/models"
	"quid/internal/pagination"
	"quid/internal/recurrence"
)

// transactionService handles transaction-related business logic. Every
// mutation finishes by rederiving account balances inside the same
// database transaction, so a committed mutation can never leave a stale
// balance behind.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer) TransactionServicer {
	return &transactionService{db: db, accountService: accountService}
}

// CreateTransaction creates an income or expense transaction, including
// the optional split, recurrence, and pool facets. Transfers go through
// CreateTransfer.
func (s *transactionService) CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error) {
	if in.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if in.Type != models.TransactionTypeIncome && in.Type != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}

	account, err := s.accountService.GetAccountByID(userID, in.AccountID)
	if err != nil {
		return nil, err
	}

	if in.CategoryID != nil {
		var count int64
		if err := s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *in.CategoryID, userID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
	}

	if in.IsSplit {
		if in.SplitFriendAmount < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "split friend amount cannot be negative")
		}
		if in.SplitSettleAccountID != nil {
			if _, err := s.accountService.GetAccountByID(userID, *in.SplitSettleAccountID); err != nil {
				return nil, err
			}
		}
	}

	if in.IsRecurring && (in.RecurrenceInterval == "" || in.RecurrenceInterval == models.RecurrenceNone) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring transactions need an interval")
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	interval := in.RecurrenceInterval
	if interval == "" {
		interval = models.RecurrenceNone
	}

	transaction := &models.Transaction{
		UserID:               userID,
		AccountID:            account.ID,
		CategoryID:           in.CategoryID,
		Type:                 in.Type,
		Amount:               in.Amount,
		Description:          in.Description,
		Date:                 date,
		IsSplit:              in.IsSplit,
		SplitFriendName:      in.SplitFriendName,
		SplitFriendAmount:    in.SplitFriendAmount,
		SplitSettleAccountID: in.SplitSettleAccountID,
		SplitSettleLabel:     in.SplitSettleLabel,
		IsRecurring:          in.IsRecurring,
		RecurrenceInterval:   interval,
		RecurrenceEndDate:    in.RecurrenceEndDate,
	}
	if !in.IsSplit {
		transaction.SplitFriendName = ""
		transaction.SplitFriendAmount = 0
		transaction.SplitSettleAccountID = nil
		transaction.SplitSettleLabel = ""
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if in.PoolID != nil {
			if err := assignPool(tx, transaction, *in.PoolID); err != nil {
				return err
			}
			if err := tx.Model(transaction).Update("pool_id", *in.PoolID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			transaction.PoolID = in.PoolID
		}
		return s.accountService.RecalculateBalances(tx, userID)
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// CreateTransfer moves money between two of the user's accounts.
func (s *transactionService) CreateTransfer(userID, fromAccountID, toAccountID string, amount int64, description string, date time.Time) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if fromAccountID == toAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}

	from, err := s.accountService.GetAccountByID(userID, fromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.accountService.GetAccountByID(userID, toAccountID)
	if err != nil {
		return nil, err
	}

	if date.IsZero() {
		date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:             userID,
		AccountID:          from.ID,
		ToAccountID:        &to.ID,
		Type:               models.TransactionTypeTransfer,
		Amount:             amount,
		Description:        description,
		Date:               date,
		RecurrenceInterval: models.RecurrenceNone,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.accountService.RecalculateBalances(tx, userID)
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// applyFilter adds the optional filter clauses to a transaction query.
func applyFilter(db *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.FromDate != nil {
		db = db.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		db = db.Where("date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		db = db.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.PoolID != nil {
		db = db.Where("pool_id = ?", *filter.PoolID)
	}
	if filter.MinAmount != nil {
		db = db.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		db = db.Where("amount <= ?", *filter.MaxAmount)
	}
	return db
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := applyFilter(s.db.Model(&models.Transaction{}).Where("user_id = ?", userID), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).Order("date desc").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountTransactions retrieves transactions for one account.
func (s *transactionService) GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := s.accountService.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := applyFilter(s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND (account_id = ? OR to_account_id = ?)", userID, accountID, accountID), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).Order("date desc").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies the given field updates. Description and
// category changes on a recurrence origin propagate to its generated
// instances; amount and date changes never do, since instances may have
// been individually adjusted.
func (s *transactionService) UpdateTransaction(userID, transactionID string, upd TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	propagated := make(map[string]interface{})

	if upd.Description != nil {
		updates["description"] = *upd.Description
		propagated["description"] = *upd.Description
	}
	if upd.CategoryID != nil {
		var count int64
		if err := s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *upd.CategoryID, userID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
		updates["category_id"] = *upd.CategoryID
		propagated["category_id"] = *upd.CategoryID
	}
	if upd.Date != nil {
		updates["date"] = *upd.Date
	}
	if upd.Amount != nil {
		if *upd.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
		}
		updates["amount"] = *upd.Amount
	}

	if len(updates) == 0 {
		return transaction, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(transaction).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if transaction.IsRecurrenceOrigin() && len(propagated) > 0 {
			if err := tx.Model(&models.Transaction{}).
				Where("parent_transaction_id = ? AND user_id = ?", transaction.ID, userID).
				Updates(propagated).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if upd.Amount != nil {
			return s.accountService.RecalculateBalances(tx, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Where("id = ?", transaction.ID).First(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// DeleteTransaction removes a transaction. Deleting a recurrence origin
// cascades to every generated instance. Pool allocations touched by the
// deleted rows are reversed before the rows go.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		doomed := []models.Transaction{*transaction}
		if transaction.IsRecurrenceOrigin() {
			var instances []models.Transaction
			if err := tx.Where("parent_transaction_id = ? AND user_id = ?", transaction.ID, userID).Find(&instances).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			doomed = append(doomed, instances...)
		}

		for i := range doomed {
			if doomed[i].PoolID != nil {
				if err := unassignPool(tx, &doomed[i]); err != nil {
					return err
				}
			}
			if err := tx.Delete(&doomed[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		return s.accountService.RecalculateBalances(tx, userID)
	})
}

// GenerateInstances materializes the missing instances of one recurring
// origin up to horizon. Rerunning with the same horizon is a no-op:
// instances are deduplicated by calendar day.
func (s *transactionService) GenerateInstances(userID, originID string, horizon time.Time) ([]models.Transaction, error) {
	origin, err := s.GetTransactionByID(userID, originID)
	if err != nil {
		return nil, err
	}
	if !origin.IsRecurrenceOrigin() {
		return nil, apperrors.ErrNotRecurringOrigin
	}

	var created []models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.generateForOrigin(tx, origin, horizon)
		if err != nil {
			return err
		}
		if len(created) == 0 {
			return nil
		}
		return s.accountService.RecalculateBalances(tx, userID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GenerateAllInstances materializes missing instances for every recurring
// origin belonging to the user.
func (s *transactionService) GenerateAllInstances(userID string, horizon time.Time) ([]models.Transaction, error) {
	var origins []models.Transaction
	if err := s.db.Where("user_id = ? AND is_recurring = ? AND parent_transaction_id IS NULL", userID, true).
		Find(&origins).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var created []models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range origins {
			instances, err := s.generateForOrigin(tx, &origins[i], horizon)
			if err != nil {
				return err
			}
			created = append(created, instances...)
		}
		if len(created) == 0 {
			return nil
		}
		return s.accountService.RecalculateBalances(tx, userID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// generateForOrigin creates the missing instances of one origin on the
// given handle. Origins that do not qualify yield nothing.
func (s *transactionService) generateForOrigin(tx *gorm.DB, origin *models.Transaction, horizon time.Time) ([]models.Transaction, error) {
	if !origin.IsRecurrenceOrigin() {
		return nil, nil
	}

	var siblings []models.Transaction
	if err := tx.Select("date").Where("parent_transaction_id = ?", origin.ID).Find(&siblings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	existing := make(map[string]bool, len(siblings))
	for i := range siblings {
		existing[recurrence.DateKey(siblings[i].Date)] = true
	}

	instances := recurrence.Instances(*origin, horizon, existing)
	for i := range instances {
		if err := tx.Create(&instances[i]).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return instances, nil
}
