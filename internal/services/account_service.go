package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "quid/internal/errors"
	"quid/internal/ledger"
	"quid/internal/models"
	"quid/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new account for a user. The opening balance is
// recorded as InitialBalance and the derived Balance starts equal to it.
func (s *accountService) CreateAccount(userID, name, description string, accountType models.AccountType, currency string, initialBalance int64) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	switch accountType {
	case models.AccountTypeSavings, models.AccountTypeCurrent, models.AccountTypeCredit:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported account type")
	}

	if currency == "" {
		currency = "GBP"
	}

	account := &models.Account{
		UserID:         userID,
		Name:           name,
		Type:           accountType,
		Description:    description,
		Currency:       currency,
		InitialBalance: initialBalance,
		Balance:        initialBalance,
		IsActive:       true,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("user_id = ? AND is_active = ?", userID, true)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Preload("Pools").Scopes(pagination.Paginate(page)).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Preload("Pools").Where("id = ? AND user_id = ? AND is_active = ?", accountID, userID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an account's name and description.
func (s *accountService) UpdateAccount(userID, accountID, name, description string) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Preload("Pools").Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// DeleteAccount soft-deletes an account along with its transactions and
// pools, then rederives the remaining balances. Transfers from other
// accounts into the deleted one keep their rows; the ledger simply stops
// crediting the missing side.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ? AND user_id = ?", accountID, userID).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("account_id = ? AND user_id = ?", accountID, userID).Delete(&models.Pool{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.RecalculateBalances(tx, userID)
	})
}

// RecalculateBalances loads the user's full account and transaction sets,
// derives every balance from scratch, and writes back only the balances
// that changed. Safe to call repeatedly.
// Recalculate runs RecalculateBalances in its own transaction, for
// callers without one in flight.
func (s *accountService) Recalculate(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.RecalculateBalances(tx, userID)
	})
}

func (s *accountService) RecalculateBalances(tx *gorm.DB, userID string) error {
	var accounts []models.Account
	if err := tx.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := tx.Where("user_id = ?", userID).Find(&transactions).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	balances := ledger.Balances(accounts, transactions)
	for i := range accounts {
		derived := balances[accounts[i].ID]
		if accounts[i].Balance == derived {
			continue
		}
		if err := tx.Model(&accounts[i]).Update("balance", derived).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}
