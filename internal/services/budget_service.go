package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "quid/internal/errors"
	"quid/internal/models"
	"quid/internal/pagination"
	"quid/internal/period"
)

// budgetService handles budget-related business logic. A budget tracks
// spending against a target inside a rolling window; the window advances
// lazily whenever the budget is read or refreshed, so no background job
// is needed to keep budgets current.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a budget. Category-scoped budgets need a category
// reference, account-scoped ones an account reference; overall budgets
// carry neither.
func (s *budgetService) CreateBudget(userID, name string, amount int64, scope models.BudgetScope, categoryID, accountID *string, budgetPeriod models.BudgetPeriod, startDate time.Time) (*models.Budget, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
	}
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be positive")
	}

	switch scope {
	case models.BudgetScopeOverall:
		categoryID, accountID = nil, nil
	case models.BudgetScopeCategory:
		if categoryID == nil {
			return nil, apperrors.ErrBudgetScopeMissing
		}
		var count int64
		if err := s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *categoryID, userID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
		accountID = nil
	case models.BudgetScopeAccount:
		if accountID == nil {
			return nil, apperrors.ErrBudgetScopeMissing
		}
		var count int64
		if err := s.db.Model(&models.Account{}).Where("id = ? AND user_id = ?", *accountID, userID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrAccountNotFound
		}
		categoryID = nil
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported budget scope")
	}

	if startDate.IsZero() {
		startDate = time.Now()
	}
	startDate = startDate.Truncate(24 * time.Hour)

	budget := &models.Budget{
		UserID:          userID,
		Name:            name,
		Amount:          amount,
		Scope:           scope,
		CategoryID:      categoryID,
		AccountID:       accountID,
		Period:          budgetPeriod,
		StartDate:       startDate,
		PeriodStartDate: startDate,
		IsActive:        true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		spent, err := s.spentInWindow(tx, budget, time.Now())
		if err != nil {
			return err
		}
		budget.CurrentSpent = spent
		if err := tx.Model(budget).Update("current_spent", spent).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return budget, nil
}

// GetUserBudgets retrieves a paginated list of budgets for a user, with
// optional filters on active state and period.
func (s *budgetService) GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool, budgetPeriod *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if budgetPeriod != nil {
		base = base.Where("period = ?", *budgetPeriod)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Preload("Account").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID retrieves a budget by ID for a specific user
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Preload("Account").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates a budget's name, amount, or period. A period
// change realigns the window to the current date on the next refresh.
func (s *budgetService) UpdateBudget(userID, budgetID, name string, amount *int64, budgetPeriod *models.BudgetPeriod) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be positive")
		}
		updates["amount"] = *amount
	}
	if budgetPeriod != nil {
		updates["period"] = *budgetPeriod
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return budget, nil
}

// DeleteBudget soft-deletes a budget. Transactions are untouched; a
// budget is an observer of spending, never an owner of it.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RefreshBudget rolls the budget's window forward across any elapsed
// boundaries, recomputes spending for the current window, persists both,
// and reports the result.
func (s *budgetService) RefreshBudget(userID, budgetID string, now time.Time) (*BudgetStatus, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	var status *BudgetStatus
	err = s.db.Transaction(func(tx *gorm.DB) error {
		status, err = s.refresh(tx, budget, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// RefreshAllBudgets refreshes every active budget of the user.
func (s *budgetService) RefreshAllBudgets(userID string, now time.Time) ([]BudgetStatus, error) {
	var budgets []models.Budget
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range budgets {
			status, err := s.refresh(tx, &budgets[i], now)
			if err != nil {
				return err
			}
			statuses = append(statuses, *status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// refresh advances one budget's window and rederives its spending on the
// given handle.
func (s *budgetService) refresh(tx *gorm.DB, budget *models.Budget, now time.Time) (*BudgetStatus, error) {
	periodStart := budget.PeriodStartDate
	if periodStart.IsZero() {
		periodStart = budget.StartDate
	}

	newStart, rollovers := period.Advance(budget.Period, periodStart, now)
	spent, err := s.spentInWindow(tx, budget, now)
	if err != nil {
		return nil, err
	}

	if rollovers > 0 || spent != budget.CurrentSpent {
		budget.PeriodStartDate = newStart
		budget.CurrentSpent = spent
		if err := tx.Model(budget).Updates(map[string]interface{}{
			"period_start_date": newStart,
			"current_spent":     spent,
		}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return &BudgetStatus{
		BudgetID:      budget.ID,
		Name:          budget.Name,
		Budgeted:      budget.Amount,
		Spent:         budget.CurrentSpent,
		Remaining:     budget.RemainingAmount(),
		PercentUsed:   budget.PercentUsed(),
		PeriodStart:   budget.PeriodStartDate,
		NextReset:     period.NextReset(budget.Period, budget.PeriodStartDate),
		DaysRemaining: period.DaysRemaining(budget.Period, budget.PeriodStartDate, now),
	}, nil
}

// spentInWindow sums the expense transactions matching the budget's scope
// inside the window containing now. Split expenses count the user's share
// only; the friend's share was never the user's spending.
func (s *budgetService) spentInWindow(tx *gorm.DB, budget *models.Budget, now time.Time) (int64, error) {
	periodStart := budget.PeriodStartDate
	if periodStart.IsZero() {
		periodStart = budget.StartDate
	}
	periodStart, _ = period.Advance(budget.Period, periodStart, now)
	windowStart, windowEnd := period.Window(budget.Period, periodStart)

	query := tx.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ? AND date >= ? AND date < ?",
			budget.UserID, models.TransactionTypeExpense, windowStart, windowEnd)

	switch budget.Scope {
	case models.BudgetScopeCategory:
		if budget.CategoryID == nil {
			return 0, apperrors.ErrBudgetScopeMissing
		}
		query = query.Where("category_id = ?", *budget.CategoryID)
	case models.BudgetScopeAccount:
		if budget.AccountID == nil {
			return 0, apperrors.ErrBudgetScopeMissing
		}
		query = query.Where("account_id = ?", *budget.AccountID)
	}

	var spent int64
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(&spent).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return spent, nil
}
