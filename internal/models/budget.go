package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// BudgetScope determines which expense transactions count toward a budget
type BudgetScope string

const (
	BudgetScopeOverall  BudgetScope = "overall"
	BudgetScopeCategory BudgetScope = "category"
	BudgetScopeAccount  BudgetScope = "account"
)

// Budget represents a spending target over a rolling period.
//
// StartDate is the budget's original start; PeriodStartDate marks the
// start of the current window and advances across period boundaries
// (Monday-aligned weeks, calendar months, calendar years) as time
// passes. CurrentSpent is derived from matching expense transactions
// inside the current window only.
type Budget struct {
	Base
	UserID          string       `gorm:"type:uuid;not null" json:"user_id"`
	Name            string       `gorm:"not null" json:"name"`
	Amount          int64        `gorm:"type:bigint;not null" json:"amount"`
	Scope           BudgetScope  `gorm:"not null;default:'overall'" json:"scope"`
	CategoryID      *string      `gorm:"type:uuid" json:"category_id,omitempty"`
	AccountID       *string      `gorm:"type:uuid" json:"account_id,omitempty"`
	Period          BudgetPeriod `gorm:"not null" json:"period"`
	StartDate       time.Time    `gorm:"not null" json:"start_date"`
	PeriodStartDate time.Time    `json:"period_start_date"`
	CurrentSpent    int64        `gorm:"type:bigint;not null;default:0" json:"current_spent"`
	IsActive        bool         `gorm:"default:true" json:"is_active"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Account  *Account  `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// RemainingAmount returns how much of the budget is left, floored at zero.
func (b *Budget) RemainingAmount() int64 {
	remaining := b.Amount - b.CurrentSpent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PercentUsed returns the fraction of the budget spent, capped at 1.
func (b *Budget) PercentUsed() float64 {
	if b.Amount <= 0 {
		return 0
	}
	pct := float64(b.CurrentSpent) / float64(b.Amount)
	if pct > 1 {
		return 1
	}
	return pct
}
