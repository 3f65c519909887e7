package models

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
	AccountTypeCredit  AccountType = "credit"
)

// Account represents a financial account in the system.
//
// InitialBalance is the opening balance recorded when the account was
// created. Balance is derived: it always equals InitialBalance plus the
// net effect of every transaction referencing this account, and is
// rewritten wholesale by the ledger recomputation after each mutation.
type Account struct {
	Base
	UserID         string      `gorm:"type:uuid;not null" json:"user_id"`
	Name           string      `gorm:"not null" json:"name"`
	Type           AccountType `gorm:"not null" json:"type"`
	Description    string      `json:"description"`
	Currency       string      `gorm:"not null;default:'GBP'" json:"currency"`
	InitialBalance int64       `gorm:"type:bigint;not null;default:0" json:"initial_balance"`
	Balance        int64       `gorm:"type:bigint;not null;default:0" json:"balance"`
	IsActive       bool        `gorm:"default:true" json:"is_active"`

	// Relationships
	Pools        []Pool        `gorm:"foreignKey:AccountID" json:"pools,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}

// UnallocatedBalance returns the portion of the balance not earmarked by
// any pool. Only meaningful when Pools is loaded.
func (a *Account) UnallocatedBalance() int64 {
	allocated := int64(0)
	for i := range a.Pools {
		allocated += a.Pools[i].Amount
	}
	return a.Balance - allocated
}
