package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// RecurrenceInterval represents how often a recurring transaction repeats
type RecurrenceInterval string

const (
	RecurrenceNone      RecurrenceInterval = "none"
	RecurrenceDaily     RecurrenceInterval = "daily"
	RecurrenceWeekly    RecurrenceInterval = "weekly"
	RecurrenceBiweekly  RecurrenceInterval = "biweekly"
	RecurrenceMonthly   RecurrenceInterval = "monthly"
	RecurrenceQuarterly RecurrenceInterval = "quarterly"
	RecurrenceYearly    RecurrenceInterval = "yearly"
)

// Transaction represents a financial transaction in the system.
//
// AccountID is the source account for expenses and transfers and the
// destination account for income. ToAccountID is set for transfers only.
//
// For split payments, Amount holds the user's share only; the friend's
// share lives in SplitFriendAmount and does not move AccountID's
// balance. If the friend settles into one of the user's own accounts,
// SplitSettleAccountID names it and the friend's share is applied there
// as an income-like effect; otherwise SplitSettleLabel is free text.
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null" json:"user_id"`
	AccountID   string          `gorm:"type:uuid;not null" json:"account_id"`
	CategoryID  *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null" json:"date"`

	// For transfers
	ToAccountID *string `gorm:"type:uuid" json:"to_account_id,omitempty"`

	// Split facet
	IsSplit              bool    `gorm:"default:false" json:"is_split"`
	SplitFriendName      string  `json:"split_friend_name,omitempty"`
	SplitFriendAmount    int64   `gorm:"type:bigint;not null;default:0" json:"split_friend_amount,omitempty"`
	SplitSettleAccountID *string `gorm:"type:uuid" json:"split_settle_account_id,omitempty"`
	SplitSettleLabel     string  `json:"split_settle_label,omitempty"`

	// Recurrence facet. A row with IsRecurring set and a nil
	// ParentTransactionID is a recurrence origin; generated instances
	// carry the origin's id in ParentTransactionID and never generate
	// further instances themselves.
	IsRecurring         bool               `gorm:"default:false" json:"is_recurring"`
	RecurrenceInterval  RecurrenceInterval `gorm:"default:'none'" json:"recurrence_interval"`
	RecurrenceEndDate   *time.Time         `json:"recurrence_end_date,omitempty"`
	ParentTransactionID *string            `gorm:"type:uuid;index" json:"parent_transaction_id,omitempty"`

	// Pool facet
	PoolID *string `gorm:"type:uuid" json:"pool_id,omitempty"`

	// Relationships
	Account   Account   `gorm:"foreignKey:AccountID" json:"account"`
	ToAccount *Account  `gorm:"foreignKey:ToAccountID" json:"to_account,omitempty"`
	Category  *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Pool      *Pool     `gorm:"foreignKey:PoolID" json:"pool,omitempty"`
}

// TotalAmount returns the full cost of the transaction: the user's share
// plus the friend's share when split, otherwise just Amount.
func (t *Transaction) TotalAmount() int64 {
	if t.IsSplit {
		return t.Amount + t.SplitFriendAmount
	}
	return t.Amount
}

// IsRecurrenceOrigin reports whether this transaction is a user-created
// recurring template rather than a generated instance.
func (t *Transaction) IsRecurrenceOrigin() bool {
	return t.IsRecurring && t.ParentTransactionID == nil && t.RecurrenceInterval != RecurrenceNone
}
