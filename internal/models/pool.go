package models

// Pool represents a named sub-allocation of an account's balance
// earmarked for a purpose ("Holiday", "Rent"). The allocation is
// notional: it is not a separate ledger, so deleting a pool never moves
// money. The sum of a single account's pool amounts may not exceed the
// account balance at the moment of creation or top-up; this is enforced
// at the point of allocation, not continuously.
type Pool struct {
	Base
	UserID    string `gorm:"type:uuid;not null" json:"user_id"`
	AccountID string `gorm:"type:uuid;not null" json:"account_id"`
	Name      string `gorm:"not null" json:"name"`
	Amount    int64  `gorm:"type:bigint;not null;default:0" json:"amount"`
	Color     string `json:"color"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:PoolID" json:"transactions,omitempty"`
}
