package models

// AuditLog records a mutating user action for traceability.
type AuditLog struct {
	Base
	UserID       string `gorm:"type:uuid;index" json:"user_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `gorm:"type:uuid" json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `gorm:"type:text" json:"changes"`
}
