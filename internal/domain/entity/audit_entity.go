package entity

import "time"

// Auth audit actions
const (
	AuditRegister        = "register"
	AuditLogin           = "login"
	AuditLoginFailed     = "login_failed"
	AuditLogout          = "logout"
	AuditRefresh         = "refresh"
	AuditPasswordChanged = "password_changed"
	AuditProfileUpdated  = "profile_updated"
	AuditAccountDeleted  = "account_deactivated"
	AuditFamilyAdded     = "family_member_added"
)

// AuditLog is an append-only record of an account-level event.
type AuditLog struct {
	ID        int64
	UserID    string
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}
