package domain

import "time"

// AuditLog represents an audit event. UserID is empty when no account was resolved.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
