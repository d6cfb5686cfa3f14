package models

import "time"

// Audit actions recorded in auth_logs.
const (
	ActionLogin       = "login"
	ActionLoginFailed = "login_failed"
	ActionLogout      = "logout"
)

// AuthLogDB represents one append-only audit record of an authentication
// attempt. Records are never updated or deleted.
type AuthLogDB struct {
	ID        int64     `json:"id" db:"id"`
	Username  *string   `json:"username" db:"username"` // nil when the attempted username is unknown
	Action    string    `json:"action" db:"action"`
	Success   bool      `json:"success" db:"success"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// AuthEvent is the JSON payload published to Kafka for every audit record.
type AuthEvent struct {
	Username  *string   `json:"username"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}
