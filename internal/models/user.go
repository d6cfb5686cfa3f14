package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles. The role column is a closed enum; anything else is rejected
// at registration time.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the known role values.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserDB represents a user record in the database.
// PasswordHash and Salt never leave the service layer.
type UserDB struct {
	ID           uuid.UUID  `json:"id" db:"id"`                 // Primary key
	Username     string     `json:"username" db:"username"`     // Unique username
	Email        string     `json:"email" db:"email"`           // Unique email
	PasswordHash string     `json:"-" db:"password_hash"`       // PBKDF2 digest, hex
	Salt         string     `json:"-" db:"salt"`                // Per-user random salt, hex
	Role         string     `json:"role" db:"role"`             // "user" or "admin"
	IsActive     bool       `json:"is_active" db:"is_active"`   // Deactivated accounts cannot log in
	CreatedAt    time.Time  `json:"created_at" db:"created_at"` // Set once on registration
	LastLogin    *time.Time `json:"last_login" db:"last_login"` // Updated on each successful login
}

// AuthUser is the public projection of an authenticated user, safe to
// return to clients and to embed into token claims.
type AuthUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// UserInfo is the administrative listing projection of a user record.
type UserInfo struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	Role      string     `json:"role" db:"role"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	LastLogin *time.Time `json:"last_login" db:"last_login"`
}
