package auth

import (
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Role is an account's authorization level.
type Role string

const (
	// RoleTeacher may generate plans and read history.
	RoleTeacher Role = "teacher"
	// RoleAdmin may additionally manage accounts.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a role plangen grants.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// ParseRole maps an optional request value onto a Role, defaulting to
// teacher.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleTeacher, nil
	}
	if r := Role(s); r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// User is a plangen account. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitzero"`
	Disabled     bool      `json:"disabled"`
}

// HashPassword returns a bcrypt hash of password. A zero cost means
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const minPasswordRunes = 8

// ErrWeakPassword is returned for passwords shorter than minPasswordRunes.
var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordRunes)

// ValidatePassword counts runes, so a Chinese passphrase is measured by
// characters rather than bytes.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordRunes {
		return ErrWeakPassword
	}
	return nil
}
