package domain

import (
	"errors"
	"regexp"
	"time"
)

// User is the core user entity. Roles is the user's role-name snapshot,
// loaded with the row.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	Roles        []string
	LastLoginAt  *time.Time
	LastLoginIP  string
	LastLoginUA  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is a named role assignable to users.
type Role struct {
	ID   string
	Name string
}

// RoleUser is the default role assigned at registration.
const RoleUser = "user"

// RoleAdmin marks administrative accounts (seeded, never self-assigned).
const RoleAdmin = "admin"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail reports whether email is plausibly deliverable.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("email is not valid")
	}
	return nil
}

// ValidatePassword enforces the minimum password policy for registration.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// HasRole reports whether the user's role snapshot contains name.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}
