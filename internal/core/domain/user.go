package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// User models a registered account. PasswordHash is empty for accounts
// provisioned through a federated provider only.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the slice of a User attached to a session.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// IdentityOf builds the session identity for a user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}

var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrMissingFields = errors.New("missing required fields")
var ErrWeakPassword = errors.New("password does not satisfy policy")
var ErrSessionNotFound = errors.New("session not found")

// DuplicateKeyError reports a uniqueness violation in the credential store.
// Field names the offending index ("username" or "email") when it can be
// determined.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return "duplicate key"
	}
	return fmt.Sprintf("duplicate key: %s", e.Field)
}

// ValidationError carries store-level document validation messages.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}
