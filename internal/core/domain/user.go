package domain

import (
	"net/mail"
	"strings"
)

// User represents a stored user record. IDs are assigned by the store
// on create and are never reused, even after deletion.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Validate checks the record against the write rules: name must be
// present (not all whitespace) and email, when set, must parse as an
// address. Validation never touches the store.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrNameRequired
	}
	if u.Email != "" {
		if _, err := mail.ParseAddress(u.Email); err != nil {
			return ErrEmailInvalid
		}
	}
	return nil
}

// MatchesName reports whether term is a case-insensitive substring of
// the user's name.
func (u *User) MatchesName(term string) bool {
	return strings.Contains(strings.ToLower(u.Name), strings.ToLower(term))
}
