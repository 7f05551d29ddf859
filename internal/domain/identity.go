package domain

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Email is a normalized (lowercased, trimmed) address. Uniqueness is
// enforced by the write store, format here.
type Email struct {
	value string
}

func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(normalized) {
		return Email{}, NewValidationError("invalid email address")
	}
	return Email{value: normalized}, nil
}

func (e Email) String() string { return e.value }

// Password enforces a minimal strength policy at construction so weak
// input never reaches the aggregate or the hasher.
type Password struct {
	value string
}

func NewPassword(raw string) (Password, error) {
	if len(raw) < 8 {
		return Password{}, NewValidationError("password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return Password{}, NewValidationError("password must contain letters and digits")
	}
	return Password{value: raw}, nil
}

func (p Password) String() string { return p.value }

// UserRole is immutable after registration.
type UserRole string

const (
	RoleGarage   UserRole = "GARAGE"
	RoleSupplier UserRole = "SUPPLIER"
	RoleAdmin    UserRole = "ADMIN"
)

func ParseUserRole(raw string) (UserRole, error) {
	switch UserRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleGarage:
		return RoleGarage, nil
	case RoleSupplier:
		return RoleSupplier, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", NewValidationError("unknown user role: " + raw)
	}
}
