package domain

import (
	"strings"

	"github.com/google/uuid"
)

// User is the identity aggregate root. Role is immutable after
// registration; email uniqueness is enforced by the write store.
type User struct {
	ID           uuid.UUID
	Email        Email
	PasswordHash string
	CompanyName  string
	Role         UserRole

	Version int64

	pending []Event
}

// RegisterUser creates the aggregate from already validated value objects
// and a hash produced by the password hasher collaborator.
func RegisterUser(email Email, passwordHash, companyName string, role UserRole) (*User, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, NewValidationError("company name is required")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, NewValidationError("password hash is required")
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CompanyName:  companyName,
		Role:         role,
	}
	return u, u.emit(EventUserRegistered, UserRegisteredPayload{
		Email:       u.Email.String(),
		CompanyName: u.CompanyName,
		Role:        u.Role,
	})
}

func (u *User) emit(eventType EventType, payload any) error {
	u.Version++
	ev, err := NewEvent(AggregateUser, u.ID, u.Version, eventType, payload)
	if err != nil {
		return err
	}
	u.pending = append(u.pending, ev)
	return nil
}

func (u *User) PendingEvents() []Event { return u.pending }
func (u *User) ClearPendingEvents()    { u.pending = nil }
