package aggregates

import (
	"context"
	"testing"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
)

func newUserFixture() (domainagg.UserAggregate, *fakeUserRepo, *fakeOutboxRepo) {
	users := newFakeUserRepo()
	outbox := &fakeOutboxRepo{}
	agg := NewUserAggregate(UserAggregateDeps{
		Base:   BaseDeps{Runner: &spyTxRunner{}, Hooks: &spyHooks{}},
		Users:  users,
		Outbox: outbox,
	})
	return agg, users, outbox
}

func registerInput(t *testing.T, email string) domainagg.RegisterUserInput {
	t.Helper()
	e, err := domain.NewEmail(email)
	if err != nil {
		t.Fatalf("email: %v", err)
	}
	return domainagg.RegisterUserInput{
		Email:        e,
		PasswordHash: "$2a$10$fakehash",
		CompanyName:  "Garage Muller",
		Role:         domain.RoleGarage,
	}
}

func TestUserRegisterAppendsEvent(t *testing.T) {
	agg, users, outbox := newUserFixture()

	snap, err := agg.Register(context.Background(), registerInput(t, "shop@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if snap.Email != "shop@example.com" || snap.Role != string(domain.RoleGarage) {
		t.Fatalf("snapshot: %+v", snap)
	}
	if _, ok := users.users[snap.ID]; !ok {
		t.Fatal("user not persisted")
	}
	if len(outbox.events) != 1 || outbox.events[0].EventType != domain.EventUserRegistered {
		t.Fatalf("outbox: %+v", outbox.events)
	}
}

func TestUserRegisterDuplicateEmailConflicts(t *testing.T) {
	agg, _, outbox := newUserFixture()

	if _, err := agg.Register(context.Background(), registerInput(t, "shop@example.com")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := agg.Register(context.Background(), registerInput(t, "shop@example.com"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got=%v", err)
	}
	if len(outbox.events) != 1 {
		t.Fatalf("outbox grew on duplicate: %d", len(outbox.events))
	}
}
