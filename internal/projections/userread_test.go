package projections

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

func TestUserRegisteredProjectsDocument(t *testing.T) {
	store := newFakeUserStore()
	p := NewUserRead(store, newFakeLedger(), observability.NewMetrics(), logger.NewNop())
	userID := uuid.New()

	ev := mustEvent(t, domain.AggregateUser, userID, 1, domain.EventUserRegistered, domain.UserRegisteredPayload{
		Email:       "shop@example.com",
		CompanyName: "Garage Muller",
		Role:        domain.RoleGarage,
	})
	handle := p.Binding().Handlers[domain.EventUserRegistered]
	if err := handle(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := handle(context.Background(), ev); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}

	doc := store.docs[userID.String()]
	if doc == nil {
		t.Fatal("user doc missing")
	}
	if doc.Email != "shop@example.com" || doc.Role != string(domain.RoleGarage) {
		t.Fatalf("doc: %+v", doc)
	}
	if !doc.RegisteredAt.Equal(ev.OccurredAt) {
		t.Fatalf("registered at: want=%v got=%v", ev.OccurredAt, doc.RegisteredAt)
	}
}
