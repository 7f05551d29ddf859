package aggregates

import (
	"context"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/repos"
)

type UserAggregateDeps struct {
	Base BaseDeps

	Users  repos.UserRepo
	Outbox repos.OutboxRepo
}

type userAggregate struct {
	deps UserAggregateDeps
}

func NewUserAggregate(deps UserAggregateDeps) domainagg.UserAggregate {
	deps.Base = deps.Base.withDefaults()
	return &userAggregate{deps: deps}
}

func (a *userAggregate) Contract() domainagg.Contract {
	return domainagg.UserAggregateContract
}

func (a *userAggregate) Register(ctx context.Context, in domainagg.RegisterUserInput) (domainagg.UserSnapshot, error) {
	const op = "Identity.User.Register"
	var out domainagg.UserSnapshot

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		// Friendly precheck; the unique index on email is the actual fence.
		exists, err := a.deps.Users.EmailExists(dbc, in.Email.String())
		if err != nil {
			return err
		}
		if exists {
			return domainagg.NewError(domainagg.CodeConflict, op, "email already registered", nil)
		}
		user, err := domain.RegisterUser(in.Email, in.PasswordHash, in.CompanyName, in.Role)
		if err != nil {
			return err
		}
		if err := a.deps.Users.Create(dbc, user); err != nil {
			return err
		}
		if err := a.deps.Outbox.Append(dbc, user.PendingEvents()); err != nil {
			return err
		}
		user.ClearPendingEvents()
		out = domainagg.UserSnapshot{
			ID:          user.ID,
			Email:       user.Email.String(),
			CompanyName: user.CompanyName,
			Role:        string(user.Role),
		}
		return nil
	})
	return out, err
}
