package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/repos"
)

// Actor identifies the authenticated caller of an order command.
type Actor struct {
	UserID uuid.UUID
	Role   domain.UserRole
}

type OrderLineRequest struct {
	PartID   uuid.UUID
	Quantity int
}

type ChangeStatusRequest struct {
	OrderID uuid.UUID
	Target  string
	Reason  string
}

type OrderService interface {
	// CreateOrder places an order for the calling garage.
	CreateOrder(ctx context.Context, garageID uuid.UUID, lines []OrderLineRequest) (domainagg.OrderSnapshot, error)
	// ChangeStatus runs a transition after checking the actor may perform
	// it on this order.
	ChangeStatus(ctx context.Context, actor Actor, in ChangeStatusRequest) (domainagg.OrderSnapshot, error)
}

type orderService struct {
	orders    repos.OrderRepo
	aggregate domainagg.OrderAggregate
	log       *logger.Logger
}

func NewOrderService(orders repos.OrderRepo, aggregate domainagg.OrderAggregate, baseLog *logger.Logger) OrderService {
	return &orderService{
		orders:    orders,
		aggregate: aggregate,
		log:       baseLog.With("service", "OrderService"),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, garageID uuid.UUID, lines []OrderLineRequest) (domainagg.OrderSnapshot, error) {
	in := domainagg.CreateOrderInput{GarageID: garageID}
	for _, l := range lines {
		in.Lines = append(in.Lines, domainagg.OrderLineInput{PartID: l.PartID, Quantity: l.Quantity})
	}
	return s.aggregate.Create(ctx, in)
}

func (s *orderService) ChangeStatus(ctx context.Context, actor Actor, in ChangeStatusRequest) (domainagg.OrderSnapshot, error) {
	const op = "Orders.Order.ChangeStatus"

	target, err := domain.ParseOrderStatus(in.Target)
	if err != nil {
		return domainagg.OrderSnapshot{}, err
	}
	if err := s.authorize(ctx, actor, in.OrderID, target, op); err != nil {
		return domainagg.OrderSnapshot{}, err
	}
	return s.aggregate.ChangeStatus(ctx, domainagg.ChangeOrderStatusInput{
		OrderID: in.OrderID,
		Target:  string(target),
		Reason:  in.Reason,
	})
}

// authorize checks who may drive which transition: suppliers with a line in
// the order confirm and ship, the owning garage cancels and acknowledges
// delivery, admins do anything. The state machine itself runs inside the
// aggregate afterwards.
func (s *orderService) authorize(ctx context.Context, actor Actor, orderID uuid.UUID, target domain.OrderStatus, op string) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}

	order, err := s.orders.GetByID(dbctx.Context{Ctx: ctx}, orderID)
	if err != nil {
		if repos.IsNotFound(err) {
			return domainagg.NewError(domainagg.CodeNotFound, op, "order not found", nil)
		}
		return domainagg.NewError(domainagg.CodeInternal, op, "load order", err)
	}

	switch actor.Role {
	case domain.RoleGarage:
		if order.GarageID != actor.UserID {
			return domainagg.NewError(domainagg.CodeNotFound, op, "order not found", nil)
		}
		if target == domain.StatusCancelled || target == domain.StatusDelivered {
			return nil
		}
	case domain.RoleSupplier:
		if !orderHasSupplier(order, actor.UserID) {
			return domainagg.NewError(domainagg.CodeNotFound, op, "order not found", nil)
		}
		if target == domain.StatusConfirmed || target == domain.StatusShipped || target == domain.StatusCancelled {
			return nil
		}
	}
	return domainagg.NewError(domainagg.CodePreconditionFailed, op,
		"role "+string(actor.Role)+" may not set status "+string(target), nil)
}

func orderHasSupplier(order *domain.Order, supplierID uuid.UUID) bool {
	for _, line := range order.Lines {
		if line.SupplierID == supplierID {
			return true
		}
	}
	return false
}
