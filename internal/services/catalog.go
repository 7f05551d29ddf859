package services

import (
	"context"

	"github.com/google/uuid"

	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/repos"
)

type CreatePartRequest struct {
	Reference     string
	Name          string
	Description   string
	Category      string
	Brand         string
	PriceAmount   int64
	PriceCurrency string
	InitialStock  int
	Vehicles      []domainagg.VehicleInput
}

type UpdatePartRequest struct {
	Name          string
	Description   string
	Category      string
	Brand         string
	PriceAmount   int64
	PriceCurrency string
	Vehicles      []domainagg.VehicleInput
}

// CatalogService runs supplier part commands. The calling supplier must own
// the part; foreign parts read as not found rather than forbidden.
type CatalogService interface {
	CreatePart(ctx context.Context, supplierID uuid.UUID, in CreatePartRequest) (domainagg.PartSnapshot, error)
	UpdatePart(ctx context.Context, supplierID, partID uuid.UUID, in UpdatePartRequest) (domainagg.PartSnapshot, error)
	AddStock(ctx context.Context, supplierID, partID uuid.UUID, quantity int) (domainagg.PartSnapshot, error)
	ReserveStock(ctx context.Context, supplierID, partID uuid.UUID, quantity int) (domainagg.PartSnapshot, error)
	ReleaseStock(ctx context.Context, supplierID, partID uuid.UUID, quantity int) (domainagg.PartSnapshot, error)
}

type catalogService struct {
	parts     repos.PartRepo
	aggregate domainagg.PartAggregate
	log       *logger.Logger
}

func NewCatalogService(parts repos.PartRepo, aggregate domainagg.PartAggregate, baseLog *logger.Logger) CatalogService {
	return &catalogService{
		parts:     parts,
		aggregate: aggregate,
		log:       baseLog.With("service", "CatalogService"),
	}
}

func (s *catalogService) CreatePart(ctx context.Context, supplierID uuid.UUID, in CreatePartRequest) (domainagg.PartSnapshot, error) {
	return s.aggregate.Create(ctx, domainagg.CreatePartInput{
		Reference:     in.Reference,
		Name:          in.Name,
		Description:   in.Description,
		Category:      in.Category,
		Brand:         in.Brand,
		PriceAmount:   in.PriceAmount,
		PriceCurrency: in.PriceCurrency,
		InitialStock:  in.InitialStock,
		SupplierID:    supplierID,
		Vehicles:      in.Vehicles,
	})
}

func (s *catalogService) UpdatePart(ctx context.Context, supplierID, partID uuid.UUID, in UpdatePartRequest) (domainagg.PartSnapshot, error) {
	if err := s.checkOwnership(ctx, supplierID, partID, "Catalog.Part.Update"); err != nil {
		return domainagg.PartSnapshot{}, err
	}
	return s.aggregate.Update(ctx, domainagg.UpdatePartInput{
		PartID:        partID,
		Name:          in.Name,
		Description:   in.Description,
		Category:      in.Category,
		Brand:         in.Brand,
		PriceAmount:   in.PriceAmount,
		PriceCurrency: in.PriceCurrency,
		Vehicles:      in.Vehicles,
	})
}

func (s *catalogService) AddStock(ctx context.Context, supplierID, partID uuid.UUID, quantity int) (domainagg.PartSnapshot, error) {
	return s.stockOp(ctx, supplierID, partID, quantity, "Catalog.Part.AddStock", s.aggregate.AddStock)
}

func (s *catalogService) ReserveStock(ctx context.Context, supplierID, partID uuid.UUID, quantity int) (domainagg.PartSnapshot, error) {
	return s.stockOp(ctx, supplierID, partID, quantity, "Catalog.Part.Reserve", s.aggregate.Reserve)
}

func (s *catalogService) ReleaseStock(ctx context.Context, supplierID, partID uuid.UUID, quantity int) (domainagg.PartSnapshot, error) {
	return s.stockOp(ctx, supplierID, partID, quantity, "Catalog.Part.Release", s.aggregate.Release)
}

func (s *catalogService) stockOp(ctx context.Context, supplierID, partID uuid.UUID, quantity int, op string, run func(context.Context, domainagg.StockInput) (domainagg.PartSnapshot, error)) (domainagg.PartSnapshot, error) {
	if err := s.checkOwnership(ctx, supplierID, partID, op); err != nil {
		return domainagg.PartSnapshot{}, err
	}
	return run(ctx, domainagg.StockInput{PartID: partID, Quantity: quantity})
}

func (s *catalogService) checkOwnership(ctx context.Context, supplierID, partID uuid.UUID, op string) error {
	part, err := s.parts.GetByID(dbctx.Context{Ctx: ctx}, partID)
	if err != nil {
		if repos.IsNotFound(err) {
			return domainagg.NewError(domainagg.CodeNotFound, op, "part not found", nil)
		}
		return domainagg.NewError(domainagg.CodeInternal, op, "load part", err)
	}
	if part.SupplierID != supplierID {
		return domainagg.NewError(domainagg.CodeNotFound, op, "part not found", nil)
	}
	return nil
}
