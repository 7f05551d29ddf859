package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	httpx "github.com/gearstack/partsmarket-backend/internal/http"
	"github.com/gearstack/partsmarket-backend/internal/http/middleware"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/queries"
	"github.com/gearstack/partsmarket-backend/internal/services"
)

type PartsHandler struct {
	catalog services.CatalogService
	reads   queries.PartQueries
	log     *logger.Logger
}

func NewPartsHandler(catalog services.CatalogService, reads queries.PartQueries, baseLog *logger.Logger) *PartsHandler {
	return &PartsHandler{
		catalog: catalog,
		reads:   reads,
		log:     baseLog.With("handler", "PartsHandler"),
	}
}

type vehicleRequest struct {
	Brand      string `json:"brand" binding:"required"`
	Model      string `json:"model" binding:"required"`
	YearFrom   int    `json:"yearFrom" binding:"required"`
	YearTo     int    `json:"yearTo" binding:"required"`
	EngineCode string `json:"engineCode"`
}

type createPartRequest struct {
	Reference     string           `json:"reference" binding:"required"`
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category" binding:"required"`
	Brand         string           `json:"brand"`
	PriceAmount   int64            `json:"priceAmount" binding:"required"`
	PriceCurrency string           `json:"priceCurrency" binding:"required"`
	InitialStock  int              `json:"initialStock"`
	Vehicles      []vehicleRequest `json:"vehicles"`
}

func (h *PartsHandler) Create(c *gin.Context) {
	supplierID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req createPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snapshot, err := h.catalog.CreatePart(c.Request.Context(), supplierID, services.CreatePartRequest{
		Reference:     req.Reference,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Brand:         req.Brand,
		PriceAmount:   req.PriceAmount,
		PriceCurrency: req.PriceCurrency,
		InitialStock:  req.InitialStock,
		Vehicles:      vehicleInputs(req.Vehicles),
	})
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

type updatePartRequest struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category" binding:"required"`
	Brand         string           `json:"brand"`
	PriceAmount   int64            `json:"priceAmount" binding:"required"`
	PriceCurrency string           `json:"priceCurrency" binding:"required"`
	Vehicles      []vehicleRequest `json:"vehicles"`
}

func (h *PartsHandler) Update(c *gin.Context) {
	supplierID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	partID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid part id"})
		return
	}
	var req updatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snapshot, err := h.catalog.UpdatePart(c.Request.Context(), supplierID, partID, services.UpdatePartRequest{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Brand:         req.Brand,
		PriceAmount:   req.PriceAmount,
		PriceCurrency: req.PriceCurrency,
		Vehicles:      vehicleInputs(req.Vehicles),
	})
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type stockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *PartsHandler) AddStock(c *gin.Context) {
	h.stockOp(c, h.catalog.AddStock)
}

func (h *PartsHandler) ReserveStock(c *gin.Context) {
	h.stockOp(c, h.catalog.ReserveStock)
}

func (h *PartsHandler) ReleaseStock(c *gin.Context) {
	h.stockOp(c, h.catalog.ReleaseStock)
}

func (h *PartsHandler) stockOp(c *gin.Context, run func(ctx context.Context, supplierID, partID uuid.UUID, quantity int) (domainagg.PartSnapshot, error)) {
	supplierID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	partID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid part id"})
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snapshot, err := run(c.Request.Context(), supplierID, partID, req.Quantity)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func vehicleInputs(in []vehicleRequest) []domainagg.VehicleInput {
	out := make([]domainagg.VehicleInput, 0, len(in))
	for _, v := range in {
		out = append(out, domainagg.VehicleInput{
			Brand:      v.Brand,
			Model:      v.Model,
			YearFrom:   v.YearFrom,
			YearTo:     v.YearTo,
			EngineCode: v.EngineCode,
		})
	}
	return out
}

func (h *PartsHandler) GetByID(c *gin.Context) {
	partID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid part id"})
		return
	}
	doc, err := h.reads.GetByID(c.Request.Context(), partID)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "part not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *PartsHandler) Search(c *gin.Context) {
	page, limit := pageParams(c)
	in := queries.SearchPartsInput{
		Text:     c.Query("q"),
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	}
	if raw := c.Query("supplierId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
			return
		}
		in.SupplierID = &id
	}
	docs, total, err := h.reads.Search(c.Request.Context(), in)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": docs, "total": total, "page": page, "limit": limit})
}

func (h *PartsHandler) ListMine(c *gin.Context) {
	supplierID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	page, limit := pageParams(c)
	docs, total, err := h.reads.ListBySupplier(c.Request.Context(), supplierID, page, limit)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": docs, "total": total, "page": page, "limit": limit})
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
