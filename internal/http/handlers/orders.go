package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	httpx "github.com/gearstack/partsmarket-backend/internal/http"
	"github.com/gearstack/partsmarket-backend/internal/http/middleware"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/queries"
	"github.com/gearstack/partsmarket-backend/internal/services"
)

type OrdersHandler struct {
	orders services.OrderService
	reads  queries.OrderQueries
	log    *logger.Logger
}

func NewOrdersHandler(orders services.OrderService, reads queries.OrderQueries, baseLog *logger.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders: orders,
		reads:  reads,
		log:    baseLog.With("handler", "OrdersHandler"),
	}
}

type orderLineRequest struct {
	PartID   uuid.UUID `json:"partId" binding:"required"`
	Quantity int       `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	Lines []orderLineRequest `json:"lines" binding:"required"`
}

func (h *OrdersHandler) Create(c *gin.Context) {
	garageID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lines := make([]services.OrderLineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, services.OrderLineRequest{PartID: l.PartID, Quantity: l.Quantity})
	}
	snapshot, err := h.orders.CreateOrder(c.Request.Context(), garageID, lines)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *OrdersHandler) ChangeStatus(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	role, _ := middleware.CallerRole(c)
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snapshot, err := h.orders.ChangeStatus(c.Request.Context(),
		services.Actor{UserID: userID, Role: role},
		services.ChangeStatusRequest{OrderID: orderID, Target: req.Status, Reason: req.Reason})
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *OrdersHandler) GetByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	doc, err := h.reads.GetByID(c.Request.Context(), orderID)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListMine returns the calling garage's orders from the read model.
func (h *OrdersHandler) ListMine(c *gin.Context) {
	garageID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	page, limit := pageParams(c)
	docs, total, err := h.reads.ListByGarage(c.Request.Context(), garageID, c.Query("status"), page, limit)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": docs, "total": total, "page": page, "limit": limit})
}

// ListForSupplier returns orders containing at least one of the calling
// supplier's lines.
func (h *OrdersHandler) ListForSupplier(c *gin.Context) {
	supplierID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	page, limit := pageParams(c)
	docs, total, err := h.reads.ListBySupplier(c.Request.Context(), supplierID, c.Query("status"), page, limit)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": docs, "total": total, "page": page, "limit": limit})
}

func (h *OrdersHandler) TopSuppliers(c *gin.Context) {
	garageID, ok := middleware.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	_, limit := pageParams(c)
	rows, err := h.reads.TopSuppliers(c.Request.Context(), garageID, limit)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}
