package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpx "github.com/gearstack/partsmarket-backend/internal/http"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/queries"
	"github.com/gearstack/partsmarket-backend/internal/repos"
)

// OpsHandler serves health, counters, graph stats and the outbox
// dead-letter inspection surface.
type OpsHandler struct {
	metrics *observability.Metrics
	graph   queries.GraphQueries
	outbox  repos.OutboxRepo
	log     *logger.Logger
}

func NewOpsHandler(metrics *observability.Metrics, graph queries.GraphQueries, outbox repos.OutboxRepo, baseLog *logger.Logger) *OpsHandler {
	return &OpsHandler{
		metrics: metrics,
		graph:   graph,
		outbox:  outbox,
		log:     baseLog.With("handler", "OpsHandler"),
	}
}

func (h *OpsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OpsHandler) Stats(c *gin.Context) {
	graphStats, err := h.graph.Stats(c.Request.Context())
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counters": h.metrics.Snapshot(),
		"graph":    graphStats,
	})
}

func (h *OpsHandler) DeadLetters(c *gin.Context) {
	rows, err := h.outbox.FindDeadLettered(c.Request.Context(), 100)
	if err != nil {
		httpx.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}
