package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/http/handlers"
	"github.com/gearstack/partsmarket-backend/internal/http/middleware"
	"github.com/gearstack/partsmarket-backend/internal/services"
)

type RouterDeps struct {
	Mode           string
	AllowedOrigins []string
	Auth           services.AuthService

	AuthHandler   *handlers.AuthHandler
	PartsHandler  *handlers.PartsHandler
	OrdersHandler *handlers.OrdersHandler
	OpsHandler    *handlers.OpsHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("partsmarket-backend"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", deps.OpsHandler.Health)

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.POST("/login", deps.AuthHandler.Login)
	}

	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(deps.Auth))
	{
		// Catalog reads are open to any authenticated user.
		authed.GET("/parts", deps.PartsHandler.Search)
		authed.GET("/parts/:id", deps.PartsHandler.GetByID)

		supplier := authed.Group("")
		supplier.Use(middleware.RequireRole(domain.RoleSupplier))
		{
			supplier.POST("/parts", deps.PartsHandler.Create)
			supplier.PUT("/parts/:id", deps.PartsHandler.Update)
			supplier.POST("/parts/:id/stock/add", deps.PartsHandler.AddStock)
			supplier.POST("/parts/:id/stock/reserve", deps.PartsHandler.ReserveStock)
			supplier.POST("/parts/:id/stock/release", deps.PartsHandler.ReleaseStock)
			supplier.GET("/suppliers/me/parts", deps.PartsHandler.ListMine)
			supplier.GET("/suppliers/me/orders", deps.OrdersHandler.ListForSupplier)
		}

		garage := authed.Group("")
		garage.Use(middleware.RequireRole(domain.RoleGarage))
		{
			garage.POST("/orders", deps.OrdersHandler.Create)
			garage.GET("/orders", deps.OrdersHandler.ListMine)
			garage.GET("/garages/me/top-suppliers", deps.OrdersHandler.TopSuppliers)
		}

		// Transitions are open to both roles; the service decides who may
		// drive which one.
		authed.POST("/orders/:id/status", deps.OrdersHandler.ChangeStatus)
		authed.GET("/orders/:id", deps.OrdersHandler.GetByID)

		authed.GET("/stats", deps.OpsHandler.Stats)

		admin := authed.Group("")
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		{
			admin.GET("/ops/outbox/dead-letters", deps.OpsHandler.DeadLetters)
		}
	}

	return r
}
