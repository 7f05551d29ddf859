package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	dataagg "github.com/gearstack/partsmarket-backend/internal/data/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/db"
	"github.com/gearstack/partsmarket-backend/internal/events"
	"github.com/gearstack/partsmarket-backend/internal/http/handlers"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/platform/mongodb"
	"github.com/gearstack/partsmarket-backend/internal/platform/neo4jdb"
	"github.com/gearstack/partsmarket-backend/internal/platform/redisbus"
	"github.com/gearstack/partsmarket-backend/internal/projections"
	"github.com/gearstack/partsmarket-backend/internal/queries"
	"github.com/gearstack/partsmarket-backend/internal/repos"
	"github.com/gearstack/partsmarket-backend/internal/server"
	"github.com/gearstack/partsmarket-backend/internal/services"
)

type App struct {
	cfg Config
	log *logger.Logger

	pg    *db.PostgresService
	mongo *mongodb.Client
	neo   *neo4jdb.Client
	bus   *redisbus.Bus

	metrics   *observability.Metrics
	router    *gin.Engine
	publisher *events.Publisher
	runner    *projections.Runner
	bindings  []projections.Binding

	shutdownTracing func(context.Context) error
}

type repoSet struct {
	users  repos.UserRepo
	parts  repos.PartRepo
	orders repos.OrderRepo
	outbox repos.OutboxRepo
}

type serviceSet struct {
	auth    services.AuthService
	catalog services.CatalogService
	orders  services.OrderService

	partQueries  queries.PartQueries
	orderQueries queries.OrderQueries
	graphQueries queries.GraphQueries
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, err
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, err
	}

	mongoClient, err := mongodb.NewFromEnv(log)
	if err != nil {
		return nil, err
	}
	if err := mongoClient.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	neoClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return nil, err
	}
	if err := neoClient.EnsureConstraints(ctx); err != nil {
		return nil, err
	}

	bus, err := redisbus.NewFromEnv(log)
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := observability.SetupTracing(ctx, log, "partsmarket-backend")
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()

	a := &App{
		cfg:             cfg,
		log:             log,
		pg:              pg,
		mongo:           mongoClient,
		neo:             neoClient,
		bus:             bus,
		metrics:         metrics,
		shutdownTracing: shutdownTracing,
	}

	r := a.wireRepos()
	s := a.wireServices(r)
	a.wireHandlers(r, s)
	a.wireWorkers(r)
	return a, nil
}

func (a *App) wireRepos() repoSet {
	gdb := a.pg.DB()
	return repoSet{
		users:  repos.NewUserRepo(gdb, a.log),
		parts:  repos.NewPartRepo(gdb, a.log),
		orders: repos.NewOrderRepo(gdb, a.log),
		outbox: repos.NewOutboxRepo(gdb, a.log),
	}
}

func (a *App) wireServices(r repoSet) serviceSet {
	base := dataagg.BaseDeps{
		DB:    a.pg.DB(),
		Log:   a.log,
		Hooks: dataagg.NewObservabilityHooks(a.metrics),
	}

	partAgg := dataagg.NewPartAggregate(dataagg.PartAggregateDeps{
		Base: base, Parts: r.parts, Outbox: r.outbox,
	})
	orderAgg := dataagg.NewOrderAggregate(dataagg.OrderAggregateDeps{
		Base: base, Orders: r.orders, Parts: r.parts, Outbox: r.outbox,
	})
	userAgg := dataagg.NewUserAggregate(dataagg.UserAggregateDeps{
		Base: base, Users: r.users, Outbox: r.outbox,
	})

	return serviceSet{
		auth:    services.NewAuthService(r.users, userAgg, a.cfg.JWTSecret, a.cfg.TokenTTL, a.log),
		catalog: services.NewCatalogService(r.parts, partAgg, a.log),
		orders:  services.NewOrderService(r.orders, orderAgg, a.log),

		partQueries:  queries.NewPartQueries(a.mongo, a.log),
		orderQueries: queries.NewOrderQueries(a.mongo, a.log),
		graphQueries: queries.NewGraphQueries(a.neo, a.log),
	}
}

func (a *App) wireHandlers(r repoSet, s serviceSet) {
	authHandler := handlers.NewAuthHandler(s.auth, a.log)
	partsHandler := handlers.NewPartsHandler(s.catalog, s.partQueries, a.log)
	ordersHandler := handlers.NewOrdersHandler(s.orders, s.orderQueries, a.log)
	opsHandler := handlers.NewOpsHandler(a.metrics, s.graphQueries, r.outbox, a.log)

	a.router = server.NewRouter(server.RouterDeps{
		Mode:           a.cfg.Mode,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Auth:           s.auth,
		AuthHandler:    authHandler,
		PartsHandler:   partsHandler,
		OrdersHandler:  ordersHandler,
		OpsHandler:     opsHandler,
	})
}

func (a *App) wireWorkers(r repoSet) {
	a.publisher = events.NewPublisher(r.outbox, a.bus, a.metrics, a.log, events.PublisherConfig{
		PollInterval: a.cfg.PublisherPollInterval,
		BatchSize:    a.cfg.PublisherBatchSize,
		MaxAttempts:  a.cfg.PublisherMaxAttempts,
		BackoffBase:  a.cfg.PublisherBackoffBase,
		BackoffMax:   a.cfg.PublisherBackoffMax,
	})

	ledger := projections.NewMongoLedger(a.mongo)
	partStore := projections.NewMongoPartStore(a.mongo)
	orderStore := projections.NewMongoOrderStore(a.mongo)
	userStore := projections.NewMongoUserStore(a.mongo)

	partRead := projections.NewPartRead(partStore, ledger, a.metrics, a.log)
	orderRead := projections.NewOrderRead(orderStore, partStore, ledger, a.metrics, a.log)
	userRead := projections.NewUserRead(userStore, ledger, a.metrics, a.log)
	graph := projections.NewGraph(projections.NewNeo4jExecutor(a.neo, a.log), a.metrics, a.log)

	a.runner = projections.NewRunner(a.bus, a.metrics, a.log)
	a.bindings = append([]projections.Binding{
		partRead.Binding(),
		orderRead.Binding(),
		userRead.Binding(),
	}, graph.Bindings()...)
}

// Run starts the HTTP server, the outbox publisher and the projection
// consumers, and blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + a.cfg.Port,
		Handler: a.router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", "port", a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := a.publisher.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	for _, binding := range a.bindings {
		b := binding
		g.Go(func() error {
			err := a.runner.Run(ctx, b)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

func (a *App) Close(ctx context.Context) {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Warn("tracing shutdown failed", "error", err)
		}
	}
	if err := a.bus.Close(); err != nil {
		a.log.Warn("redis close failed", "error", err)
	}
	if err := a.mongo.Close(ctx); err != nil {
		a.log.Warn("mongo disconnect failed", "error", err)
	}
	if err := a.neo.Close(ctx); err != nil {
		a.log.Warn("neo4j close failed", "error", err)
	}
}
