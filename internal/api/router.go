package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/presenca/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/presenca/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/presenca/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/cloudsync"
	"github.com/saturnino-fabrica-de-software/presenca/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
	"github.com/saturnino-fabrica-de-software/presenca/internal/session"
	"github.com/saturnino-fabrica-de-software/presenca/internal/templatestore"
	"github.com/saturnino-fabrica-de-software/presenca/internal/ws"
)

type Dependencies struct {
	DB          *pgxpool.Pool
	Coordinator *session.Coordinator
	Attendance  *attendance.Service
	Pipeline    *pipeline.Pipeline
	Templates   *templatestore.Store
	SyncRepo    repository.SyncQueueRepositoryInterface
	SyncWorker  *cloudsync.Worker
	Hub         *ws.Hub
}

type Router struct {
	app              *fiber.App
	logger           *slog.Logger
	deps             *Dependencies
	cancelHub        context.CancelFunc
	cancelSyncWorker context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Presenca API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health endpoints
	var pinger handler.Pinger
	if r.deps != nil && r.deps.DB != nil {
		pinger = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(pinger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")

	if r.deps == nil {
		return
	}

	// Live dashboard feed
	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}

	// Cloud sync worker drains the durable queue beside the API
	if r.deps.SyncWorker != nil {
		syncCtx, syncCancel := context.WithCancel(context.Background())
		r.cancelSyncWorker = syncCancel
		go r.deps.SyncWorker.Run(syncCtx)
	}

	// Session routes
	sessionHandler := handler.NewSessionHandler(r.deps.Coordinator, r.deps.Attendance, r.deps.Hub, r.logger)
	v1.Post("/sessions", sessionHandler.Start)
	v1.Post("/sessions/end", sessionHandler.End)
	v1.Get("/sessions/active", sessionHandler.Active)
	v1.Get("/sessions/:id", sessionHandler.Get)
	v1.Get("/sessions/:id/attendance", sessionHandler.Attendance)

	// Recognition routes
	recognitionHandler := handler.NewRecognitionHandler(r.deps.Pipeline, r.deps.Templates, r.logger)
	v1.Get("/recognition/status", recognitionHandler.Status)
	v1.Get("/recognition/stream", recognitionHandler.Stream)
	v1.Post("/templates/reload", recognitionHandler.ReloadTemplates)

	// Sync routes
	syncHandler := handler.NewSyncHandler(r.deps.SyncRepo, r.deps.SyncWorker, r.logger)
	v1.Get("/sync/status", syncHandler.Status)
	v1.Get("/sync/failed", syncHandler.Failed)
	v1.Post("/sync/failed/:id/retry", syncHandler.Retry)
	v1.Post("/sync/flush", syncHandler.Flush)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.cancelHub != nil {
		r.cancelHub()
	}

	if r.cancelSyncWorker != nil {
		r.cancelSyncWorker()
	}

	return r.app.Shutdown()
}
