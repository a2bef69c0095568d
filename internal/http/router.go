package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/auth"
	"github.com/Valerijkk/defect-tracker-lite/internal/cache"
	"github.com/Valerijkk/defect-tracker-lite/internal/config"
	"github.com/Valerijkk/defect-tracker-lite/internal/http/handlers"
	"github.com/Valerijkk/defect-tracker-lite/internal/http/middlewares"
	"github.com/Valerijkk/defect-tracker-lite/internal/observability"
	"github.com/Valerijkk/defect-tracker-lite/internal/repo/postgres"
	"github.com/Valerijkk/defect-tracker-lite/internal/uploads"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config, summary cache.SummaryCache, prom *observability.Prom) (*gin.Engine, error) {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(otelgin.Middleware("defect-tracker"))

	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	projectsRepo := postgres.NewProjectsRepo(pool, prom)
	defectsRepo := postgres.NewDefectsRepo(pool, prom)

	uploadStore, err := uploads.NewStore(cfg.UploadDir)

	if err != nil {
		return nil, err
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiresDays)*24*time.Hour)
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager)
	projectsHandler := handlers.NewProjectsHandler(projectsRepo)
	defectsHandler := handlers.NewDefectsHandler(defectsRepo, projectsRepo, summary)
	reportsHandler := handlers.NewReportsHandler(defectsRepo, summary)
	uploadsHandler := handlers.NewUploadsHandler(uploadStore, prom)

	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(cfg.MaxUploadBytes))

	authGroup := api.Group("/auth")
	authGroup.Use(middlewares.RequireJSON())
	authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.POST("/register", authHandler.Register)

	protected := api.Group("")
	protected.Use(authMw.RequireAuth())

	jsonProtected := protected.Group("")
	jsonProtected.Use(middlewares.RequireJSON())

	jsonProtected.GET("/projects", projectsHandler.List)
	jsonProtected.POST("/projects", authMw.RequireRole("manager"), projectsHandler.Create)

	jsonProtected.GET("/defects", defectsHandler.List)
	jsonProtected.POST("/defects", defectsHandler.Create)
	jsonProtected.PATCH("/defects/:id", defectsHandler.Update)

	jsonProtected.GET("/reports/summary", reportsHandler.Summary)

	// multipart, so outside the JSON-only group
	protected.POST("/upload", uploadsHandler.Upload)

	r.GET("/uploads/:name", uploadsHandler.Serve)

	log.Debug("router configured")

	return r, nil
}
