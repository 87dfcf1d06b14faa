// Package router assembles the gin engine and owns the HTTP server
// lifecycle.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openprocure/tenderisk/internal/config"
	"github.com/openprocure/tenderisk/internal/interfaces/http/handlers"
	"github.com/openprocure/tenderisk/internal/interfaces/http/middleware"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// Router wires handlers into the gin engine and runs the HTTP server.
type Router struct {
	engine          *gin.Engine
	config          *config.Config
	log             logger.Logger
	analysisHandler *handlers.AnalysisHandler
	healthHandler   *handlers.HealthHandler
	server          *http.Server
}

// NewRouter creates the router.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	analysisHandler *handlers.AnalysisHandler,
	healthHandler *handlers.HealthHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	return &Router{
		engine:          gin.New(),
		config:          cfg,
		log:             log.WithComponent("router"),
		analysisHandler: analysisHandler,
		healthHandler:   healthHandler,
	}
}

// SetupRoutes registers middleware and routes.
func (r *Router) SetupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.AccessLog(r.log))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))

	r.engine.GET("/health/live", r.healthHandler.LivenessCheck)
	r.engine.GET("/health/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(r.engine)

	v1 := r.engine.Group("/api/v1")
	{
		analyses := v1.Group("/analyses")
		{
			analyses.POST("", r.analysisHandler.Create)
			analyses.GET("/:id", r.analysisHandler.Get)
			analyses.PUT("/:id/threshold", r.analysisHandler.Rethreshold)
			analyses.GET("/:id/report", r.analysisHandler.Report)
			analyses.GET("/:id/export", r.analysisHandler.Export)
			analyses.POST("/:id/records/:contract_id/explanation", r.analysisHandler.Explain)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "the requested resource was not found",
		})
	})
}

// Start runs the HTTP server until it is shut down.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := r.config.Server.Addr()
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.log.Info(context.Background(), "starting http server", logger.String("address", addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.log.Info(ctx, "stopping http server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
