package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	appconfig "github.com/sp201004/CollabCanvas/backend/go/internal/v1/config"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/health"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/middleware"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/ratelimit"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/room"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/session"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/store"
	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/tracing"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	cfg, err := appconfig.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	// --- Optional Tracing ---
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(context.Background(), "canvas-backend", cfg.OTLPEndpoint)
		if err != nil {
			slog.Error("Failed to initialize tracing", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
			slog.Info("✅ Tracing initialized", "endpoint", cfg.OTLPEndpoint)
		}
	}

	// --- Wire Core Dependencies ---
	persistence, err := store.NewPersistence(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open snapshot store", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}

	registry := room.NewRegistry(persistence, cfg.CleanupGracePeriod)
	hub := session.NewHub(registry, cfg.AllowedOrigins, cfg.CursorThrottle)

	rateLimiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		slog.Error("Failed to configure rate limiter", "error", err)
		os.Exit(1)
	}

	// --- Set up Server ---
	if !cfg.DevelopmentMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	if cfg.OTLPEndpoint != "" {
		router.Use(otelgin.Middleware("canvas-backend"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	router.Use(cors.New(corsConfig))

	// Routing
	router.GET("/socket.io", hub.ServeWs)

	api := router.Group("/api", rateLimiter.GlobalMiddleware())
	{
		healthHandler := health.NewHandler(cfg.DataDir)
		api.GET("/health", rateLimiter.PublicMiddleware(), healthHandler.Check)
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// --- Listen ---
	// Prefer the configured port; when it is taken, fall back to an
	// OS-assigned one and log the choice.
	listener, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		slog.Warn("Configured port unavailable, falling back to OS-assigned port",
			"port", cfg.Port, "error", err)
		listener, err = net.Listen("tcp", ":0")
		if err != nil {
			slog.Error("Failed to listen", "error", err)
			os.Exit(1)
		}
	}
	port := listener.Addr().(*net.TCPAddr).Port
	slog.Info("API server starting", "port", port)

	srv := &http.Server{Handler: router}

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	hub.Shutdown(ctx)

	// Final snapshots so a clean restart never loses canvas state.
	if err := registry.Shutdown(ctx); err != nil {
		slog.Error("Failed to persist rooms on shutdown", "error", err)
	}
	if err := persistence.Flush(ctx); err != nil {
		slog.Error("Snapshot flush timed out", "error", err)
	}

	slog.Info("Server exiting")
}
