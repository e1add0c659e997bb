package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idle_tapper/internal/auth"
	"idle_tapper/internal/config"
	"idle_tapper/internal/db"
	"idle_tapper/internal/economy"
	"idle_tapper/internal/events"
	httpServer "idle_tapper/internal/http"
	"idle_tapper/internal/http/handlers"
	"idle_tapper/internal/http/middleware"
	"idle_tapper/internal/logger"
	"idle_tapper/internal/repository"
	"idle_tapper/internal/save"
	"idle_tapper/internal/service"
	"idle_tapper/internal/storage"
	"idle_tapper/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := storage.Open(storage.Options{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		DataDir:       cfg.DataDir,
	})
	if err != nil {
		logger.Fatal("open local store", "error", err)
	}
	defer kv.Close()
	if rkv, ok := kv.(*storage.RedisKV); ok {
		middleware.UseRedis(rkv.Client())
	}

	bus := events.NewBus()
	saveOpts := save.Options{
		Bus:          bus,
		SerialPolicy: economy.SerialPolicy(cfg.SerialPolicy),
	}

	// the database only backs the remote mirror and the leaderboard
	var pool *pgxpool.Pool
	var snapshots *repository.SnapshotRepository
	var audit *service.AuditService
	if cfg.DatabaseURL != "" {
		pool, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, remote mirror disabled", "error", err)
		} else {
			defer pool.Close()
			if applied, err := db.Migrate(ctx, pool); err != nil {
				logger.Warn("migrations failed", "error", err)
			} else {
				logger.Info("migrations applied", "count", len(applied))
			}
			snapshots = repository.NewSnapshotRepository(pool)
			saveOpts.Remote = snapshots
			audit = service.NewAuditService(repository.NewAuditRepository(pool))
		}
	}

	catalog := economy.DefaultCatalog()
	if cfg.CatalogPath != "" {
		data, err := os.ReadFile(cfg.CatalogPath)
		if err != nil {
			logger.Fatal("read catalog", "path", cfg.CatalogPath, "error", err)
		}
		if catalog, err = economy.ParseCatalog(data); err != nil {
			logger.Fatal("parse catalog", "path", cfg.CatalogPath, "error", err)
		}
	}
	econ := economy.New(catalog, economy.Rules{
		TapsPerCoupon:     cfg.TapsPerCoupon,
		MaxTapsPerRequest: cfg.MaxTapsPerRequest,
	}, nil, nil)

	sessions := service.NewSessions(kv, econ, saveOpts, service.Config{
		SaveDebounce: cfg.SaveDebounce,
		SaveMaxWait:  cfg.SaveMaxWait,
		TickInterval: cfg.TickInterval,
		IdleTimeout:  cfg.SessionIdle,
		ProductTag:   cfg.SerialProductTag,
	})
	sessions.Start(ctx)

	authn := auth.New(cfg.JWTSecret, cfg.BotToken, cfg.DevMode)
	hub := ws.NewHub(bus)

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler: handlers.NewHandler(sessions, authn, snapshots, audit),
		Health:  handlers.NewHealthHandler(pool, kv, sessions, version),
		Hub:     hub,
		Limits: httpServer.Limits{
			API:        cfg.APIRateLimit,
			APIWindow:  cfg.APIRateWindow,
			Auth:       cfg.AuthRateLimit,
			AuthWindow: cfg.AuthRateWindow,
			Tap:        cfg.TapRateLimit,
			TapWindow:  cfg.TapRateWindow,
		},
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	hub.CloseAll()

	// the session loop flushes every save once ctx is cancelled
	select {
	case <-sessions.Done():
	case <-shutdownCtx.Done():
		logger.Warn("timed out waiting for sessions to flush")
	}

	logger.Info("server exited")
}
