package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/criticaltracks/internal/adapters/http"
	natsadapter "github.com/samirrijal/criticaltracks/internal/adapters/nats"
	"github.com/samirrijal/criticaltracks/internal/adapters/store"
	"github.com/samirrijal/criticaltracks/internal/adapters/valkey"
	"github.com/samirrijal/criticaltracks/internal/core/ports"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
	"github.com/samirrijal/criticaltracks/internal/pkg/config"
	"github.com/samirrijal/criticaltracks/internal/pkg/logging"
	"github.com/samirrijal/criticaltracks/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("criticaltracks-api", nil)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	snapshots, err := store.OpenReadOnly(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer snapshots.Close()

	deps := &http.Dependencies{Store: snapshots}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
			deps.Cache = vc
		}
	}

	// NATS: run requests out, WebSocket relay in
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			deps.Runs = pub
		}

		// Separate connection for the WebSocket relay
		nc, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer nc.Close()
			deps.NATS = nc
		}
	}

	filter, err := usecases.NewDensityFilter(cfg.Filter)
	if err != nil {
		log.Fatalf("filter: %v", err)
	}
	deps.Analysis = usecases.NewAnalysisService(snapshots, filter, http.AnalysisOptions(cfg.Pipeline), cache, nil)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Critical Tracks API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", cfg.Store.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
