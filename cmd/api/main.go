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

	"github.com/geowerks/specklegeo/internal/adapters/http"
	natsadapter "github.com/geowerks/specklegeo/internal/adapters/nats"
	"github.com/geowerks/specklegeo/internal/adapters/speckle"
	"github.com/geowerks/specklegeo/internal/adapters/valkey"
	"github.com/geowerks/specklegeo/internal/core/ports"
	"github.com/geowerks/specklegeo/internal/core/usecases"
	"github.com/geowerks/specklegeo/internal/pkg/config"
	"github.com/geowerks/specklegeo/internal/pkg/logging"
	"github.com/geowerks/specklegeo/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("specklegeo-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup("specklegeo-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		OTLPAddr:    cfg.Telemetry.OTLPAddr,
	})
	if err != nil {
		slog.Warn("telemetry init failed", "error", err)
	} else {
		defer telemetry.Shutdown(context.Background(), shutdownTracing)
	}

	// Speckle object store client
	store := speckle.New(speckle.Config{
		Timeout:        time.Duration(cfg.Speckle.Timeout) * time.Second,
		MaxObjectBytes: cfg.Speckle.MaxObjectMB * 1024 * 1024,
	})

	deps := &http.Dependencies{
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	// NATS (optional): conversion events + WebSocket relay
	var events ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			events = pub
			defer pub.Close()
		}

		nc, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			deps.NATS = nc
			defer nc.Close()
		}
	}

	// Valkey (optional): shared rate limiter storage
	if cfg.Valkey.Enabled {
		storage, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			deps.Limiter = storage
			defer storage.Close()
		}
	}

	deps.Conversions = usecases.NewConversionService(store, events, usecases.Options{
		DefaultLimit: cfg.Pipeline.DefaultLimit,
		MaxLimit:     cfg.Pipeline.MaxLimit,
		Prefetch:     cfg.Pipeline.Prefetch,
	})

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "SpeckleGeo API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
