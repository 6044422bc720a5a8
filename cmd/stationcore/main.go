package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/tempestwx/stationcore/internal/api/http"
	"github.com/tempestwx/stationcore/internal/backfill"
	"github.com/tempestwx/stationcore/internal/config"
	"github.com/tempestwx/stationcore/internal/derive"
	"github.com/tempestwx/stationcore/internal/logging"
	"github.com/tempestwx/stationcore/internal/scheduler"
	"github.com/tempestwx/stationcore/internal/store"
)

const appName = "stationcore"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	log := logging.New(getenv("APP_ENV", "dev"), appName, version)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	tz := cfg.Location()

	// Historical observation client; disabled without a token.
	var history derive.History
	if cfg.BackfillToken != "" {
		httpClient := &http.Client{Timeout: cfg.BackfillTimeout}
		history = backfill.NewClient(httpClient, cfg.BackfillBaseURL, cfg.BackfillToken, tz)
	} else {
		log.Warn("no backfill token configured; trends and cold-start seeding disabled")
	}

	engine := derive.New(derive.Station{
		TempestID:        cfg.TempestID,
		SkyID:            cfg.SkyID,
		OutAirID:         cfg.OutAirID,
		InAirID:          cfg.InAirID,
		Elevation:        cfg.Elevation,
		TempestHeight:    cfg.TempestHeight,
		OutAirHeight:     cfg.OutAirHeight,
		TZ:               tz,
		FeelsLikeCutoffs: cfg.FeelsLikeCutoffs,
	}, history, nil, log)

	stationID := primaryDevice(cfg)

	// Snapshot persistence so restarts resume without a cold-start backfill.
	snapshots, err := store.Open(cfg.SnapshotPath)
	if err != nil {
		log.Error("failed to open snapshot store", "path", cfg.SnapshotPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = snapshots.Close() }()

	if stats, err := snapshots.Load(stationID); err == nil {
		engine.RestoreStats(stats)
		log.Info("rolling statistics restored", "station", stationID, "stats", len(stats))
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("snapshot restore failed", "station", stationID, "error", err)
	}

	sched := scheduler.New(stationID, cfg.SnapshotInterval, engine, snapshots, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start snapshot scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, engine, httpapi.DeviceMap{
		TempestID: cfg.TempestID,
		SkyID:     cfg.SkyID,
		OutAirID:  cfg.OutAirID,
		InAirID:   cfg.InAirID,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()
	log.Info("listening", "port", cfg.Port, "station", stationID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	// Persist one final snapshot so nothing accumulated since the last
	// scheduled run is lost.
	if err := snapshots.Save(stationID, engine.StatSnapshots()); err != nil {
		log.Warn("final snapshot persist failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// primaryDevice picks the identifier the snapshot store keys the station by.
func primaryDevice(cfg *config.AppConfig) string {
	for _, id := range []string{cfg.TempestID, cfg.SkyID, cfg.OutAirID, cfg.InAirID} {
		if id != "" {
			return id
		}
	}
	return "station"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
