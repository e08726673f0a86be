package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	httpapi "github.com/hdx-scrapers/icpac-cdi/internal/api/http"
	"github.com/hdx-scrapers/icpac-cdi/internal/config"
	"github.com/hdx-scrapers/icpac-cdi/internal/download"
	"github.com/hdx-scrapers/icpac-cdi/internal/scheduler"
	"github.com/hdx-scrapers/icpac-cdi/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingest on a schedule and serve run reports over HTTP",
	RunE:  serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// In-memory run history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	svc, err := newService(ctx, cfg, download.RetrieverConfig{}, memStore)
	if err != nil {
		return err
	}

	// Each run must finish before the next one is due.
	sched := scheduler.New(cfg.RunInterval, cfg.RunInterval, svc)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "icpac-cdi",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
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
			"service": "icpac-cdi",
		})
	})

	httpapi.RegisterRoutes(app, memStore)

	go func() {
		klog.InfoS("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			klog.ErrorS(err, "fiber server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		klog.ErrorS(err, "error during shutdown")
	}
	return nil
}
