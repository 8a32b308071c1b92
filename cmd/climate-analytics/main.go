package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/earthscape/climate-analytics/internal/api/http"
	"github.com/earthscape/climate-analytics/internal/app"
	"github.com/earthscape/climate-analytics/internal/config"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dataset, model slot, services and scheduler, built once.
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise application: %v", err)
	}
	if err := application.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer application.Close()

	// Basic app configuration. Rendering and training can take a while.
	router := fiber.New(fiber.Config{
		AppName:               "climate-analytics",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	router.Use(logger.New())
	router.Use(recover.New())

	// Basic health endpoint
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"service":      "climate-analytics",
			"dataset_rows": application.Dataset.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(router, application)

	go func() {
		if err := router.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
