package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"jobleads/internal/api/routes"
	"jobleads/internal/app"
	"jobleads/internal/background"
	"jobleads/internal/config"
	"jobleads/internal/grpc/server"
	"jobleads/internal/logging"
	"jobleads/internal/mux"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()
	logger := logging.GetGlobalLogger()
	logger.Info("Starting job contact enrichment service", map[string]interface{}{})

	application, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build enrichment pipeline", map[string]interface{}{"error": err.Error()})
	}

	state := background.NewAutomationState()
	taskManager := background.NewTaskManager(cfg.BackgroundTasks, state, application.Orchestrator, logger)
	if err := taskManager.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start task manager", map[string]interface{}{"error": err.Error()})
	}

	e := echo.New()
	e.HideBanner = true
	routes.SetupRoutes(e, cfg, routes.Dependencies{
		Enricher: application.Orchestrator,
		Tasks:    taskManager,
		Browser:  application.Session,
		Hosts:    application.Limiter,
		Sink:     application.Sink,
		Logger:   logger,
	})

	grpcServer := server.NewServer(map[string]server.Probe{
		"tasks": taskManager.IsHealthy,
		"browser": func() bool {
			return application.Session.Metrics().Launches == 0 || application.Session.Healthy()
		},
	}, logger)

	multiplexer := mux.NewMultiplexer(cfg, grpcServer, e, logger)
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := multiplexer.Start(address); err != nil {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...", map[string]interface{}{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := multiplexer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping multiplexer", map[string]interface{}{"error": err.Error()})
	}
	if err := taskManager.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping task manager", map[string]interface{}{"error": err.Error()})
	}
	if err := application.Close(); err != nil {
		logger.Error("Error releasing resources", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server shutdown complete", map[string]interface{}{})
}
