package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/controllers"
	container "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Container"
	graph "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Graph"
	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	ingest "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Ingest"
	report "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Report"
	implementation "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Repository/Implementation"
	timewindow "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Timewindow"

	// Auth imports
	authService "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/implementation/auth"
	jwt "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/implementation/jwt"
	authMiddleware "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/middleware"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting Dashboard API Service")

	// Connect to MongoDB
	db, err := ctr.GetDatabase()
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to MongoDB")
	}

	// Create repositories
	boardRepo := implementation.NewMongoBoardRepository(db)
	settingsRepo := implementation.NewMongoSettingsRepository(db)
	userRepo := implementation.NewMongoUserRepository(db)

	// Get configuration
	config := ctr.GetConfig()

	// Reporting-day resolver
	resolver, err := timewindow.NewResolver(config.Window)
	if err != nil {
		logger.FatalWithError(err, "Failed to initialize reporting window resolver")
	}

	// Live channel hub and domain services
	liveHub := hub.NewHub(logger)
	graphFeed := graph.NewFeed(boardRepo, liveHub, resolver, logger)
	ingestService := ingest.NewService(boardRepo, liveHub, graphFeed, logger)
	reportService := report.NewService(graphFeed, resolver, config.Report, logger)

	// Initialize JWT service for token validation
	jwtService := jwt.NewService(config.Auth)

	// Create auth middleware
	authMiddlewareInstance := authMiddleware.NewAuthMiddleware(jwtService, authMiddleware.DefaultConfig())

	// Initialize auth service
	authServiceInstance := authService.NewAuthService(userRepo, jwtService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Create controllers and register routes
	boardController := controllers.NewBoardController(ingestService, liveHub, config.Hub, logger)
	graphController := controllers.NewGraphController(graphFeed, liveHub, config.Hub, resolver, logger)
	settingsController := controllers.NewSettingsController(settingsRepo, ingestService, logger)
	userController := controllers.NewUserController(userRepo, authServiceInstance, logger, authMiddlewareInstance)
	reportController := controllers.NewReportController(reportService, logger)
	internalController := controllers.NewInternalController(ingestService, config.Auth.InternalAPISecret, logger)
	healthController := controllers.NewHealthController(ctr)

	boardController.RegisterRoutes(router)
	graphController.RegisterRoutes(router)
	settingsController.RegisterRoutes(router)
	userController.RegisterRoutes(router)
	reportController.RegisterRoutes(router)
	internalController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Get port from configuration
	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("Dashboard API service running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
