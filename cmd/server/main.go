package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/patriciomferrari/finanzas-api/internal/auth"
	"github.com/patriciomferrari/finanzas-api/internal/database"
	"github.com/patriciomferrari/finanzas-api/internal/indicators"
	"github.com/patriciomferrari/finanzas-api/internal/positions"
	"github.com/patriciomferrari/finanzas-api/internal/rentals"
	"github.com/patriciomferrari/finanzas-api/internal/returns"
	"github.com/patriciomferrari/finanzas-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the accounting API server with graceful shutdown
// support. It sets up all services, the database connection and API routes.
func main() {
	// Initialize database
	db, err := database.NewDatabase()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(middleware.JWTSecret())
	authHandlers := auth.NewGinHandlers(authService)
	// Register demo credentials
	authService.RegisterAPICredentials(auth.DemoAPIKey, auth.DemoAPISecret)

	indicatorService := indicators.NewService(db)
	indicatorHandlers := indicators.NewGinHandlers(indicatorService)

	positionService := positions.NewService(db)
	positionHandlers := positions.NewGinHandlers(positionService)

	rentalService := rentals.NewService(db, indicatorService)
	rentalHandlers := rentals.NewGinHandlers(rentalService)

	returnService := returns.NewService(db)
	returnHandlers := returns.NewGinHandlers(returnService)

	// Create and start the background schedule processor
	scheduleProcessor := rentals.NewProcessor(rentalService)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go scheduleProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, authHandlers, indicatorHandlers, positionHandlers, rentalHandlers, returnHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Portfolio routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	indicatorHandlers *indicators.GinHandlers,
	positionHandlers *positions.GinHandlers,
	rentalHandlers *rentals.GinHandlers,
	returnHandlers *returns.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Portfolio routes
		portfolio := v1.Group("")
		portfolio.Use(middleware.JWTAuth())
		{
			portfolio.POST("/transactions", positionHandlers.CreateTransactionHandler())
			portfolio.GET("/positions/:instrument_id", positionHandlers.GetPositionsHandler())

			portfolio.POST("/contracts", rentalHandlers.CreateContractHandler())
			portfolio.GET("/contracts/:contract_id/schedule", rentalHandlers.GetScheduleHandler())

			portfolio.POST("/indicators", indicatorHandlers.CreateObservationHandler())

			portfolio.POST("/returns/xirr", returnHandlers.SolveHandler())
			portfolio.GET("/returns/instrument/:instrument_id", returnHandlers.InstrumentReturnHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth())
		{
			internal.POST("/positions/:instrument_id/compute", positionHandlers.ComputePositionsHandler())
			internal.POST("/schedules/:contract_id/regenerate", rentalHandlers.RegenerateScheduleHandler())
		}
	}
}
