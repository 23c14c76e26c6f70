package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tridash/gateway/internal/api"
	"tridash/gateway/internal/cache"
	"tridash/gateway/internal/config"
	"tridash/gateway/internal/repository/mongo"
	"tridash/gateway/internal/service"
	"tridash/gateway/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"
)

// @title Training Dashboard Gateway API
// @version 1.0
// @description Gateway between the athlete dashboard and the training service: merged calendar reads, plan drafts, and the execution conflict gate.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Training Dashboard Gateway...")

	// A local .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env file.")
	}

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsurePlanDraftIndexes(ctx, appDB.Collection("plan_drafts"))
		log.Println("Index creation process completed.")
	}()

	// --- Upstream Client & Cache ---
	log.Println("Initializing training service client...")
	trainingAPI := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Token, cfg.Upstream.Timeout)

	seasonCache := cache.New(cfg.Cache.TTL)
	sweeper := cron.New()
	if err := sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.Cache.SweepInterval), func() {
		if evicted := seasonCache.Sweep(); evicted > 0 {
			log.Printf("Season cache sweep evicted %d entries.", evicted)
		}
	}); err != nil {
		log.Fatalf("FATAL: Could not schedule cache sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	draftRepo := mongo.NewMongoPlanDraftRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	calendarService := service.NewCalendarService(trainingAPI, seasonCache)
	planService := service.NewPlanService(trainingAPI, draftRepo, cfg.Plans.PollInterval, cfg.Plans.GenerationTimeout, cfg.Plans.DraftTTL)
	executionService := service.NewExecutionService(trainingAPI, draftRepo, seasonCache)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, calendarService, planService, executionService)

	// --- Start HTTP Server ---
	// The generate endpoint holds its response open while the backend job
	// runs, so the write timeout must outlast the generation timeout.
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Plans.GenerationTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
