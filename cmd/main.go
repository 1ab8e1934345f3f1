package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vhvplatform/go-outreach-service/internal/consumer"
	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/handler"
	"github.com/vhvplatform/go-outreach-service/internal/middleware"
	"github.com/vhvplatform/go-outreach-service/internal/repository"
	"github.com/vhvplatform/go-outreach-service/internal/scheduler"
	"github.com/vhvplatform/go-outreach-service/internal/service"
	"github.com/vhvplatform/go-outreach-service/internal/shared/config"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
	"github.com/vhvplatform/go-outreach-service/internal/shared/mongodb"
	"github.com/vhvplatform/go-outreach-service/internal/shared/rabbitmq"
)

func main() {
	// Initialize logger
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting Outreach Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize RabbitMQ
	rabbitMQClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", "error", err)
	}
	defer rabbitMQClient.Close()

	// Initialize repositories
	identityRepo := repository.NewIdentityRepository(mongoClient)
	inviteRepo := repository.NewInviteRepository(mongoClient)
	workItemRepo := repository.NewWorkItemRepository(mongoClient)
	campaignRepo := repository.NewCampaignRepository(mongoClient)
	prospectRepo := repository.NewProspectRepository(mongoClient)
	auditRepo := repository.NewAuditRepository(mongoClient)

	// Ensure indexes, the work item uniqueness guarantee depends on them
	indexCtx, indexCancel := context.WithTimeout(context.Background(), 30*time.Second)
	for name, ensure := range map[string]func(context.Context) error{
		"identities": identityRepo.EnsureIndexes,
		"invites":    inviteRepo.EnsureIndexes,
		"work_items": workItemRepo.EnsureIndexes,
		"campaigns":  campaignRepo.EnsureIndexes,
		"prospects":  prospectRepo.EnsureIndexes,
		"audit":      auditRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			log.Fatal("Failed to ensure indexes", "collection", name, "error", err)
		}
	}
	indexCancel()

	maxRetries := domain.DefaultSchedulingConfig().MaxRetries

	// Initialize services
	auditService := service.NewAuditService(auditRepo, log)
	healthTracker := service.NewHealthTracker(inviteRepo, cfg.Scheduling.PauseThreshold)
	loadBalancer := service.NewLoadBalancer(identityRepo, healthTracker, auditService, log, cfg.Scheduling.HealthFloor)
	bookingResolver := service.NewBookingResolver(log)
	schedulerService := service.NewSchedulerService(
		campaignRepo, prospectRepo, workItemRepo, identityRepo,
		loadBalancer, bookingResolver, auditService, log)
	dispatcher := service.NewDispatcher(workItemRepo, rabbitMQClient, log, cfg.Scheduling.DispatchBatchLimit, maxRetries)

	// Declare the send exchange before the first dispatch tick
	if err := rabbitMQClient.DeclareExchange(service.SendExchange, "topic"); err != nil {
		log.Fatal("Failed to declare send exchange", "error", err)
	}

	// Initialize background scheduler
	outreachScheduler := scheduler.NewOutreachScheduler(schedulerService, dispatcher, cfg.Scheduling, log)
	if err := outreachScheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler", "error", err)
	}
	defer outreachScheduler.Stop()

	// Initialize HTTP handlers
	campaignHandler := handler.NewCampaignHandler(schedulerService, workItemRepo, log)
	validationHandler := handler.NewValidationHandler(log)
	identityHandler := handler.NewIdentityHandler(identityRepo, healthTracker, loadBalancer, log)

	// Initialize rate limiter
	rateLimiter := middleware.NewAccountRateLimiter(cfg.Scheduling.RateLimitPerAcct, cfg.Scheduling.RateLimitBurst)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		// Campaigns
		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", campaignHandler.Create)
			campaigns.POST("/:id/run", campaignHandler.Run)
			campaigns.POST("/:id/pause", campaignHandler.Pause)
			campaigns.POST("/:id/resume", campaignHandler.Resume)
			campaigns.DELETE("/:id", campaignHandler.Delete)
			campaigns.GET("/:id/items", campaignHandler.ListItems)
		}

		// Configuration validation
		validation := v1.Group("/scheduling")
		{
			validation.POST("/validate", validationHandler.Validate)
			validation.GET("/presets", validationHandler.Presets)
		}

		// Sending identities
		identities := v1.Group("/identities")
		{
			identities.GET("", identityHandler.List)
			identities.POST("/:id/resume", identityHandler.Resume)
		}
	}

	// Start RabbitMQ result consumer
	resultConsumer := consumer.NewResultConsumer(rabbitMQClient, inviteRepo, workItemRepo, loadBalancer, log, maxRetries)
	go func() {
		if err := resultConsumer.Start(); err != nil {
			log.Error("Failed to start result consumer", "error", err)
		}
	}()

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Outreach Service started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Outreach Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Outreach Service stopped")
}
