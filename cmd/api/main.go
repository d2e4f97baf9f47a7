package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/partnerledger/backend/internal/config"
	"github.com/partnerledger/backend/internal/database"
	"github.com/partnerledger/backend/internal/jobs"
	"github.com/partnerledger/backend/internal/logger"
	"github.com/partnerledger/backend/internal/middleware"
	"github.com/partnerledger/backend/internal/pricing"
	"github.com/partnerledger/backend/internal/queue"
	"github.com/partnerledger/backend/internal/routes"
	"github.com/partnerledger/backend/internal/services/commission"
	"github.com/partnerledger/backend/internal/services/dashboard"
	"github.com/partnerledger/backend/internal/services/partner"
	"github.com/partnerledger/backend/internal/services/referral"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	// Initialize job queue
	jobQueue := queue.NewQueue(db, zlog)

	// Initialize services
	partnerService := partner.NewPartnerService(db)
	referralService := referral.NewReferralService(db)
	planLookup := pricing.NewDBLookup(db)
	commissionService := commission.NewCommissionService(
		db, planLookup, zlog, time.Duration(cfg.Batch.OperationTimeout)*time.Second)
	dashboardService := dashboard.NewDashboardService(db)

	// Register job handlers and start the queue processor
	commissionJob := jobs.RegisterCommissionJobHandlers(jobQueue, commissionService, zlog)
	jobQueue.StartProcessing()
	defer jobQueue.StopProcessing()

	// Schedule the monthly commission batch
	scheduler, err := jobs.StartScheduler(cfg.Batch.Schedule, commissionJob, zlog)
	if err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	rateLimiter := middleware.NewRateLimiter(20, 40)
	defer rateLimiter.Stop()

	// Register routes
	routes.RegisterRoutes(router, partnerService, referralService, commissionService, dashboardService, commissionJob, rateLimiter)

	zlog.Info("partner ledger API listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}
