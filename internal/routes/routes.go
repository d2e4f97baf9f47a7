package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/partnerledger/backend/internal/handlers"
	"github.com/partnerledger/backend/internal/jobs"
	"github.com/partnerledger/backend/internal/middleware"
	"github.com/partnerledger/backend/internal/services/commission"
	"github.com/partnerledger/backend/internal/services/dashboard"
	"github.com/partnerledger/backend/internal/services/partner"
	"github.com/partnerledger/backend/internal/services/referral"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(
	router *gin.Engine,
	partnerService *partner.PartnerService,
	referralService *referral.ReferralService,
	commissionService *commission.CommissionService,
	dashboardService *dashboard.DashboardService,
	commissionJob *jobs.CommissionJob,
	rateLimiter *middleware.RateLimiter,
) {
	partnerHandler := handlers.NewPartnerHandler(partnerService)
	referralHandler := handlers.NewReferralHandler(referralService)
	commissionHandler := handlers.NewCommissionHandler(commissionService, commissionJob)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	api := router.Group("/api")
	api.Use(rateLimiter.Middleware(), middleware.AuthMiddleware())

	// Partner registry
	partnerGroup := api.Group("/partners")
	{
		partnerGroup.POST("", partnerHandler.CreatePartner)
		partnerGroup.GET("", partnerHandler.ListPartners)
		partnerGroup.GET("/by-code/:code", partnerHandler.GetPartnerByCode)
		partnerGroup.GET("/:id", partnerHandler.GetPartner)
		partnerGroup.POST("/:id/approve", middleware.AdminMiddleware(), partnerHandler.ApprovePartner)
		partnerGroup.POST("/:id/suspend", middleware.AdminMiddleware(), partnerHandler.SuspendPartner)
		partnerGroup.POST("/:id/reactivate", middleware.AdminMiddleware(), partnerHandler.ReactivatePartner)
		partnerGroup.PUT("/:id/commission-rate", middleware.AdminMiddleware(), partnerHandler.UpdateCommissionRate)
		partnerGroup.PUT("/:id/payout-details", partnerHandler.UpdatePayoutDetails)
		partnerGroup.DELETE("/:id", middleware.AdminMiddleware(), partnerHandler.DeletePartner)

		partnerGroup.GET("/:id/referrals", referralHandler.GetReferralsByPartner)
		partnerGroup.GET("/:id/commissions", commissionHandler.GetCommissionsByPartner)
		partnerGroup.GET("/:id/dashboard", dashboardHandler.GetPartnerDashboard)
	}

	// Referral attribution
	referralGroup := api.Group("/referrals")
	{
		referralGroup.POST("", referralHandler.CreateReferral)
		referralGroup.GET("/by-tenant/:tenantID", referralHandler.GetReferralByTenant)
		referralGroup.GET("/:id", referralHandler.GetReferral)
		referralGroup.POST("/:id/activate", referralHandler.ActivateReferral)
		referralGroup.POST("/:id/churn", referralHandler.ChurnReferral)
		referralGroup.POST("/:id/suspend", referralHandler.SuspendReferral)
		referralGroup.POST("/:id/recalculate", middleware.AdminMiddleware(), commissionHandler.RecalculateAggregates)
	}

	// Commission ledger
	commissionGroup := api.Group("/commissions")
	{
		commissionGroup.POST("/run", middleware.AdminMiddleware(), commissionHandler.RunMonthlyBatch)
		commissionGroup.GET("/:id", commissionHandler.GetCommission)
		commissionGroup.POST("/:id/pay", middleware.AdminMiddleware(), commissionHandler.MarkAsPaid)
		commissionGroup.POST("/:id/approve", middleware.AdminMiddleware(), commissionHandler.Approve)
		commissionGroup.POST("/:id/cancel", middleware.AdminMiddleware(), commissionHandler.Cancel)
		commissionGroup.POST("/:id/dispute", middleware.AdminMiddleware(), commissionHandler.Dispute)
	}

	// Reporting
	api.GET("/admin/summary", middleware.AdminMiddleware(), dashboardHandler.GetGlobalSummary)
}
