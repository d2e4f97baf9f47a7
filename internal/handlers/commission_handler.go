package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/jobs"
	"github.com/partnerledger/backend/internal/models"
	"github.com/partnerledger/backend/internal/services/commission"
	"github.com/shopspring/decimal"
)

// CommissionHandler handles commission ledger requests
type CommissionHandler struct {
	commissionService *commission.CommissionService
	commissionJob     *jobs.CommissionJob
}

// NewCommissionHandler creates a new commission handler
func NewCommissionHandler(commissionService *commission.CommissionService, commissionJob *jobs.CommissionJob) *CommissionHandler {
	return &CommissionHandler{
		commissionService: commissionService,
		commissionJob:     commissionJob,
	}
}

// RunMonthlyBatch enqueues a commission batch run. An explicit month in the
// body is a backfill or reprocessing run; idempotency makes both safe.
func (h *CommissionHandler) RunMonthlyBatch(c *gin.Context) {
	var input struct {
		MonthReference string `json:"month_reference"`
	}
	// Empty body means the current month
	_ = c.ShouldBindJSON(&input)

	jobID, err := h.commissionJob.EnqueueRun(input.MonthReference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// GetCommission gets a commission by ID
func (h *CommissionHandler) GetCommission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid commission ID"})
		return
	}

	row, err := h.commissionService.GetCommission(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

// GetCommissionsByPartner lists a partner's ledger rows
func (h *CommissionHandler) GetCommissionsByPartner(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	rows, err := h.commissionService.GetCommissionsByPartner(
		c.Request.Context(),
		partnerID,
		c.Query("month"),
		models.CommissionStatus(c.Query("status")),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// MarkAsPaid records a payout for a commission
func (h *CommissionHandler) MarkAsPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid commission ID"})
		return
	}

	var input struct {
		PaidAmount       decimal.Decimal `json:"paid_amount" binding:"required"`
		PaymentMethod    string          `json:"payment_method" binding:"required"`
		PaymentReference string          `json:"payment_reference"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := h.commissionService.MarkCommissionAsPaid(
		c.Request.Context(), id, input.PaidAmount, input.PaymentMethod, input.PaymentReference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

// Approve moves a pending commission to approved
func (h *CommissionHandler) Approve(c *gin.Context) {
	h.transition(c, h.commissionService.ApproveCommission)
}

// Cancel cancels a commission
func (h *CommissionHandler) Cancel(c *gin.Context) {
	h.transition(c, h.commissionService.CancelCommission)
}

// Dispute marks a commission disputed
func (h *CommissionHandler) Dispute(c *gin.Context) {
	h.transition(c, h.commissionService.DisputeCommission)
}

func (h *CommissionHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*models.Commission, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid commission ID"})
		return
	}

	row, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

// RecalculateAggregates re-derives a referral's aggregates from its ledger rows
func (h *CommissionHandler) RecalculateAggregates(c *gin.Context) {
	referralID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral ID"})
		return
	}

	ref, err := h.commissionService.RecalculateReferralAggregates(c.Request.Context(), referralID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ref)
}
