package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/models"
	"github.com/partnerledger/backend/internal/services/partner"
	"github.com/shopspring/decimal"
)

// PartnerHandler handles channel partner requests
type PartnerHandler struct {
	partnerService *partner.PartnerService
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(partnerService *partner.PartnerService) *PartnerHandler {
	return &PartnerHandler{partnerService: partnerService}
}

// CreatePartner registers a new channel partner
func (h *PartnerHandler) CreatePartner(c *gin.Context) {
	var input struct {
		Type           models.PartnerType  `json:"type" binding:"required"`
		ContactName    string              `json:"contact_name" binding:"required"`
		CompanyName    string              `json:"company_name"`
		Email          string              `json:"email" binding:"required,email"`
		PhoneNumber    string              `json:"phone_number"`
		ReferralCode   string              `json:"referral_code"`
		CommissionRate *decimal.Decimal    `json:"commission_rate"`
		PayoutMethod   models.PayoutMethod `json:"payout_method"`
		PixKey         string              `json:"pix_key"`
		BankName       string              `json:"bank_name"`
		BankAccount    string              `json:"bank_account"`
		Notes          string              `json:"notes"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.partnerService.CreatePartner(c.Request.Context(), partner.CreatePartnerInput{
		Type:           input.Type,
		ContactName:    input.ContactName,
		CompanyName:    input.CompanyName,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		ReferralCode:   input.ReferralCode,
		CommissionRate: input.CommissionRate,
		PayoutMethod:   input.PayoutMethod,
		PixKey:         input.PixKey,
		BankName:       input.BankName,
		BankAccount:    input.BankAccount,
		Notes:          input.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// GetPartner gets a partner by ID
func (h *PartnerHandler) GetPartner(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	p, err := h.partnerService.GetPartner(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetPartnerByCode resolves a referral code to an active partner
func (h *PartnerHandler) GetPartnerByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "referral code required"})
		return
	}

	p, err := h.partnerService.GetPartnerByReferralCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListPartners lists partners with an optional status filter
func (h *PartnerHandler) ListPartners(c *gin.Context) {
	status := models.PartnerStatus(c.Query("status"))

	partners, err := h.partnerService.ListPartners(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, partners)
}

// ApprovePartner moves a pending partner to active
func (h *PartnerHandler) ApprovePartner(c *gin.Context) {
	h.transition(c, h.partnerService.Approve)
}

// SuspendPartner suspends an active partner
func (h *PartnerHandler) SuspendPartner(c *gin.Context) {
	h.transition(c, h.partnerService.Suspend)
}

// ReactivatePartner reactivates a suspended or inactive partner
func (h *PartnerHandler) ReactivatePartner(c *gin.Context) {
	h.transition(c, h.partnerService.Reactivate)
}

func (h *PartnerHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*models.ChannelPartner, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	p, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// UpdateCommissionRate changes the partner's live rate for future referrals
func (h *PartnerHandler) UpdateCommissionRate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	var input struct {
		CommissionRate decimal.Decimal `json:"commission_rate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.partnerService.UpdateCommissionRate(c.Request.Context(), id, input.CommissionRate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// UpdatePayoutDetails updates a partner's payout destination
func (h *PartnerHandler) UpdatePayoutDetails(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	var input struct {
		PayoutMethod models.PayoutMethod `json:"payout_method" binding:"required"`
		PixKey       string              `json:"pix_key"`
		BankName     string              `json:"bank_name"`
		BankAccount  string              `json:"bank_account"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.partnerService.UpdatePayoutDetails(c.Request.Context(), id, partner.UpdatePayoutDetailsInput{
		PayoutMethod: input.PayoutMethod,
		PixKey:       input.PixKey,
		BankName:     input.BankName,
		BankAccount:  input.BankAccount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// DeletePartner soft-deletes a partner
func (h *PartnerHandler) DeletePartner(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	if err := h.partnerService.DeletePartner(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "partner deleted"})
}
