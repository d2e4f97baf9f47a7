package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/models"
	"github.com/partnerledger/backend/internal/services/referral"
)

// ReferralHandler handles referral attribution requests
type ReferralHandler struct {
	referralService *referral.ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralService *referral.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// CreateReferral is the signup capture surface: the external signup flow
// resolves a referral code to a partner and posts the attribution here
func (h *ReferralHandler) CreateReferral(c *gin.Context) {
	var input struct {
		ChannelPartnerID uuid.UUID             `json:"channel_partner_id" binding:"required"`
		TenantID         uuid.UUID             `json:"tenant_id" binding:"required"`
		ReferralCode     string                `json:"referral_code"`
		UTMSource        string                `json:"utm_source"`
		UTMMedium        string                `json:"utm_medium"`
		UTMCampaign      string                `json:"utm_campaign"`
		CommissionType   models.CommissionType `json:"commission_type"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.referralService.CreateReferral(c.Request.Context(), referral.CreateReferralInput{
		ChannelPartnerID: input.ChannelPartnerID,
		TenantID:         input.TenantID,
		ReferralCode:     input.ReferralCode,
		UTMSource:        input.UTMSource,
		UTMMedium:        input.UTMMedium,
		UTMCampaign:      input.UTMCampaign,
		CommissionType:   input.CommissionType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, r)
}

// GetReferral gets a referral by ID
func (h *ReferralHandler) GetReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral ID"})
		return
	}

	r, err := h.referralService.GetReferral(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// GetReferralsByPartner lists a partner's referrals
func (h *ReferralHandler) GetReferralsByPartner(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	referrals, err := h.referralService.GetReferralsByPartner(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, referrals)
}

// GetReferralByTenant returns the referral attributing a tenant
func (h *ReferralHandler) GetReferralByTenant(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}

	r, err := h.referralService.GetReferralByTenant(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// ActivateReferral marks a referral active on the tenant's first payment
func (h *ReferralHandler) ActivateReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral ID"})
		return
	}

	r, err := h.referralService.ActivateReferral(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// ChurnReferral marks a referral churned
func (h *ReferralHandler) ChurnReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral ID"})
		return
	}

	r, err := h.referralService.ChurnReferral(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// SuspendReferral marks a referral suspended
func (h *ReferralHandler) SuspendReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral ID"})
		return
	}

	r, err := h.referralService.SuspendReferral(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}
