package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/apperr"
	"github.com/partnerledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferralService creates and transitions referral records linking a channel
// partner to a referred tenant account
type ReferralService struct {
	db *gorm.DB
}

// NewReferralService creates a new referral service
func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{db: db}
}

// CreateReferralInput is the input for creating a referral
type CreateReferralInput struct {
	ChannelPartnerID uuid.UUID
	TenantID         uuid.UUID
	ReferralCode     string
	UTMSource        string
	UTMMedium        string
	UTMCampaign      string
	CommissionType   models.CommissionType
}

// CreateReferral attributes a tenant to a partner. The partner's current
// commission rate is copied into the referral as a permanent snapshot; later
// partner-rate changes never affect it. A tenant can be attributed once —
// first attribution wins, a second attempt is a conflict.
func (s *ReferralService) CreateReferral(ctx context.Context, input CreateReferralInput) (*models.Referral, error) {
	if input.TenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant id is required: %w", apperr.ErrValidation)
	}

	var p models.ChannelPartner
	err := s.db.WithContext(ctx).First(&p, "id = ?", input.ChannelPartnerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("partner %s: %w", input.ChannelPartnerID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up partner: %w", err)
	}

	if existing, err := s.GetReferralByTenant(ctx, input.TenantID); err == nil && existing != nil {
		return nil, fmt.Errorf("tenant %s is already attributed to partner %s: %w",
			input.TenantID, existing.ChannelPartnerID, apperr.ErrConflict)
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	commissionType := input.CommissionType
	if commissionType == "" {
		commissionType = models.CommissionTypeRecurring
	}

	r := &models.Referral{
		ChannelPartnerID:      p.ID,
		TenantID:              input.TenantID,
		ReferralCode:          input.ReferralCode,
		UTMSource:             input.UTMSource,
		UTMMedium:             input.UTMMedium,
		UTMCampaign:           input.UTMCampaign,
		Status:                models.ReferralStatusPending,
		CommissionRate:        p.CommissionRate,
		CommissionType:        commissionType,
		TotalPaid:             decimal.Zero,
		TotalCommissionEarned: decimal.Zero,
		TotalCommissionPaid:   decimal.Zero,
	}

	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent attribution for the same
			// tenant; the unique index on tenant_id is authoritative.
			return nil, fmt.Errorf("tenant %s is already attributed: %w", input.TenantID, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}

	return r, nil
}

// GetReferral gets a referral by ID
func (s *ReferralService) GetReferral(ctx context.Context, id uuid.UUID) (*models.Referral, error) {
	var r models.Referral
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("referral %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}
	return &r, nil
}

// GetReferralsByPartner lists all referrals owned by a partner
func (s *ReferralService) GetReferralsByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.Referral, error) {
	var referrals []models.Referral
	err := s.db.WithContext(ctx).
		Where("channel_partner_id = ?", partnerID).
		Order("created_at").
		Find(&referrals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return referrals, nil
}

// GetReferralByTenant returns the referral attributing a tenant, if any
func (s *ReferralService) GetReferralByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Referral, error) {
	var r models.Referral
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no referral for tenant %s: %w", tenantID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral: %w", err)
	}
	return &r, nil
}

// ActivateReferral marks a referral active on the referred tenant's first
// confirmed payment. first_payment_at is set once and never overwritten, so
// repeated activation calls are harmless.
func (s *ReferralService) ActivateReferral(ctx context.Context, id uuid.UUID) (*models.Referral, error) {
	r, err := s.GetReferral(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status": models.ReferralStatusActive,
	}
	if r.FirstPaymentAt == nil {
		now := time.Now().UTC()
		updates["first_payment_at"] = now
		r.FirstPaymentAt = &now
	}

	if err := s.db.WithContext(ctx).Model(r).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to activate referral: %w", err)
	}
	r.Status = models.ReferralStatusActive
	return r, nil
}

// ChurnReferral marks a referral churned. It stops earning from the next
// batch run onward; already-posted commission rows are untouched.
func (s *ReferralService) ChurnReferral(ctx context.Context, id uuid.UUID) (*models.Referral, error) {
	return s.transition(ctx, id, models.ReferralStatusChurned)
}

// SuspendReferral marks a referral suspended, pausing commission accrual
func (s *ReferralService) SuspendReferral(ctx context.Context, id uuid.UUID) (*models.Referral, error) {
	return s.transition(ctx, id, models.ReferralStatusSuspended)
}

func (s *ReferralService) transition(ctx context.Context, id uuid.UUID, to models.ReferralStatus) (*models.Referral, error) {
	r, err := s.GetReferral(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(r).Update("status", to).Error; err != nil {
		return nil, fmt.Errorf("failed to update referral status: %w", err)
	}
	r.Status = to
	return r, nil
}
