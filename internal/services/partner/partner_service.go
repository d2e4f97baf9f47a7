package partner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/apperr"
	"github.com/partnerledger/backend/internal/models"
	"github.com/partnerledger/backend/internal/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxCodeAttempts bounds the regenerate-and-retry loop when a derived
// referral code collides with an existing partner's code
const maxCodeAttempts = 4

// PartnerService owns channel partner identity, referral-code issuance and
// approval state
type PartnerService struct {
	db *gorm.DB
}

// NewPartnerService creates a new partner service
func NewPartnerService(db *gorm.DB) *PartnerService {
	return &PartnerService{db: db}
}

// CreatePartnerInput is the input for creating a channel partner
type CreatePartnerInput struct {
	Type           models.PartnerType
	ContactName    string
	CompanyName    string
	Email          string
	PhoneNumber    string
	ReferralCode   string
	CommissionRate *decimal.Decimal
	PayoutMethod   models.PayoutMethod
	PixKey         string
	BankName       string
	BankAccount    string
	Notes          string
}

// CreatePartner registers a new channel partner in pending status. When no
// explicit referral code is supplied one is derived from the partner type,
// first name and current year; on a code collision the insert is retried a
// bounded number of times with a random suffix.
func (s *PartnerService) CreatePartner(ctx context.Context, input CreatePartnerInput) (*models.ChannelPartner, error) {
	if input.ContactName == "" {
		return nil, fmt.Errorf("contact name is required: %w", apperr.ErrValidation)
	}
	if input.Email == "" {
		return nil, fmt.Errorf("email is required: %w", apperr.ErrValidation)
	}
	if !validPartnerType(input.Type) {
		return nil, fmt.Errorf("unknown partner type %q: %w", input.Type, apperr.ErrValidation)
	}

	rate := models.DefaultCommissionRate
	if input.CommissionRate != nil {
		if input.CommissionRate.IsNegative() || input.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("commission rate must be between 0 and 100: %w", apperr.ErrValidation)
		}
		rate = *input.CommissionRate
	}

	code := input.ReferralCode
	explicitCode := code != ""
	if !explicitCode {
		code = utils.GenerateReferralCode(input.Type, input.ContactName, time.Now().UTC().Year())
	}

	p := &models.ChannelPartner{
		Type:           input.Type,
		ContactName:    input.ContactName,
		CompanyName:    input.CompanyName,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		ReferralCode:   code,
		CommissionRate: rate,
		Status:         models.PartnerStatusPending,
		PayoutMethod:   input.PayoutMethod,
		PixKey:         input.PixKey,
		BankName:       input.BankName,
		BankAccount:    input.BankAccount,
		Notes:          input.Notes,
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		err := s.db.WithContext(ctx).Create(p).Error
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create partner: %w", err)
		}
		if explicitCode {
			// An explicitly chosen code is the caller's to fix
			return nil, fmt.Errorf("referral code %q already in use: %w", code, apperr.ErrConflict)
		}

		randomized, randErr := utils.RandomizeReferralCode(code)
		if randErr != nil {
			return nil, randErr
		}
		p.ID = uuid.Nil
		p.ReferralCode = randomized
	}

	return nil, fmt.Errorf("could not issue a unique referral code after %d attempts: %w", maxCodeAttempts, apperr.ErrConflict)
}

// GetPartner gets a partner by ID
func (s *PartnerService) GetPartner(ctx context.Context, id uuid.UUID) (*models.ChannelPartner, error) {
	var p models.ChannelPartner
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("partner %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return &p, nil
}

// GetPartnerByReferralCode resolves a referral code to a partner. Only
// active, non-deleted partners match: a pending partner's code must not yet
// attribute referrals.
func (s *PartnerService) GetPartnerByReferralCode(ctx context.Context, code string) (*models.ChannelPartner, error) {
	var p models.ChannelPartner
	err := s.db.WithContext(ctx).
		Where("referral_code = ? AND status = ?", code, models.PartnerStatusActive).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no active partner for code %q: %w", code, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}
	return &p, nil
}

// ListPartners lists partners, optionally filtered by status
func (s *PartnerService) ListPartners(ctx context.Context, status models.PartnerStatus) ([]models.ChannelPartner, error) {
	query := s.db.WithContext(ctx).Order("created_at")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var partners []models.ChannelPartner
	if err := query.Find(&partners).Error; err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	return partners, nil
}

// Approve moves a pending partner to active. Only then does its referral
// code start attributing signups.
func (s *PartnerService) Approve(ctx context.Context, id uuid.UUID) (*models.ChannelPartner, error) {
	return s.transition(ctx, id, models.PartnerStatusActive, models.PartnerStatusPending)
}

// Suspend moves an active partner to suspended. Existing referrals keep
// their snapshot rate.
func (s *PartnerService) Suspend(ctx context.Context, id uuid.UUID) (*models.ChannelPartner, error) {
	return s.transition(ctx, id, models.PartnerStatusSuspended, models.PartnerStatusActive)
}

// Reactivate moves a suspended or inactive partner back to active
func (s *PartnerService) Reactivate(ctx context.Context, id uuid.UUID) (*models.ChannelPartner, error) {
	return s.transition(ctx, id, models.PartnerStatusActive, models.PartnerStatusSuspended, models.PartnerStatusInactive)
}

func (s *PartnerService) transition(ctx context.Context, id uuid.UUID, to models.PartnerStatus, from ...models.PartnerStatus) (*models.ChannelPartner, error) {
	p, err := s.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, status := range from {
		if p.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("partner %s is %s, cannot move to %s: %w", id, p.Status, to, apperr.ErrConflict)
	}

	p.Status = to
	if err := s.db.WithContext(ctx).Model(p).Update("status", to).Error; err != nil {
		return nil, fmt.Errorf("failed to update partner status: %w", err)
	}
	return p, nil
}

// UpdateCommissionRate changes a partner's live rate for future referrals.
// Existing referrals keep the rate snapshotted at their creation.
func (s *PartnerService) UpdateCommissionRate(ctx context.Context, id uuid.UUID, rate decimal.Decimal) (*models.ChannelPartner, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("commission rate must be between 0 and 100: %w", apperr.ErrValidation)
	}

	p, err := s.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}

	p.CommissionRate = rate
	if err := s.db.WithContext(ctx).Model(p).Update("commission_rate", rate).Error; err != nil {
		return nil, fmt.Errorf("failed to update commission rate: %w", err)
	}
	return p, nil
}

// UpdatePayoutDetailsInput is the input for updating payout details
type UpdatePayoutDetailsInput struct {
	PayoutMethod models.PayoutMethod
	PixKey       string
	BankName     string
	BankAccount  string
}

// UpdatePayoutDetails updates how the partner receives commission payouts
func (s *PartnerService) UpdatePayoutDetails(ctx context.Context, id uuid.UUID, input UpdatePayoutDetailsInput) (*models.ChannelPartner, error) {
	switch input.PayoutMethod {
	case models.PayoutMethodPix:
		if input.PixKey == "" {
			return nil, fmt.Errorf("pix key is required for pix payouts: %w", apperr.ErrValidation)
		}
	case models.PayoutMethodBank:
		if input.BankName == "" || input.BankAccount == "" {
			return nil, fmt.Errorf("bank name and account are required for bank payouts: %w", apperr.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("unknown payout method %q: %w", input.PayoutMethod, apperr.ErrValidation)
	}

	p, err := s.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"payout_method": input.PayoutMethod,
		"pix_key":       input.PixKey,
		"bank_name":     input.BankName,
		"bank_account":  input.BankAccount,
	}
	if err := s.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update payout details: %w", err)
	}
	return s.GetPartner(ctx, id)
}

// DeletePartner soft-deletes a partner. Rows are never hard-deleted so
// referrals keep a resolvable owner.
func (s *PartnerService) DeletePartner(ctx context.Context, id uuid.UUID) error {
	p, err := s.GetPartner(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(p).Error; err != nil {
		return fmt.Errorf("failed to delete partner: %w", err)
	}
	return nil
}

func validPartnerType(t models.PartnerType) bool {
	switch t {
	case models.PartnerTypeAccountant, models.PartnerTypeConsultant, models.PartnerTypeAgency,
		models.PartnerTypeInfluencer, models.PartnerTypeAssociation, models.PartnerTypeReseller,
		models.PartnerTypeOther:
		return true
	}
	return false
}
