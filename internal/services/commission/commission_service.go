// Package commission implements the monthly batch that turns active
// referrals and tenant subscription state into commission ledger rows, and
// the payout-recording operation that closes them out.
package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/apperr"
	"github.com/partnerledger/backend/internal/models"
	"github.com/partnerledger/backend/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// CommissionService computes and settles recurring commissions
type CommissionService struct {
	db        *gorm.DB
	prices    pricing.Lookup
	log       *zap.Logger
	opTimeout time.Duration
}

// NewCommissionService creates a new commission service. opTimeout bounds
// each referral's persistence work inside the batch.
func NewCommissionService(db *gorm.DB, prices pricing.Lookup, log *zap.Logger, opTimeout time.Duration) *CommissionService {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &CommissionService{db: db, prices: prices, log: log, opTimeout: opTimeout}
}

// BatchResult summarizes one batch run. It is a run audit, not a source of
// truth: reporting totals are always re-derived from the ledger.
type BatchResult struct {
	MonthReference string          `json:"month_reference"`
	Created        int             `json:"created"`
	Skipped        int             `json:"skipped"`
	Failed         int             `json:"failed"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// CalculateMonthlyCommissions posts one commission row per active referral
// for the given month ("YYYY-MM"; empty means the current month, UTC). The
// run is idempotent: the unique index on (referral_id, month_reference)
// makes re-runs and concurrent runs post each commission at most once.
// Each referral is processed as an independently committed unit; a failure
// is logged and counted, never aborting the rest of the batch.
func (s *CommissionService) CalculateMonthlyCommissions(ctx context.Context, monthReference string) (*BatchResult, error) {
	if monthReference == "" {
		monthReference = models.MonthReferenceFor(time.Now())
	}
	if _, err := time.Parse(models.MonthReferenceFormat, monthReference); err != nil {
		return nil, fmt.Errorf("invalid month reference %q: %w", monthReference, apperr.ErrValidation)
	}

	var referrals []models.Referral
	err := s.db.WithContext(ctx).
		Where("status = ?", models.ReferralStatusActive).
		Order("created_at").
		Find(&referrals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active referrals: %w", apperr.ErrUpstream)
	}

	result := &BatchResult{MonthReference: monthReference, TotalAmount: decimal.Zero}
	for _, ref := range referrals {
		created, amount, err := s.processReferral(ctx, ref, monthReference)
		if err != nil {
			result.Failed++
			s.log.Error("commission calculation failed for referral",
				zap.String("referral_id", ref.ID.String()),
				zap.String("tenant_id", ref.TenantID.String()),
				zap.String("month", monthReference),
				zap.Error(err))
			continue
		}
		if !created {
			result.Skipped++
			continue
		}
		result.Created++
		result.TotalAmount = result.TotalAmount.Add(amount)
	}

	s.log.Info("monthly commission batch finished",
		zap.String("month", monthReference),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.String("total_amount", result.TotalAmount.StringFixed(2)))

	return result, nil
}

// processReferral posts at most one commission row for one referral and
// month. The ledger insert and the referral aggregate update share one
// transaction so a crash can never leave them apart.
func (s *CommissionService) processReferral(ctx context.Context, ref models.Referral, monthReference string) (bool, decimal.Decimal, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	plan, err := s.prices.CurrentPlan(opCtx, ref.TenantID)
	if err != nil {
		// A missing plan or price is an explicit failure; it must never be
		// coerced into a zero-amount commission.
		return false, decimal.Zero, fmt.Errorf("resolving plan: %w", err)
	}

	// Free-tier accounts earn nothing
	if plan.MonthlyPrice.IsZero() {
		return false, decimal.Zero, nil
	}

	// Cheap pre-check; the unique index below is the real guarantee
	var count int64
	err = s.db.WithContext(opCtx).Model(&models.Commission{}).
		Where("referral_id = ? AND month_reference = ?", ref.ID, monthReference).
		Count(&count).Error
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("checking existing commission: %w", err)
	}
	if count > 0 {
		return false, decimal.Zero, nil
	}

	planAmount := plan.MonthlyPrice.Round(2)
	commissionAmount := planAmount.Mul(ref.CommissionRate).Div(oneHundred).Round(2)
	now := time.Now().UTC()

	row := &models.Commission{
		ChannelPartnerID: ref.ChannelPartnerID,
		ReferralID:       ref.ID,
		TenantID:         ref.TenantID,
		MonthReference:   monthReference,
		TenantPlan:       plan.Name,
		PlanAmount:       planAmount,
		CommissionRate:   ref.CommissionRate,
		CommissionAmount: commissionAmount,
		Status:           models.CommissionStatusPending,
		PaidAmount:       decimal.Zero,
	}

	duplicate := false
	err = s.db.WithContext(opCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// A concurrent run got here first; already processed
				duplicate = true
				return nil
			}
			return fmt.Errorf("inserting commission: %w", err)
		}

		updates := map[string]interface{}{
			"total_months_paid":       gorm.Expr("total_months_paid + 1"),
			"total_paid":              gorm.Expr("total_paid + ?", planAmount),
			"total_commission_earned": gorm.Expr("total_commission_earned + ?", commissionAmount),
			"last_payment_at":         now,
		}
		if err := tx.Model(&models.Referral{}).Where("id = ?", ref.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating referral aggregates: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, decimal.Zero, err
	}
	if duplicate {
		return false, decimal.Zero, nil
	}

	return true, commissionAmount, nil
}

// MarkCommissionAsPaid records a payout: the commission row moves to paid
// and the owning referral's total_commission_paid grows by paidAmount. Both
// writes share one transaction; a failure of either surfaces loudly and
// leaves neither applied.
func (s *CommissionService) MarkCommissionAsPaid(ctx context.Context, id uuid.UUID, paidAmount decimal.Decimal, paymentMethod, paymentReference string) (*models.Commission, error) {
	if !paidAmount.IsPositive() {
		return nil, fmt.Errorf("paid amount must be positive: %w", apperr.ErrValidation)
	}
	if paymentMethod == "" {
		return nil, fmt.Errorf("payment method is required: %w", apperr.ErrValidation)
	}

	row, err := s.GetCommission(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.Status != models.CommissionStatusPending && row.Status != models.CommissionStatusApproved {
		return nil, fmt.Errorf("commission %s is %s, only pending or approved commissions can be paid: %w",
			id, row.Status, apperr.ErrConflict)
	}

	now := time.Now().UTC()
	paidAmount = paidAmount.Round(2)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(row).Updates(map[string]interface{}{
			"status":            models.CommissionStatusPaid,
			"paid_at":           now,
			"paid_amount":       paidAmount,
			"payment_method":    paymentMethod,
			"payment_reference": paymentReference,
		}).Error; err != nil {
			return fmt.Errorf("updating commission: %w", err)
		}

		res := tx.Model(&models.Referral{}).
			Where("id = ?", row.ReferralID).
			Update("total_commission_paid", gorm.Expr("total_commission_paid + ?", paidAmount))
		if res.Error != nil {
			return fmt.Errorf("updating referral payout aggregate: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("referral %s missing for payout aggregate: %w", row.ReferralID, apperr.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		s.log.Error("payout recording failed",
			zap.String("commission_id", id.String()),
			zap.String("referral_id", row.ReferralID.String()),
			zap.Error(err))
		return nil, err
	}

	row.Status = models.CommissionStatusPaid
	row.PaidAt = &now
	row.PaidAmount = paidAmount
	row.PaymentMethod = paymentMethod
	row.PaymentReference = paymentReference
	return row, nil
}

// ApproveCommission moves a pending commission to approved
func (s *CommissionService) ApproveCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	return s.transition(ctx, id, models.CommissionStatusApproved, models.CommissionStatusPending)
}

// CancelCommission cancels a pending or approved commission. Cancelled rows
// keep their amounts for the audit trail but are excluded from payout.
func (s *CommissionService) CancelCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	return s.transition(ctx, id, models.CommissionStatusCancelled, models.CommissionStatusPending, models.CommissionStatusApproved)
}

// DisputeCommission marks a commission disputed pending administrative
// resolution
func (s *CommissionService) DisputeCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	return s.transition(ctx, id, models.CommissionStatusDisputed, models.CommissionStatusPending, models.CommissionStatusApproved)
}

func (s *CommissionService) transition(ctx context.Context, id uuid.UUID, to models.CommissionStatus, from ...models.CommissionStatus) (*models.Commission, error) {
	row, err := s.GetCommission(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, status := range from {
		if row.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("commission %s is %s, cannot move to %s: %w", id, row.Status, to, apperr.ErrConflict)
	}

	if err := s.db.WithContext(ctx).Model(row).Update("status", to).Error; err != nil {
		return nil, fmt.Errorf("failed to update commission status: %w", err)
	}
	row.Status = to
	return row, nil
}

// GetCommission gets a commission by ID
func (s *CommissionService) GetCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var row models.Commission
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("commission %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}
	return &row, nil
}

// GetCommissionsByPartner lists a partner's ledger rows, newest month first,
// optionally filtered by month reference and status
func (s *CommissionService) GetCommissionsByPartner(ctx context.Context, partnerID uuid.UUID, monthReference string, status models.CommissionStatus) ([]models.Commission, error) {
	query := s.db.WithContext(ctx).
		Where("channel_partner_id = ?", partnerID).
		Order("month_reference desc, created_at")
	if monthReference != "" {
		query = query.Where("month_reference = ?", monthReference)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []models.Commission
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	return rows, nil
}

// GetCommissionsByReferral lists a referral's ledger rows in month order
func (s *CommissionService) GetCommissionsByReferral(ctx context.Context, referralID uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	err := s.db.WithContext(ctx).
		Where("referral_id = ?", referralID).
		Order("month_reference").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	return rows, nil
}

// RecalculateReferralAggregates re-derives a referral's stored aggregates
// from its ledger rows, repairing any drift. Cancelled rows do not count
// toward earnings; paid amounts only count from rows actually paid.
func (s *CommissionService) RecalculateReferralAggregates(ctx context.Context, referralID uuid.UUID) (*models.Referral, error) {
	var ref models.Referral
	err := s.db.WithContext(ctx).First(&ref, "id = ?", referralID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("referral %s: %w", referralID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}

	rows, err := s.GetCommissionsByReferral(ctx, referralID)
	if err != nil {
		return nil, err
	}

	months := 0
	totalPaid := decimal.Zero
	earned := decimal.Zero
	paidOut := decimal.Zero
	var lastPayment *time.Time
	for i := range rows {
		row := rows[i]
		if row.Status == models.CommissionStatusCancelled {
			continue
		}
		months++
		totalPaid = totalPaid.Add(row.PlanAmount)
		earned = earned.Add(row.CommissionAmount)
		if row.Status == models.CommissionStatusPaid {
			paidOut = paidOut.Add(row.PaidAmount)
		}
		if lastPayment == nil || row.CreatedAt.After(*lastPayment) {
			t := row.CreatedAt
			lastPayment = &t
		}
	}

	updates := map[string]interface{}{
		"total_months_paid":       months,
		"total_paid":              totalPaid,
		"total_commission_earned": earned,
		"total_commission_paid":   paidOut,
	}
	if lastPayment != nil {
		updates["last_payment_at"] = *lastPayment
	}

	if err := s.db.WithContext(ctx).Model(&ref).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update referral aggregates: %w", err)
	}

	ref.TotalMonthsPaid = months
	ref.TotalPaid = totalPaid
	ref.TotalCommissionEarned = earned
	ref.TotalCommissionPaid = paidOut
	if lastPayment != nil {
		ref.LastPaymentAt = lastPayment
	}
	return &ref, nil
}
