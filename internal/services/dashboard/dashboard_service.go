// Package dashboard builds read-only rollups from referral and commission
// rows. Nothing here is cached or stored; every figure is recomputed from
// the source rows on each read so it can never drift from the ledger.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/apperr"
	"github.com/partnerledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardService aggregates partner program reporting
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// PartnerDashboard is the per-partner rollup
type PartnerDashboard struct {
	PartnerID          uuid.UUID `json:"partner_id"`
	PartnerName        string    `json:"partner_name"`
	TotalReferrals     int       `json:"total_referrals"`
	PendingReferrals   int       `json:"pending_referrals"`
	ActiveReferrals    int       `json:"active_referrals"`
	ChurnedReferrals   int       `json:"churned_referrals"`
	SuspendedReferrals int       `json:"suspended_referrals"`

	TotalCommissionEarned decimal.Decimal `json:"total_commission_earned"`
	TotalCommissionPaid   decimal.Decimal `json:"total_commission_paid"`
	CommissionPending     decimal.Decimal `json:"commission_pending"`

	// MonthlyRecurringCommission is the sum of each active referral's most
	// recent commission amount
	MonthlyRecurringCommission decimal.Decimal `json:"monthly_recurring_commission"`
}

// GetPartnerDashboard recomputes a partner's rollup from its referral and
// commission rows
func (s *DashboardService) GetPartnerDashboard(ctx context.Context, partnerID uuid.UUID) (*PartnerDashboard, error) {
	var p models.ChannelPartner
	err := s.db.WithContext(ctx).First(&p, "id = ?", partnerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("partner %s: %w", partnerID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}

	var referrals []models.Referral
	if err := s.db.WithContext(ctx).Where("channel_partner_id = ?", partnerID).Find(&referrals).Error; err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}

	var rows []models.Commission
	if err := s.db.WithContext(ctx).Where("channel_partner_id = ?", partnerID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}

	d := &PartnerDashboard{
		PartnerID:                  partnerID,
		PartnerName:                p.ContactName,
		TotalCommissionEarned:      decimal.Zero,
		TotalCommissionPaid:        decimal.Zero,
		CommissionPending:          decimal.Zero,
		MonthlyRecurringCommission: decimal.Zero,
	}

	activeReferralIDs := make(map[uuid.UUID]bool)
	for _, r := range referrals {
		d.TotalReferrals++
		switch r.Status {
		case models.ReferralStatusPending:
			d.PendingReferrals++
		case models.ReferralStatusActive:
			d.ActiveReferrals++
			activeReferralIDs[r.ID] = true
		case models.ReferralStatusChurned:
			d.ChurnedReferrals++
		case models.ReferralStatusSuspended:
			d.SuspendedReferrals++
		}
	}

	// Latest row per active referral for the recurring figure
	latest := make(map[uuid.UUID]models.Commission)
	for _, row := range rows {
		switch row.Status {
		case models.CommissionStatusCancelled:
			continue
		case models.CommissionStatusPaid:
			d.TotalCommissionEarned = d.TotalCommissionEarned.Add(row.CommissionAmount)
			d.TotalCommissionPaid = d.TotalCommissionPaid.Add(row.PaidAmount)
		default:
			d.TotalCommissionEarned = d.TotalCommissionEarned.Add(row.CommissionAmount)
		}

		if activeReferralIDs[row.ReferralID] {
			if prev, ok := latest[row.ReferralID]; !ok || row.MonthReference > prev.MonthReference {
				latest[row.ReferralID] = row
			}
		}
	}
	for _, row := range latest {
		d.MonthlyRecurringCommission = d.MonthlyRecurringCommission.Add(row.CommissionAmount)
	}

	d.CommissionPending = d.TotalCommissionEarned.Sub(d.TotalCommissionPaid)
	return d, nil
}

// GlobalSummary is the program-wide rollup
type GlobalSummary struct {
	Partners        int64 `json:"partners"`
	ActivePartners  int64 `json:"active_partners"`
	Referrals       int64 `json:"referrals"`
	ActiveReferrals int64 `json:"active_referrals"`

	TotalEarned  decimal.Decimal `json:"total_earned"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
}

// GetGlobalSummary recomputes the global rollup from source rows. When no
// row is cancelled or disputed, TotalPending reconciles exactly with
// TotalEarned - TotalPaid.
func (s *DashboardService) GetGlobalSummary(ctx context.Context) (*GlobalSummary, error) {
	summary := &GlobalSummary{
		TotalEarned:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.ChannelPartner{}).Count(&summary.Partners).Error; err != nil {
		return nil, fmt.Errorf("failed to count partners: %w", err)
	}
	err := db.Model(&models.ChannelPartner{}).
		Where("status = ?", models.PartnerStatusActive).
		Count(&summary.ActivePartners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active partners: %w", err)
	}
	if err := db.Model(&models.Referral{}).Count(&summary.Referrals).Error; err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}
	err = db.Model(&models.Referral{}).
		Where("status = ?", models.ReferralStatusActive).
		Count(&summary.ActiveReferrals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active referrals: %w", err)
	}

	var rows []models.Commission
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	for _, row := range rows {
		switch row.Status {
		case models.CommissionStatusCancelled:
			continue
		case models.CommissionStatusPaid:
			summary.TotalEarned = summary.TotalEarned.Add(row.CommissionAmount)
			summary.TotalPaid = summary.TotalPaid.Add(row.PaidAmount)
		case models.CommissionStatusPending:
			summary.TotalEarned = summary.TotalEarned.Add(row.CommissionAmount)
			summary.TotalPending = summary.TotalPending.Add(row.CommissionAmount)
		default:
			summary.TotalEarned = summary.TotalEarned.Add(row.CommissionAmount)
		}
	}

	return summary, nil
}
