package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferralStatus represents the lifecycle state of a referral
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusActive    ReferralStatus = "active"
	ReferralStatusChurned   ReferralStatus = "churned"
	ReferralStatusSuspended ReferralStatus = "suspended"
)

// CommissionType represents how a referral earns commission
type CommissionType string

const (
	CommissionTypeRecurring CommissionType = "recurring"
	CommissionTypeOneTime   CommissionType = "one_time"
	CommissionTypeTiered    CommissionType = "tiered"
)

// Referral is the attribution edge between one channel partner and one
// referred tenant account. A tenant can have at most one referral; the
// unique index enforces first-attribution-wins at the storage layer.
type Referral struct {
	Base
	ChannelPartnerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"channel_partner_id"`
	ChannelPartner   ChannelPartner `gorm:"foreignKey:ChannelPartnerID" json:"-"`
	TenantID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	ReferralCode     string         `gorm:"type:varchar(64);not null" json:"referral_code"`
	UTMSource        string         `gorm:"type:varchar(100)" json:"utm_source,omitempty"`
	UTMMedium        string         `gorm:"type:varchar(100)" json:"utm_medium,omitempty"`
	UTMCampaign      string         `gorm:"type:varchar(100)" json:"utm_campaign,omitempty"`
	Status           ReferralStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	// CommissionRate is snapshotted from the partner at creation time.
	// Later changes to the partner's rate never touch this value.
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	CommissionType CommissionType  `gorm:"type:varchar(20);not null;default:'recurring'" json:"commission_type"`

	// Running aggregates, derived from Commission rows. Written inside the
	// same transaction as the ledger row they reflect; RecalculateReferralAggregates
	// re-derives them from the ledger when they need repair.
	TotalMonthsPaid       int             `gorm:"not null;default:0" json:"total_months_paid"`
	TotalPaid             decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_paid"`
	TotalCommissionEarned decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission_earned"`
	TotalCommissionPaid   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission_paid"`

	FirstPaymentAt *time.Time `json:"first_payment_at,omitempty"`
	LastPaymentAt  *time.Time `json:"last_payment_at,omitempty"`
}
