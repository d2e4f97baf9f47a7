package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionStatus represents the payout state of one ledger row
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusApproved  CommissionStatus = "approved"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
	CommissionStatusDisputed  CommissionStatus = "disputed"
)

// Commission is one ledger row: a referral's earned commission for one
// calendar month. The unique index on (referral_id, month_reference) is the
// idempotency contract for the monthly batch — a duplicate insert means the
// month was already processed.
type Commission struct {
	Base
	ChannelPartnerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"channel_partner_id"`
	ChannelPartner   ChannelPartner `gorm:"foreignKey:ChannelPartnerID" json:"-"`
	ReferralID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_commissions_referral_month" json:"referral_id"`
	Referral         Referral       `gorm:"foreignKey:ReferralID" json:"-"`
	TenantID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`

	// MonthReference is the calendar month being billed, formatted YYYY-MM
	MonthReference string `gorm:"type:varchar(7);not null;uniqueIndex:idx_commissions_referral_month" json:"month_reference"`

	TenantPlan       string          `gorm:"type:varchar(50);not null" json:"tenant_plan"`
	PlanAmount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"plan_amount"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"commission_amount"`

	Status CommissionStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"paid_amount"`
	PaymentMethod    string          `gorm:"type:varchar(30)" json:"payment_method,omitempty"`
	PaymentReference string          `gorm:"type:varchar(140)" json:"payment_reference,omitempty"`
}

// MonthReferenceFormat is the time layout for Commission.MonthReference
const MonthReferenceFormat = "2006-01"

// MonthReferenceFor formats t as a commission month reference in UTC
func MonthReferenceFor(t time.Time) string {
	return t.UTC().Format(MonthReferenceFormat)
}
