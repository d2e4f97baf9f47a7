package models

import (
	"github.com/shopspring/decimal"
)

// PartnerType classifies the kind of channel partner
type PartnerType string

const (
	PartnerTypeAccountant  PartnerType = "accountant"
	PartnerTypeConsultant  PartnerType = "consultant"
	PartnerTypeAgency      PartnerType = "agency"
	PartnerTypeInfluencer  PartnerType = "influencer"
	PartnerTypeAssociation PartnerType = "association"
	PartnerTypeReseller    PartnerType = "reseller"
	PartnerTypeOther       PartnerType = "other"
)

// PartnerStatus represents the lifecycle state of a channel partner
type PartnerStatus string

const (
	PartnerStatusPending   PartnerStatus = "pending"
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusInactive  PartnerStatus = "inactive"
	PartnerStatusSuspended PartnerStatus = "suspended"
	PartnerStatusChurned   PartnerStatus = "churned"
)

// PayoutMethod is how a partner receives commission payouts
type PayoutMethod string

const (
	PayoutMethodPix  PayoutMethod = "pix"
	PayoutMethodBank PayoutMethod = "bank_transfer"
)

// ChannelPartner represents an external affiliate that refers paying tenants
type ChannelPartner struct {
	Base
	Type           PartnerType     `gorm:"type:varchar(20);not null" json:"type"`
	ContactName    string          `gorm:"type:varchar(255);not null" json:"contact_name"`
	CompanyName    string          `gorm:"type:varchar(255)" json:"company_name"`
	Email          string          `gorm:"type:varchar(255);not null" json:"email"`
	PhoneNumber    string          `gorm:"type:varchar(30)" json:"phone_number"`
	ReferralCode   string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"referral_code"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	Status         PartnerStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PayoutMethod   PayoutMethod    `gorm:"type:varchar(20)" json:"payout_method"`
	PixKey         string          `gorm:"type:varchar(140)" json:"pix_key,omitempty"`
	BankName       string          `gorm:"type:varchar(120)" json:"bank_name,omitempty"`
	BankAccount    string          `gorm:"type:varchar(60)" json:"bank_account,omitempty"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
}

// DefaultCommissionRate is applied when a partner is created without an
// explicit rate (20%).
var DefaultCommissionRate = decimal.NewFromFloat(20.0)
