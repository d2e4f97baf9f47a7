package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TenantPlan mirrors a tenant's live billing configuration: which plan the
// tenant is currently on and its monthly price. Maintained by the billing
// integration; the commission engine only ever reads it.
type TenantPlan struct {
	Base
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	PlanName     string          `gorm:"type:varchar(50);not null" json:"plan_name"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"monthly_price"`
	Active       bool            `gorm:"not null;default:true" json:"active"`
}
