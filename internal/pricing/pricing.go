// Package pricing resolves a referred tenant's current subscription plan and
// its monthly price. The commission engine depends on the Lookup interface
// only, so plan pricing changes never require touching the engine.
package pricing

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

// Plan is a tenant's current subscription plan and its monthly price.
// A zero price means a non-billable plan; no commission is generated for it.
type Plan struct {
	Name         string
	MonthlyPrice decimal.Decimal
}

// Lookup resolves the current plan for a tenant
type Lookup interface {
	CurrentPlan(ctx context.Context, tenantID uuid.UUID) (Plan, error)
}

// PriceTable maps plan names to monthly prices
type PriceTable map[string]decimal.Decimal

// DefaultPriceTable returns the reference plan prices
func DefaultPriceTable() PriceTable {
	return PriceTable{
		"starter":    decimal.NewFromInt(99),
		"growth":     decimal.NewFromInt(249),
		"scale":      decimal.NewFromInt(499),
		"free":       decimal.Zero,
		"enterprise": decimal.Zero, // custom-priced, billed outside the plan table
	}
}

// DBLookup resolves plans from the tenant_plans table, the mirror of each
// tenant's live billing configuration
type DBLookup struct {
	db *gorm.DB
}

// NewDBLookup creates a plan lookup backed by the tenant_plans table
func NewDBLookup(db *gorm.DB) *DBLookup {
	return &DBLookup{db: db}
}

// CurrentPlan returns the tenant's active plan and price
func (l *DBLookup) CurrentPlan(ctx context.Context, tenantID uuid.UUID) (Plan, error) {
	var tp models.TenantPlan
	err := l.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		First(&tp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Plan{}, fmt.Errorf("no active plan for tenant %s: %w", tenantID, apperr.ErrNotFound)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("looking up plan for tenant %s: %w", tenantID, apperr.ErrUpstream)
	}
	return Plan{Name: tp.PlanName, MonthlyPrice: tp.MonthlyPrice}, nil
}

// StaticLookup resolves plans from fixed in-memory tables. Used in tests and
// as a fallback when no billing mirror is available.
type StaticLookup struct {
	// Plans maps tenant ID to plan name
	Plans map[uuid.UUID]string
	// Prices maps plan name to monthly price
	Prices PriceTable
}

// NewStaticLookup creates a static lookup with the default price table
func NewStaticLookup(plans map[uuid.UUID]string) *StaticLookup {
	return &StaticLookup{Plans: plans, Prices: DefaultPriceTable()}
}

// CurrentPlan returns the tenant's plan from the static tables
func (l *StaticLookup) CurrentPlan(ctx context.Context, tenantID uuid.UUID) (Plan, error) {
	name, ok := l.Plans[tenantID]
	if !ok {
		return Plan{}, fmt.Errorf("no plan mapped for tenant %s: %w", tenantID, apperr.ErrNotFound)
	}
	price, ok := l.Prices[name]
	if !ok {
		// An unknown plan must be an explicit failure, never a zero-dollar
		// commission.
		return Plan{}, fmt.Errorf("no price for plan %q: %w", name, apperr.ErrNotFound)
	}
	return Plan{Name: name, MonthlyPrice: price}, nil
}
