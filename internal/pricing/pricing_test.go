package pricing

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/apperr"
	"github.com/partnerledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStaticLookup(t *testing.T) {
	tenantID := uuid.New()
	lookup := NewStaticLookup(map[uuid.UUID]string{tenantID: "growth"})

	plan, err := lookup.CurrentPlan(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "growth", plan.Name)
	assert.True(t, plan.MonthlyPrice.Equal(decimal.NewFromInt(249)))
}

func TestStaticLookupUnknownTenant(t *testing.T) {
	lookup := NewStaticLookup(nil)

	_, err := lookup.CurrentPlan(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStaticLookupUnknownPlanIsNotZero(t *testing.T) {
	tenantID := uuid.New()
	lookup := NewStaticLookup(map[uuid.UUID]string{tenantID: "legacy-gold"})

	// An unmapped plan must error out instead of pricing at zero
	_, err := lookup.CurrentPlan(context.Background(), tenantID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDBLookup(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TenantPlan{}))

	tenantID := uuid.New()
	require.NoError(t, db.Create(&models.TenantPlan{
		TenantID:     tenantID,
		PlanName:     "scale",
		MonthlyPrice: decimal.NewFromInt(499),
		Active:       true,
	}).Error)

	// An inactive row for another tenant must not resolve
	inactiveTenant := uuid.New()
	require.NoError(t, db.Create(&models.TenantPlan{
		TenantID:     inactiveTenant,
		PlanName:     "starter",
		MonthlyPrice: decimal.NewFromInt(99),
		Active:       false,
	}).Error)

	lookup := NewDBLookup(db)

	plan, err := lookup.CurrentPlan(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "scale", plan.Name)
	assert.True(t, plan.MonthlyPrice.Equal(decimal.NewFromInt(499)))

	_, err = lookup.CurrentPlan(context.Background(), inactiveTenant)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
