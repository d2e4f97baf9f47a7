package referral

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

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.ChannelPartner{}, &models.Referral{}, &models.Commission{})
	require.NoError(t, err)

	return db
}

func seedPartner(t *testing.T, db *gorm.DB, rate decimal.Decimal) *models.ChannelPartner {
	p := &models.ChannelPartner{
		Type:           models.PartnerTypeAgency,
		ContactName:    "Marcos Lima",
		Email:          "marcos@example.com",
		ReferralCode:   "AGENCIA-MARCOS-" + uuid.NewString()[:8],
		CommissionRate: rate,
		Status:         models.PartnerStatusActive,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestCreateReferral(t *testing.T) {
	db := setupTestDB(t)
	p := seedPartner(t, db, decimal.NewFromFloat(25.0))
	svc := NewReferralService(db)

	tenantID := uuid.New()
	r, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: p.ID,
		TenantID:         tenantID,
		ReferralCode:     p.ReferralCode,
		UTMSource:        "newsletter",
		UTMCampaign:      "q3-launch",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReferralStatusPending, r.Status)
	assert.Equal(t, models.CommissionTypeRecurring, r.CommissionType)
	assert.True(t, r.CommissionRate.Equal(decimal.NewFromFloat(25.0)), "rate snapshot")
	assert.Equal(t, 0, r.TotalMonthsPaid)
	assert.True(t, r.TotalCommissionEarned.IsZero())
	assert.Nil(t, r.FirstPaymentAt)

	found, err := svc.GetReferralByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, found.ID)
}

func TestCreateReferralUnknownPartner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)

	_, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: uuid.New(),
		TenantID:         uuid.New(),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateReferralFirstAttributionWins(t *testing.T) {
	db := setupTestDB(t)
	first := seedPartner(t, db, decimal.NewFromFloat(20.0))
	second := seedPartner(t, db, decimal.NewFromFloat(30.0))
	svc := NewReferralService(db)

	tenantID := uuid.New()
	r, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: first.ID,
		TenantID:         tenantID,
	})
	require.NoError(t, err)

	_, err = svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: second.ID,
		TenantID:         tenantID,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// The original attribution is untouched
	found, err := svc.GetReferralByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, found.ID)
	assert.Equal(t, first.ID, found.ChannelPartnerID)
}

func TestRateSnapshotSurvivesPartnerRateChange(t *testing.T) {
	db := setupTestDB(t)
	p := seedPartner(t, db, decimal.NewFromFloat(20.0))
	svc := NewReferralService(db)

	r, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: p.ID,
		TenantID:         uuid.New(),
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.ChannelPartner{}).Where("id = ?", p.ID).
		Update("commission_rate", decimal.NewFromFloat(35.0)).Error)

	reloaded, err := svc.GetReferral(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CommissionRate.Equal(decimal.NewFromFloat(20.0)),
		"snapshot rate changed to %s", reloaded.CommissionRate)

	// A new referral picks up the new live rate
	r2, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: p.ID,
		TenantID:         uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, r2.CommissionRate.Equal(decimal.NewFromFloat(35.0)))
}

func TestActivateReferralIdempotent(t *testing.T) {
	db := setupTestDB(t)
	p := seedPartner(t, db, decimal.NewFromFloat(20.0))
	svc := NewReferralService(db)

	r, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: p.ID,
		TenantID:         uuid.New(),
	})
	require.NoError(t, err)

	activated, err := svc.ActivateReferral(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusActive, activated.Status)
	require.NotNil(t, activated.FirstPaymentAt)
	firstPayment := *activated.FirstPaymentAt

	// Repeated activation must not move first_payment_at
	again, err := svc.ActivateReferral(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, again.FirstPaymentAt)
	assert.True(t, again.FirstPaymentAt.Equal(firstPayment),
		"first_payment_at moved from %s to %s", firstPayment, again.FirstPaymentAt)
}

func TestReferralLifecycleTransitions(t *testing.T) {
	db := setupTestDB(t)
	p := seedPartner(t, db, decimal.NewFromFloat(20.0))
	svc := NewReferralService(db)

	r, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: p.ID,
		TenantID:         uuid.New(),
	})
	require.NoError(t, err)

	_, err = svc.ActivateReferral(context.Background(), r.ID)
	require.NoError(t, err)

	churned, err := svc.ChurnReferral(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusChurned, churned.Status)

	suspended, err := svc.SuspendReferral(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusSuspended, suspended.Status)
}

func TestGetReferralsByPartner(t *testing.T) {
	db := setupTestDB(t)
	p := seedPartner(t, db, decimal.NewFromFloat(20.0))
	other := seedPartner(t, db, decimal.NewFromFloat(20.0))
	svc := NewReferralService(db)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateReferral(context.Background(), CreateReferralInput{
			ChannelPartnerID: p.ID,
			TenantID:         uuid.New(),
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateReferral(context.Background(), CreateReferralInput{
		ChannelPartnerID: other.ID,
		TenantID:         uuid.New(),
	})
	require.NoError(t, err)

	referrals, err := svc.GetReferralsByPartner(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, referrals, 3)
}

func TestGetReferralByTenantNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db)

	_, err := svc.GetReferralByTenant(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
