package partner

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

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

	err = db.AutoMigrate(&models.ChannelPartner{}, &models.Referral{})
	require.NoError(t, err)

	return db
}

func TestCreatePartnerDerivesReferralCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	p, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        models.PartnerTypeAccountant,
		ContactName: "João Silva",
		Email:       "joao@example.com",
	})
	require.NoError(t, err)

	expected := fmt.Sprintf("CONTADOR-JOAO-%d", time.Now().UTC().Year())
	assert.Equal(t, expected, p.ReferralCode)
	assert.Equal(t, models.PartnerStatusPending, p.Status)
	assert.True(t, p.CommissionRate.Equal(decimal.NewFromFloat(20.0)), "default rate")
}

func TestCreatePartnerCollisionGetsRandomSuffix(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	first, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        models.PartnerTypeAccountant,
		ContactName: "João Silva",
		Email:       "joao@example.com",
	})
	require.NoError(t, err)

	// Same type, first name and year would derive the identical code
	second, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        models.PartnerTypeAccountant,
		ContactName: "João Pereira",
		Email:       "joao.p@example.com",
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.ReferralCode, second.ReferralCode)
	assert.True(t, strings.HasPrefix(second.ReferralCode, first.ReferralCode+"-"),
		"collided code %q should extend %q with a suffix", second.ReferralCode, first.ReferralCode)
}

func TestCreatePartnerExplicitCodeConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	_, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:         models.PartnerTypeReseller,
		ContactName:  "Carla Souza",
		Email:        "carla@example.com",
		ReferralCode: "PARCEIRO-VIP",
	})
	require.NoError(t, err)

	_, err = svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:         models.PartnerTypeReseller,
		ContactName:  "Pedro Rocha",
		Email:        "pedro@example.com",
		ReferralCode: "PARCEIRO-VIP",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreatePartnerValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	_, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:  models.PartnerTypeAgency,
		Email: "x@example.com",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        "franchise",
		ContactName: "Someone",
		Email:       "someone@example.com",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	badRate := decimal.NewFromInt(120)
	_, err = svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:           models.PartnerTypeAgency,
		ContactName:    "Someone",
		Email:          "someone@example.com",
		CommissionRate: &badRate,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApprovalLifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	p, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        models.PartnerTypeConsultant,
		ContactName: "Beatriz Nunes",
		Email:       "bia@example.com",
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerStatusActive, approved.Status)

	// Approving an already-active partner is a conflict
	_, err = svc.Approve(context.Background(), p.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	suspended, err := svc.Suspend(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerStatusSuspended, suspended.Status)

	reactivated, err := svc.Reactivate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerStatusActive, reactivated.Status)
}

func TestGetPartnerByReferralCodeMatchesActiveOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	p, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        models.PartnerTypeInfluencer,
		ContactName: "Lia Prado",
		Email:       "lia@example.com",
	})
	require.NoError(t, err)

	// A pending partner's code must not resolve
	_, err = svc.GetPartnerByReferralCode(context.Background(), p.ReferralCode)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Approve(context.Background(), p.ID)
	require.NoError(t, err)

	found, err := svc.GetPartnerByReferralCode(context.Background(), p.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	// Nor a deleted partner's
	require.NoError(t, svc.DeletePartner(context.Background(), p.ID))
	_, err = svc.GetPartnerByReferralCode(context.Background(), p.ReferralCode)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateCommissionRateDoesNotTouchReferrals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	p, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        models.PartnerTypeAssociation,
		ContactName: "Rui Teles",
		Email:       "rui@example.com",
	})
	require.NoError(t, err)

	ref := &models.Referral{
		ChannelPartnerID: p.ID,
		TenantID:         uuid.New(),
		Status:           models.ReferralStatusActive,
		CommissionRate:   p.CommissionRate,
	}
	require.NoError(t, db.Create(ref).Error)

	_, err = svc.UpdateCommissionRate(context.Background(), p.ID, decimal.NewFromFloat(12.5))
	require.NoError(t, err)

	var reloaded models.Referral
	require.NoError(t, db.First(&reloaded, "id = ?", ref.ID).Error)
	assert.True(t, reloaded.CommissionRate.Equal(decimal.NewFromFloat(20.0)),
		"referral snapshot changed to %s", reloaded.CommissionRate)
}

func TestUpdatePayoutDetails(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	p, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
		Type:        models.PartnerTypeOther,
		ContactName: "Nina Faria",
		Email:       "nina@example.com",
	})
	require.NoError(t, err)

	updated, err := svc.UpdatePayoutDetails(context.Background(), p.ID, UpdatePayoutDetailsInput{
		PayoutMethod: models.PayoutMethodPix,
		PixKey:       "nina@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PayoutMethodPix, updated.PayoutMethod)
	assert.Equal(t, "nina@example.com", updated.PixKey)

	_, err = svc.UpdatePayoutDetails(context.Background(), p.ID, UpdatePayoutDetailsInput{
		PayoutMethod: models.PayoutMethodBank,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListPartnersByStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPartnerService(db)

	names := []string{"Um Alpha", "Dois Beta", "Tres Gamma"}
	for _, name := range names {
		_, err := svc.CreatePartner(context.Background(), CreatePartnerInput{
			Type:        models.PartnerTypeAgency,
			ContactName: name,
			Email:       strings.Fields(name)[0] + "@example.com",
		})
		require.NoError(t, err)
	}

	all, err := svc.ListPartners(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.Approve(context.Background(), all[0].ID)
	require.NoError(t, err)

	pending, err := svc.ListPartners(context.Background(), models.PartnerStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
