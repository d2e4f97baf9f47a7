package utils

import (
	"strings"
	"testing"

	"github.com/partnerledger/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferralCode(t *testing.T) {
	tests := []struct {
		name        string
		partnerType models.PartnerType
		contactName string
		year        int
		want        string
	}{
		{"accented first name is folded", models.PartnerTypeAccountant, "João Silva", 2026, "CONTADOR-JOAO-2026"},
		{"single name", models.PartnerTypeAgency, "Madonna", 2026, "AGENCIA-MADONNA-2026"},
		{"consultant label", models.PartnerTypeConsultant, "Érica Moura", 2025, "CONSULTOR-ERICA-2025"},
		{"unknown type falls back", models.PartnerType("franchise"), "Ana Paula Braga", 2026, "PARCEIRO-ANA-2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateReferralCode(tt.partnerType, tt.contactName, tt.year)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateReferralCodeEmptyName(t *testing.T) {
	got := GenerateReferralCode(models.PartnerTypeOther, "", 2026)
	assert.Equal(t, "PARCEIRO-PARTNER-2026", got)
}

func TestRandomizeReferralCode(t *testing.T) {
	base := "CONTADOR-JOAO-2026"

	first, err := RandomizeReferralCode(base)
	require.NoError(t, err)
	second, err := RandomizeReferralCode(base)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, base+"-"))
	assert.Len(t, first, len(base)+7)
	assert.NotEqual(t, first, second, "suffixes should be random")
}
