package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/partnerledger/backend/internal/models"
)

// typeLabels are the code prefixes per partner type
var typeLabels = map[models.PartnerType]string{
	models.PartnerTypeAccountant:  "CONTADOR",
	models.PartnerTypeConsultant:  "CONSULTOR",
	models.PartnerTypeAgency:      "AGENCIA",
	models.PartnerTypeInfluencer:  "INFLUENCER",
	models.PartnerTypeAssociation: "ASSOCIACAO",
	models.PartnerTypeReseller:    "REVENDA",
	models.PartnerTypeOther:       "PARCEIRO",
}

// GenerateReferralCode derives the default referral code for a partner:
// {TYPE_LABEL}-{FIRST_NAME}-{YEAR} with the first name uppercased and
// ASCII-folded, e.g. accountant / "João Silva" / 2026 -> CONTADOR-JOAO-2026.
func GenerateReferralCode(partnerType models.PartnerType, contactName string, year int) string {
	label, ok := typeLabels[partnerType]
	if !ok {
		label = typeLabels[models.PartnerTypeOther]
	}

	firstName := contactName
	if i := strings.IndexByte(contactName, ' '); i > 0 {
		firstName = contactName[:i]
	}
	// slug.Make transliterates accented characters to ASCII
	folded := strings.ToUpper(slug.Make(firstName))
	if folded == "" {
		folded = "PARTNER"
	}

	return fmt.Sprintf("%s-%s-%d", label, folded, year)
}

// RandomizeReferralCode appends a random base32 suffix to a code that
// collided with an existing partner's code
func RandomizeReferralCode(code string) (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate code suffix: %w", err)
	}

	suffix := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	return code + "-" + strings.ToUpper(suffix[:6]), nil
}
