package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenSpamBrandImpersonation(t *testing.T) {
	v := ScreenSpam(
		"shopify.team.kelvin@gmail.com",
		"Shopify Support",
		"Problema di pagamento (checkout)",
		"Your Shopify checkout is blocked, verify now.",
	)
	assert.True(t, v.Spam)
	assert.Equal(t, 1.0, v.Score)
	assert.Equal(t, "fake_brand:shopify", v.Reason)
}

func TestScreenSpamOfficialBrandDomainPasses(t *testing.T) {
	v := ScreenSpam(
		"noreply@shopifymail.com",
		"Shopify",
		"Your payout is on the way",
		"Shopify has sent your payout.",
	)
	assert.False(t, v.Spam)
}

func TestScreenSpamRealClientNeverSpam(t *testing.T) {
	// Sender pattern alone would score, but the customer talks about
	// their own order.
	v := ScreenSpam(
		"adeola07@gmail.com",
		"Adeola",
		"Ma commande 1001",
		"Bonjour, où est ma commande numéro 1001 ? Merci.",
	)
	assert.False(t, v.Spam)
	assert.Equal(t, "real_client", v.Reason)
}

func TestScreenSpamColdOutreach(t *testing.T) {
	v := ScreenSpam(
		"marketing.growthlab@gmail.com",
		"GrowthLab Agency",
		"Boost your business with our SEO services",
		"We help brands like yours rank on Google.",
	)
	assert.True(t, v.Spam)
	assert.GreaterOrEqual(t, v.Score, spamThreshold)
}

func TestScreenSpamGenericGmailAloneBelowThreshold(t *testing.T) {
	v := ScreenSpam(
		"martin883@gmail.com",
		"Martin",
		"Renseignement sur vos produits",
		"Bonjour, vendez-vous des coffrets cadeaux ?",
	)
	assert.False(t, v.Spam, "a generic gmail address alone must not discard a plausible inquiry")
}

func TestScreenSpamPlainCustomerEmail(t *testing.T) {
	v := ScreenSpam(
		"claire.dubois@orange.fr",
		"Claire Dubois",
		"Retour article",
		"Bonjour, je souhaite retourner un article de ma commande 2043.",
	)
	assert.False(t, v.Spam)
}
