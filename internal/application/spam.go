package application

import (
	"regexp"
	"strings"
)

// spamThreshold is the score above which a message is discarded outright.
const spamThreshold = 0.35

// officialDomains are the only legitimate sender domains for each brand.
// Mail that name-drops a brand from any other domain is impersonation.
var officialDomains = map[string][]string{
	"shopify":   {"@shopify.com", "@shopifymail.com", "@shopifyemail.com", "@shop.app", "@myshopify.com"},
	"meta":      {"@meta.com", "@metamail.com", "@fb.com"},
	"facebook":  {"@facebookmail.com", "@facebook.com", "@fb.com", "@support.facebook.com"},
	"instagram": {"@instagram.com", "@mail.instagram.com"},
	"tiktok":    {"@tiktok.com", "@tiktokmail.com", "@bytedance.com"},
	"google":    {"@google.com", "@googlemail.com", "@accounts.google.com"},
	"paypal":    {"@paypal.com", "@paypal.fr", "@e.paypal.com", "@e.paypal.fr"},
	"stripe":    {"@stripe.com", "@stripemail.com"},
}

// brandKeywords trigger the impersonation check. Only brand-specific terms;
// nothing generic like "your store".
var brandKeywords = map[string][]string{
	"shopify":   {"shopify", "shop.app"},
	"meta":      {"meta business", "meta ads", "meta support", "meta platform"},
	"facebook":  {"facebook", "fb ads", "fb business"},
	"instagram": {"instagram", "ig business"},
	"tiktok":    {"tiktok", "tik tok"},
	"google":    {"google ads", "google business", "google merchant"},
	"paypal":    {"paypal"},
	"stripe":    {"stripe"},
}

var spamSenderPatterns = compileAll(
	`@.*\.edu\.`,
	`@.*\.ac\.`,
	`@mail\.ru$`,
	`@.*omnisend\.com$`,
	`shopify.*@gmail\.com`,
	`shopify.*@outlook\.com`,
	`shopify.*@hotmail\.com`,
	`meta.*@gmail\.com`,
	`facebook.*@gmail\.com`,
	`instagram.*@gmail\.com`,
	`support\..*@gmail\.com`,
	`info\..*@gmail\.com`,
	`contact\..*@gmail\.com`,
	`sales\..*@gmail\.com`,
	`marketing\..*@gmail\.com`,
	`official\..*@gmail\.com`,
)

var spamSubjectPatterns = compileAll(
	`account.*suspend`,
	`account.*restrict`,
	`compte.*suspendu`,
	`compte.*restreint`,
	`violation.*policy`,
	`verify.*account`,
	`v[ée]rif.*compte`,
	`confirm.*identity`,
	`update.*payment`,
	`unusual.*activity`,
	`lottery.*winner`,
	`^hello$`,
	`^hi$`,
	`^hey$`,
	`^urgent$`,
	`^quick.*chat$`,
	`^partnership$`,
	`^collaboration$`,
	`quick.*idea`,
	`id[ée]e.*rapide`,
	`boost.*your.*business`,
	`grow.*your.*business`,
	`increase.*your.*sales`,
	`augment.*vos.*ventes`,
	`partnership.*opportunity`,
	`business.*proposal`,
	`proposition.*commerciale`,
	`seo.*services`,
	`rank.*google`,
	`web.*design.*development`,
)

// clientPatterns identify a real customer talking about their own order.
// These short-circuit every other signal: a customer is never spam.
var clientPatterns = compileAll(
	`ma\s*commande`,
	`mon\s*colis`,
	`my\s*order`,
	`my\s*parcel`,
	`order\s*#?\d{3,}`,
	`commande\s*#?\d{3,}`,
	`num[ée]ro\s*de\s*(commande|suivi)`,
	`tracking\s*number`,
	`o[ùu]\s*est\s*ma`,
	`where\s*is\s*my`,
	`i\s*want\s*to\s*return`,
	`je\s*souhaite\s*retourner`,
	`remboursement\s*de\s*ma`,
	`refund\s*for\s*my`,
)

var suspiciousSenderNames = []string{
	"facebook", "meta", "tiktok", "instagram", "support", "security", "admin",
	"agency", "marketing", "growth", "expert", "consultant", "solutions",
	"digital", "media", "boost", "promo", "sales",
}

var genericGmailLocal = regexp.MustCompile(`^[a-z]+\d{2,}$`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// SpamVerdict is the outcome of screening one inbound message.
type SpamVerdict struct {
	Spam   bool
	Score  float64
	Reason string
}

// ScreenSpam scores an inbound message before it enters the pipeline.
// Brand impersonation is always spam; a message about the customer's own
// order never is.
func ScreenSpam(senderEmail, senderName, subject, body string) SpamVerdict {
	sender := strings.ToLower(senderEmail)
	name := strings.ToLower(senderName)
	subj := strings.ToLower(subject)
	text := subj + " " + name + " " + strings.ToLower(body)

	if brand := impersonatedBrand(sender, text); brand != "" {
		return SpamVerdict{Spam: true, Score: 1.0, Reason: "fake_brand:" + brand}
	}

	for _, p := range clientPatterns {
		if p.MatchString(subj + " " + strings.ToLower(body)) {
			return SpamVerdict{Reason: "real_client"}
		}
	}

	var (
		score   float64
		reasons []string
	)

	for _, p := range spamSenderPatterns {
		if p.MatchString(sender) {
			score += 0.4
			reasons = append(reasons, "sender_pattern")
			break
		}
	}

	subjectMatches := 0
	for _, p := range spamSubjectPatterns {
		if p.MatchString(subj) {
			subjectMatches++
			if subjectMatches == 1 {
				score += 0.35
				reasons = append(reasons, "subject_pattern")
			} else {
				score += 0.1
			}
		}
	}

	for _, word := range suspiciousSenderNames {
		if strings.Contains(name, word) {
			score += 0.35
			reasons = append(reasons, "suspicious_name:"+word)
			break
		}
	}

	if strings.HasSuffix(sender, "@gmail.com") {
		local := strings.SplitN(sender, "@", 2)[0]
		if genericGmailLocal.MatchString(local) {
			score += 0.3
			reasons = append(reasons, "gmail_generic_pattern")
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	verdict := SpamVerdict{Score: score, Spam: score >= spamThreshold}
	if len(reasons) > 0 {
		verdict.Reason = strings.Join(reasons, "; ")
	} else {
		verdict.Reason = "no_match"
	}
	return verdict
}

// impersonatedBrand returns the brand name when the message mentions a known
// brand but the sender domain is not one of that brand's official domains.
func impersonatedBrand(sender, text string) string {
	for brand, keywords := range brandKeywords {
		mentioned := false
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				mentioned = true
				break
			}
		}
		if !mentioned {
			continue
		}
		official := false
		for _, d := range officialDomains[brand] {
			if strings.Contains(sender, d) {
				official = true
				break
			}
		}
		if !official {
			return brand
		}
	}
	return ""
}
