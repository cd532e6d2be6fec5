package classifier

import (
	"math"
	"strings"

	"github.com/spacesedan/complaintflow/internal/models"
)

const (
	baseConfidence    = 0.85
	perHitConfidence  = 0.02
	maxConfidence     = 0.99
	defaultConfidence = 0.70
)

// categoryKeywords is matched by substring against lower-cased text.
var categoryKeywords = map[models.Category][]string{
	models.CategoryBilling: {
		"bill", "billing", "charge", "charged", "payment", "invoice", "paid",
		"overcharged", "double charge", "subscription", "fee", "cost", "price",
		"credit card", "debit", "transaction", "autopay", "refund",
	},
	models.CategoryDelivery: {
		"deliver", "delivery", "shipping", "shipped", "ship", "late", "delay",
		"arrived", "tracking", "package", "order", "dispatch", "courier",
		"transit", "logistics", "warehouse", "not received", "lost package",
	},
	models.CategoryProductQuality: {
		"broken", "defect", "defective", "quality", "damaged", "faulty",
		"poor quality", "cheap", "deteriorated", "malfunction", "doesn't work",
		"stopped working", "issue with product", "product problem", "warranty",
	},
	models.CategoryRefund: {
		"refund", "return", "money back", "reimbursement", "give back",
		"want my money", "cancellation", "cancel", "exchange", "replacement",
	},
	models.CategoryAccount: {
		"account", "login", "password", "access", "locked", "suspended",
		"can't log in", "username", "profile", "sign in", "authentication",
		"verify", "verification", "reset", "blocked",
	},
	models.CategoryServiceQuality: {
		"support", "service", "representative", "agent", "staff", "employee",
		"rude", "unhelpful", "poor service", "bad service", "customer care",
		"help desk", "no response", "ignored", "waiting", "attitude",
	},
	models.CategoryTechnicalSupport: {
		"bug", "error", "crash", "technical", "app", "website", "system",
		"not working", "glitch", "freeze", "slow", "loading", "connection",
		"software", "update", "feature", "functionality", "interface", "dark mode",
	},
}

// Keywords returns the keyword list for a category.
func Keywords(c models.Category) []string {
	return categoryKeywords[c]
}

// Scores counts distinct keyword hits per category.
func Scores(text string) map[models.Category]int {
	lower := strings.ToLower(text)
	scores := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		n := 0
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(lower, kw) {
				n++
			}
		}
		scores[c] = n
	}
	return scores
}

// ClassifyByKeywords picks the category with the most keyword hits. Ties go
// to the category listed first in models.Categories.
func ClassifyByKeywords(text string) models.CategoryResult {
	scores := Scores(text)

	var best models.Category
	bestScore := 0
	for _, c := range models.Categories {
		if scores[c] > bestScore {
			best, bestScore = c, scores[c]
		}
	}

	if bestScore == 0 {
		return models.CategoryResult{
			Category:   models.CategoryServiceQuality,
			Confidence: defaultConfidence,
			Source:     models.SourceKeywords,
		}
	}

	confidence := math.Min(baseConfidence+perHitConfidence*float64(bestScore), maxConfidence)
	return models.CategoryResult{
		Category:   best,
		Confidence: models.RoundTo(confidence, 3),
		Source:     models.SourceKeywords,
	}
}
