package triage

import (
	"strings"
	"time"

	"github.com/spacesedan/complaintflow/internal/models"
)

var urgentKeywords = []string{
	"urgent", "asap", "immediately", "emergency", "critical",
	"refund", "fraud", "lawsuit", "legal", "lawyer", "sue",
}

var sensitiveCategories = map[models.Category]bool{
	models.CategoryRefund:  true,
	models.CategoryBilling: true,
	models.CategoryAccount: true,
}

var responseWindows = map[models.Priority]time.Duration{
	models.PriorityHigh:   2 * time.Hour,
	models.PriorityMedium: 24 * time.Hour,
	models.PriorityLow:    48 * time.Hour,
}

// HasUrgentKeyword matches by substring, so "issue" counts as "sue".
func HasUrgentKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func ComputePriority(sentiment models.Sentiment, text string, category models.Category) models.Priority {
	negative := sentiment == models.SentimentNegative
	urgent := HasUrgentKeyword(text)

	switch {
	case negative && urgent:
		return models.PriorityHigh
	case negative || urgent || sensitiveCategories[category]:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// ResponseWindow returns the SLA for a priority. Unknown priorities get the
// medium window.
func ResponseWindow(p models.Priority) time.Duration {
	if w, ok := responseWindows[p]; ok {
		return w
	}
	return responseWindows[models.PriorityMedium]
}

func ComputeResponseDueAt(p models.Priority, now time.Time) time.Time {
	return now.UTC().Add(ResponseWindow(p))
}

// Decide runs priority, due time and action selection in order.
func Decide(category models.Category, sentiment models.Sentiment, text, contact string, now time.Time) models.TriageOutcome {
	priority := ComputePriority(sentiment, text, category)
	return models.TriageOutcome{
		Priority:        priority,
		ResponseDueAt:   ComputeResponseDueAt(priority, now),
		SuggestedAction: SuggestAction(category, sentiment, priority, contact),
	}
}
