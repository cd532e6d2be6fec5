package handlers

import (
	"time"

	"github.com/spacesedan/complaintflow/internal/models"
)

type ConfidenceView struct {
	Category  float64 `json:"category"`
	Sentiment float64 `json:"sentiment"`
}

// ComplaintView is a complaint rendered for clients, with times in the
// display timezone.
type ComplaintView struct {
	ID              string         `json:"id"`
	CustomerName    string         `json:"customer_name"`
	CustomerEmail   string         `json:"customer_email"`
	Text            string         `json:"text"`
	Category        string         `json:"category"`
	Sentiment       string         `json:"sentiment"`
	Priority        string         `json:"priority"`
	Status          string         `json:"status"`
	SuggestedAction string         `json:"suggested_action"`
	Confidence      ConfidenceView `json:"confidence"`
	Polarity        float64        `json:"polarity"`
	CreatedAt       string         `json:"created_at"`
	ResponseDueAt   string         `json:"response_due_at"`
	HoursRemaining  int            `json:"hours_remaining"`
	IsOverdue       bool           `json:"is_overdue"`
	ResolvedAt      *string        `json:"resolved_at"`
}

type ListView struct {
	Complaints []ComplaintView `json:"complaints"`
	Count      int             `json:"count"`
}

func newComplaintView(c models.Complaint, loc *time.Location, now time.Time) ComplaintView {
	// Truncates toward zero, so 90 minutes overdue still reads -1.
	hours := int(c.ResponseDueAt.Sub(now).Hours())

	v := ComplaintView{
		ID:              c.ID,
		CustomerName:    c.CustomerName,
		CustomerEmail:   c.CustomerEmail,
		Text:            c.Text,
		Category:        string(c.Category),
		Sentiment:       string(c.Sentiment),
		Priority:        string(c.Priority),
		Status:          string(c.Status),
		SuggestedAction: c.SuggestedAction,
		Confidence: ConfidenceView{
			Category:  c.CategoryConfidence,
			Sentiment: c.SentimentConfidence,
		},
		Polarity:       c.Polarity,
		CreatedAt:      c.CreatedAt.In(loc).Format(time.RFC3339),
		ResponseDueAt:  c.ResponseDueAt.In(loc).Format(time.RFC3339),
		HoursRemaining: hours,
		IsOverdue:      hours < 0,
	}
	if c.ResolvedAt != nil {
		s := c.ResolvedAt.In(loc).Format(time.RFC3339)
		v.ResolvedAt = &s
	}
	return v
}
