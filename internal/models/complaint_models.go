package models

import (
	"math"
	"strings"
	"time"
)

type Category string

const (
	CategoryBilling          Category = "Billing Issues"
	CategoryDelivery         Category = "Delivery Issues"
	CategoryProductQuality   Category = "Product Quality"
	CategoryRefund           Category = "Refund Requests"
	CategoryAccount          Category = "Account Issues"
	CategoryServiceQuality   Category = "Service Quality"
	CategoryTechnicalSupport Category = "Technical Support"
)

// Categories lists every category in canonical order. Keyword scoring
// breaks ties in this order.
var Categories = []Category{
	CategoryBilling,
	CategoryDelivery,
	CategoryProductQuality,
	CategoryRefund,
	CategoryAccount,
	CategoryServiceQuality,
	CategoryTechnicalSupport,
}

// CandidateLabels is the label order offered to the zero-shot classifier.
var CandidateLabels = []string{
	string(CategoryBilling),
	string(CategoryDelivery),
	string(CategoryTechnicalSupport),
	string(CategoryProductQuality),
	string(CategoryServiceQuality),
	string(CategoryRefund),
	string(CategoryAccount),
}

func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, true
	case SentimentNegative:
		return SentimentNegative, true
	case SentimentNeutral:
		return SentimentNeutral, true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	}
	return "", false
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOpen:
		return StatusOpen, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusResolved:
		return StatusResolved, true
	}
	return "", false
}

// Source records which path produced a label.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceKeywords Source = "keywords"
)

type CategoryResult struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
}

type SentimentResult struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Source     Source    `json:"source"`
}

type TriageOutcome struct {
	Priority        Priority  `json:"priority"`
	ResponseDueAt   time.Time `json:"response_due_at"`
	SuggestedAction string    `json:"suggested_action"`
}

type Confidence struct {
	Category  float64 `json:"category"`
	Sentiment float64 `json:"sentiment"`
}

type Sources struct {
	Category  Source `json:"category"`
	Sentiment Source `json:"sentiment"`
}

// AnalysisResult is built once per complaint and never modified.
type AnalysisResult struct {
	Category        Category   `json:"category"`
	Sentiment       Sentiment  `json:"sentiment"`
	Priority        Priority   `json:"priority"`
	SuggestedAction string     `json:"suggested_action"`
	ResponseDueAt   time.Time  `json:"response_due_at"`
	Confidence      Confidence `json:"confidence"`
	Sources         Sources    `json:"sources"`
	Polarity        float64    `json:"polarity"`
}

// Complaint is the persisted record.
type Complaint struct {
	ID                  string     `json:"id" dynamodbav:"id"`
	CustomerName        string     `json:"customer_name" dynamodbav:"customer_name"`
	CustomerEmail       string     `json:"customer_email" dynamodbav:"customer_email"`
	Text                string     `json:"text" dynamodbav:"text"`
	Category            Category   `json:"category" dynamodbav:"category"`
	Sentiment           Sentiment  `json:"sentiment" dynamodbav:"sentiment"`
	Priority            Priority   `json:"priority" dynamodbav:"priority"`
	Status              Status     `json:"status" dynamodbav:"status"`
	SuggestedAction     string     `json:"suggested_action" dynamodbav:"suggested_action"`
	CategoryConfidence  float64    `json:"category_confidence" dynamodbav:"category_confidence"`
	SentimentConfidence float64    `json:"sentiment_confidence" dynamodbav:"sentiment_confidence"`
	Polarity            float64    `json:"polarity" dynamodbav:"polarity"`
	CreatedAt           time.Time  `json:"created_at" dynamodbav:"created_at"`
	ResponseDueAt       time.Time  `json:"response_due_at" dynamodbav:"response_due_at"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty" dynamodbav:"resolved_at,omitempty"`
}

// NewComplaint attaches an identity and an open status to an analysis.
func NewComplaint(id, name, email, text string, a AnalysisResult, createdAt time.Time) Complaint {
	return Complaint{
		ID:                  id,
		CustomerName:        name,
		CustomerEmail:       email,
		Text:                text,
		Category:            a.Category,
		Sentiment:           a.Sentiment,
		Priority:            a.Priority,
		Status:              StatusOpen,
		SuggestedAction:     a.SuggestedAction,
		CategoryConfidence:  a.Confidence.Category,
		SentimentConfidence: a.Confidence.Sentiment,
		Polarity:            a.Polarity,
		CreatedAt:           createdAt.UTC(),
		ResponseDueAt:       a.ResponseDueAt.UTC(),
	}
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ComplaintFilter narrows a listing. Zero values match everything.
type ComplaintFilter struct {
	Category  Category
	Sentiment Sentiment
	Priority  Priority
	Status    Status
	Limit     int
}

func (f ComplaintFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

func (f ComplaintFilter) Matches(c Complaint) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Sentiment != "" && c.Sentiment != f.Sentiment {
		return false
	}
	if f.Priority != "" && c.Priority != f.Priority {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
