package db

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/spacesedan/complaintflow/internal/models"
)

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrDuplicateID       = errors.New("complaint already exists")
)

const (
	recentWindow  = 7 * 24 * time.Hour
	topIssueLimit = 3
)

// Repository persists complaints. Implementations own status transitions.
type Repository interface {
	Create(ctx context.Context, c models.Complaint) error
	Get(ctx context.Context, id string) (models.Complaint, error)
	List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error)
	// UpdateStatus stamps resolved_at when moving to resolved and clears it otherwise.
	UpdateStatus(ctx context.Context, id string, status models.Status, at time.Time) (models.Complaint, error)
	// Delete returns the removed complaint.
	Delete(ctx context.Context, id string) (models.Complaint, error)
	Analytics(ctx context.Context, now time.Time) (*models.Analytics, error)
	Ping(ctx context.Context) error
}

func validStatus(s models.Status) bool {
	switch s {
	case models.StatusOpen, models.StatusInProgress, models.StatusResolved:
		return true
	}
	return false
}

// resolvedAtFor returns the resolved_at value a status change should store.
func resolvedAtFor(status models.Status, at time.Time) *time.Time {
	if status != models.StatusResolved {
		return nil
	}
	t := at.UTC()
	return &t
}

// sortNewestFirst orders by created_at descending, then id for stability.
func sortNewestFirst(cs []models.Complaint) {
	slices.SortFunc(cs, func(a, b models.Complaint) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Summarize aggregates analytics in memory for backends without GROUP BY.
func Summarize(complaints []models.Complaint, now time.Time) *models.Analytics {
	a := models.NewAnalytics()
	weekAgo := now.Add(-recentWindow)
	recent := map[models.Category]int{}

	var (
		resolved      int
		onTime        int
		responseHours float64
		polarity      float64
	)

	for _, c := range complaints {
		a.TotalComplaints++
		a.Categories[string(c.Category)]++
		a.Sentiments[string(c.Sentiment)]++
		a.Priorities[string(c.Priority)]++
		a.Statuses[string(c.Status)]++
		polarity += c.Polarity

		if !c.CreatedAt.Before(weekAgo) {
			a.RecentTrends["last_7_days"]++
			recent[c.Category]++
		}

		if c.ResolvedAt != nil {
			resolved++
			responseHours += c.ResolvedAt.Sub(c.CreatedAt).Hours()
			if !c.ResolvedAt.After(c.ResponseDueAt) {
				onTime++
			}
		}
	}

	a.CSATScore = models.CSATScore(a.Sentiments, a.TotalComplaints)
	a.SLACompliance = models.SLACompliancePercent(resolved, onTime)
	if resolved > 0 {
		a.AvgResponseTime = models.RoundTo(responseHours/float64(resolved), 1)
	}
	if a.TotalComplaints > 0 {
		a.AvgPolarity = models.RoundTo(polarity/float64(a.TotalComplaints), 3)
	}
	a.TopIssues = topIssues(recent)
	return a
}

// topIssues ranks by count descending, then category name.
func topIssues(counts map[models.Category]int) []models.IssueCount {
	issues := make([]models.IssueCount, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			issues = append(issues, models.IssueCount{Category: c, Count: n})
		}
	}
	slices.SortFunc(issues, func(a, b models.IssueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	if len(issues) > topIssueLimit {
		issues = issues[:topIssueLimit]
	}
	return issues
}
