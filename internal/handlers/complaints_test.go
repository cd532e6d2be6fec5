package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spacesedan/complaintflow/internal/db"
	"github.com/spacesedan/complaintflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type stubAnalyzer struct {
	result models.AnalysisResult
	err    error
	calls  int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text, contact string) (models.AnalysisResult, error) {
	s.calls++
	return s.result, s.err
}

type recordingPublisher struct {
	events []models.ComplaintEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.ComplaintEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() {}

type failureCounter struct{ failures []string }

func (f *failureCounter) ObservePublishFailure(eventType string) {
	f.failures = append(f.failures, eventType)
}

type brokenRepo struct {
	db.Repository
}

func (brokenRepo) Ping(ctx context.Context) error { return errors.New("connection refused") }

func billingResult() models.AnalysisResult {
	return models.AnalysisResult{
		Category:        models.CategoryBilling,
		Sentiment:       models.SentimentNegative,
		Priority:        models.PriorityHigh,
		SuggestedAction: "Refund the duplicate charge.",
		ResponseDueAt:   testNow.Add(4 * time.Hour),
		Confidence:      models.Confidence{Category: 0.91, Sentiment: 0.8},
		Polarity:        -0.42,
	}
}

type fixture struct {
	analyzer  *stubAnalyzer
	repo      *db.MemoryRepository
	publisher *recordingPublisher
	metrics   *failureCounter
	healthy   *atomic.Bool
	router    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	f := &fixture{
		analyzer:  &stubAnalyzer{result: billingResult()},
		repo:      db.NewMemoryRepository(),
		publisher: &recordingPublisher{},
		metrics:   &failureCounter{},
		healthy:   &atomic.Bool{},
	}
	f.healthy.Store(true)

	ids := 0
	h := NewHandler(f.analyzer, f.repo, f.publisher, Options{
		Location:      loc,
		OracleHealthy: f.healthy,
		Metrics:       f.metrics,
		Now:           func() time.Time { return testNow },
		NewID: func() string {
			ids++
			return "c-" + string(rune('0'+ids))
		},
	})
	f.router = NewRouter(h, []string{"http://localhost:5173"}, nil)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

const validBody = `{"customer_name":"Asha","customer_email":"asha@example.com","text":"I was charged twice for my subscription this month."}`

func TestCreateComplaint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/complaints", validBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	view := decode[ComplaintView](t, rec)
	assert.Equal(t, "c-1", view.ID)
	assert.Equal(t, "Billing Issues", view.Category)
	assert.Equal(t, "open", view.Status)
	assert.Equal(t, "Refund the duplicate charge.", view.SuggestedAction)
	assert.Equal(t, 0.91, view.Confidence.Category)
	assert.Equal(t, "2025-03-10T17:30:00+05:30", view.CreatedAt)
	assert.Equal(t, 4, view.HoursRemaining)
	assert.False(t, view.IsOverdue)
	assert.Nil(t, view.ResolvedAt)

	stored, err := f.repo.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", stored.CustomerEmail)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.EventComplaintCreated, f.publisher.events[0].Type)
}

func TestCreateComplaintValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"customer_name":`},
		{"short name", `{"customer_name":"A","customer_email":"a@example.com","text":"my order never arrived at all"}`},
		{"bad email", `{"customer_name":"Asha","customer_email":"not-an-email","text":"my order never arrived at all"}`},
		{"display name email", `{"customer_name":"Asha","customer_email":"Asha <a@example.com>","text":"my order never arrived at all"}`},
		{"long text", `{"customer_name":"Asha","customer_email":"a@example.com","text":"` + strings.Repeat("x", 2001) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/complaints", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["detail"])
			assert.Zero(t, f.analyzer.calls)
		})
	}
}

func TestCreateComplaintMapsAnalysisErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", models.NewError(models.KindValidation, "please provide more details (minimum 15 characters)", nil), http.StatusBadRequest},
		{"timeout", models.NewError(models.KindTimeout, "request timed out", nil), http.StatusGatewayTimeout},
		{"deadline", models.NewError(models.KindAnalysis, "analysis cancelled", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"connectivity", models.NewError(models.KindConnectivity, "service unreachable", nil), http.StatusServiceUnavailable},
		{"analysis", models.NewError(models.KindAnalysis, "analysis failed", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.analyzer.err = tt.err

			rec := f.do(t, http.MethodPost, "/api/complaints", validBody)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, models.MessageOf(tt.err), decode[map[string]string](t, rec)["detail"])
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestCreateComplaintSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	rec := f.do(t, http.MethodPost, "/api/complaints", validBody)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"complaint.created"}, f.metrics.failures)
}

func TestCreateComplaintConflictOnDuplicateID(t *testing.T) {
	f := newFixture(t)
	existing := models.NewComplaint("c-1", "Ravi", "ravi@example.com", "an earlier complaint text", billingResult(), testNow)
	require.NoError(t, f.repo.Create(context.Background(), existing))

	rec := f.do(t, http.MethodPost, "/api/complaints", validBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "complaint already exists", decode[map[string]string](t, rec)["detail"])
	assert.Empty(t, f.publisher.events)
}

func TestListComplaintsFilters(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/complaints", validBody)
	f.analyzer.result.Category = models.CategoryDelivery
	f.do(t, http.MethodPost, "/api/complaints", validBody)

	rec := f.do(t, http.MethodGet, "/api/complaints?category=Delivery%20Issues", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListView](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "c-2", list.Complaints[0].ID)

	rec = f.do(t, http.MethodGet, "/api/complaints", "")
	assert.Equal(t, 2, decode[ListView](t, rec).Count)

	rec = f.do(t, http.MethodGet, "/api/complaints?priority=urgentish", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/complaints?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetComplaintNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/complaints/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "complaint not found", decode[map[string]string](t, rec)["detail"])
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/complaints", validBody)

	rec := f.do(t, http.MethodPatch, "/api/complaints/c-1/status?status=resolved", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[ComplaintView](t, rec)
	assert.Equal(t, "resolved", view.Status)
	require.NotNil(t, view.ResolvedAt)
	assert.Equal(t, "2025-03-10T17:30:00+05:30", *view.ResolvedAt)

	rec = f.do(t, http.MethodPatch, "/api/complaints/c-1/status", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[ComplaintView](t, rec)
	assert.Equal(t, "in_progress", view.Status)
	assert.Nil(t, view.ResolvedAt)

	require.Len(t, f.publisher.events, 3)
	assert.Equal(t, models.EventComplaintStatusChanged, f.publisher.events[2].Type)
}

func TestUpdateStatusRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/complaints", validBody)

	rec := f.do(t, http.MethodPatch, "/api/complaints/c-1/status?status=closed", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/complaints/nope/status?status=open", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteComplaint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/complaints", validBody)

	rec := f.do(t, http.MethodDelete, "/api/complaints/c-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c-1", decode[map[string]string](t, rec)["id"])

	rec = f.do(t, http.MethodDelete, "/api/complaints/c-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, models.EventComplaintDeleted, f.publisher.events[1].Type)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/complaints", validBody)

	rec := f.do(t, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	a := decode[models.Analytics](t, rec)
	assert.Equal(t, 1, a.TotalComplaints)
	assert.Equal(t, 1, a.Categories["Billing Issues"])
	assert.Equal(t, 1, a.RecentTrends["last_7_days"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthResponse{Status: "healthy", Oracle: true, Database: "ok"}, decode[healthResponse](t, rec))

	f.healthy.Store(false)
	rec = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, "degraded", decode[healthResponse](t, rec).Status)

	h := NewHandler(f.analyzer, brokenRepo{f.repo}, nil, Options{})
	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/complaints", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestComplaintViewOverdue(t *testing.T) {
	c := models.Complaint{
		ID:            "c-9",
		CreatedAt:     testNow.Add(-30 * time.Hour),
		ResponseDueAt: testNow.Add(-90 * time.Minute),
	}
	v := newComplaintView(c, time.UTC, testNow)
	assert.Equal(t, -1, v.HoursRemaining)
	assert.True(t, v.IsOverdue)

	c.ResponseDueAt = testNow.Add(-30 * time.Minute)
	v = newComplaintView(c, time.UTC, testNow)
	assert.Equal(t, 0, v.HoursRemaining)
	assert.False(t, v.IsOverdue)
}
