package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spacesedan/complaintflow/internal/clients/kafka_client"
	"github.com/spacesedan/complaintflow/internal/db"
	"github.com/spacesedan/complaintflow/internal/models"
)

const (
	minNameLength = 2
	maxNameLength = 100
	maxTextLength = 2000
	maxBodyBytes  = 1 << 20

	publishTimeout = 5 * time.Second
)

type ComplaintAnalyzer interface {
	Analyze(ctx context.Context, text, contact string) (models.AnalysisResult, error)
}

type PublishFailureObserver interface {
	ObservePublishFailure(eventType string)
}

type Options struct {
	Location        *time.Location
	AnalysisTimeout time.Duration
	OracleHealthy   *atomic.Bool
	Metrics         PublishFailureObserver
	Now             func() time.Time
	NewID           func() string
}

// Handler serves the complaint API on top of a repository and an analyzer.
type Handler struct {
	analyzer  ComplaintAnalyzer
	repo      db.Repository
	publisher kafka_client.Publisher
	metrics   PublishFailureObserver
	loc       *time.Location
	timeout   time.Duration
	healthy   *atomic.Bool
	now       func() time.Time
	newID     func() string
}

func NewHandler(analyzer ComplaintAnalyzer, repo db.Repository, publisher kafka_client.Publisher, opts Options) *Handler {
	h := &Handler{
		analyzer:  analyzer,
		repo:      repo,
		publisher: publisher,
		metrics:   opts.Metrics,
		loc:       opts.Location,
		timeout:   opts.AnalysisTimeout,
		healthy:   opts.OracleHealthy,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if h.publisher == nil {
		h.publisher = kafka_client.NoopPublisher{}
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = uuid.NewString
	}
	return h
}

type createComplaintRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Text          string `json:"text"`
}

func (req *createComplaintRequest) normalize() error {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.Text = strings.TrimSpace(req.Text)

	if n := utf8.RuneCountInString(req.CustomerName); n < minNameLength || n > maxNameLength {
		return models.NewError(models.KindValidation,
			fmt.Sprintf("customer_name must be between %d and %d characters", minNameLength, maxNameLength), nil)
	}
	addr, err := mail.ParseAddress(req.CustomerEmail)
	if err != nil || addr.Address != req.CustomerEmail {
		return models.NewError(models.KindValidation, "customer_email must be a valid email address", err)
	}
	if utf8.RuneCountInString(req.Text) > maxTextLength {
		return models.NewError(models.KindValidation,
			fmt.Sprintf("text must be at most %d characters", maxTextLength), nil)
	}
	return nil
}

func (h *Handler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	var req createComplaintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, models.NewError(models.KindValidation, "invalid JSON body", err))
		return
	}
	if err := req.normalize(); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.analyzer.Analyze(ctx, req.Text, req.CustomerEmail)
	if err != nil {
		slog.Warn("[Handlers] Analysis failed",
			slog.String("kind", string(models.KindOf(err))),
			slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	now := h.now()
	complaint := models.NewComplaint(h.newID(), req.CustomerName, req.CustomerEmail, req.Text, result, now)
	if err := h.repo.Create(r.Context(), complaint); err != nil {
		slog.Error("[Handlers] Failed to store complaint",
			slog.String("id", complaint.ID),
			slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	slog.Info("[Handlers] Complaint registered",
		slog.String("id", complaint.ID),
		slog.String("category", string(complaint.Category)),
		slog.String("priority", string(complaint.Priority)))

	h.publish(r.Context(), models.NewComplaintEvent(models.EventComplaintCreated, complaint, now))
	writeJSON(w, http.StatusCreated, newComplaintView(complaint, h.loc, now))
}

func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	complaints, err := h.repo.List(r.Context(), filter)
	if err != nil {
		slog.Error("[Handlers] Failed to list complaints", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	now := h.now()
	views := make([]ComplaintView, 0, len(complaints))
	for _, c := range complaints {
		views = append(views, newComplaintView(c, h.loc, now))
	}
	writeJSON(w, http.StatusOK, ListView{Complaints: views, Count: len(views)})
}

func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newComplaintView(c, h.loc, h.now()))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" && r.ContentLength != 0 {
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, models.NewError(models.KindValidation, "invalid JSON body", err))
			return
		}
		raw = body.Status
	}

	status, ok := models.ParseStatus(raw)
	if !ok {
		writeError(w, models.NewError(models.KindValidation,
			fmt.Sprintf("invalid status %q", raw), db.ErrInvalidStatus))
		return
	}

	now := h.now()
	c, err := h.repo.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status, now)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("[Handlers] Complaint status updated",
		slog.String("id", c.ID),
		slog.String("status", string(c.Status)))

	h.publish(r.Context(), models.NewComplaintEvent(models.EventComplaintStatusChanged, c, now))
	writeJSON(w, http.StatusOK, newComplaintView(c, h.loc, now))
}

func (h *Handler) DeleteComplaint(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	c, err := h.repo.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("[Handlers] Complaint deleted", slog.String("id", c.ID))
	h.publish(r.Context(), models.NewComplaintEvent(models.EventComplaintDeleted, c, now))
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "complaint deleted",
		"id":      c.ID,
	})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.repo.Analytics(r.Context(), h.now())
	if err != nil {
		slog.Error("[Handlers] Failed to compute analytics", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type healthResponse struct {
	Status   string `json:"status"`
	Oracle   bool   `json:"oracle"`
	Database string `json:"database"`
}

// Health reports degraded rather than failing when the oracle is down,
// since keyword fallbacks still serve requests. Storage failures are fatal.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Database: "ok"}
	if h.healthy != nil {
		resp.Oracle = h.healthy.Load()
	}
	if !resp.Oracle {
		resp.Status = "degraded"
	}

	code := http.StatusOK
	if err := h.repo.Ping(r.Context()); err != nil {
		slog.Warn("[Handlers] Storage ping failed", slog.String("error", err.Error()))
		resp.Status = "unhealthy"
		resp.Database = "unreachable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// publish never fails the request.
func (h *Handler) publish(ctx context.Context, event models.ComplaintEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := h.publisher.Publish(ctx, event); err != nil {
		slog.Warn("[Handlers] Failed to publish complaint event",
			slog.String("type", string(event.Type)),
			slog.String("complaint_id", event.ComplaintID),
			slog.String("error", err.Error()))
		if h.metrics != nil {
			h.metrics.ObservePublishFailure(string(event.Type))
		}
	}
}

func parseFilter(r *http.Request) (models.ComplaintFilter, error) {
	q := r.URL.Query()
	var f models.ComplaintFilter

	if v := q.Get("category"); v != "" {
		c, ok := models.ParseCategory(v)
		if !ok {
			return f, models.NewError(models.KindValidation, fmt.Sprintf("invalid category %q", v), nil)
		}
		f.Category = c
	}
	if v := q.Get("sentiment"); v != "" {
		s, ok := models.ParseSentiment(v)
		if !ok {
			return f, models.NewError(models.KindValidation, fmt.Sprintf("invalid sentiment %q", v), nil)
		}
		f.Sentiment = s
	}
	if v := q.Get("priority"); v != "" {
		p, ok := models.ParsePriority(v)
		if !ok {
			return f, models.NewError(models.KindValidation, fmt.Sprintf("invalid priority %q", v), nil)
		}
		f.Priority = p
	}
	if v := q.Get("status"); v != "" {
		s, ok := models.ParseStatus(v)
		if !ok {
			return f, models.NewError(models.KindValidation, fmt.Sprintf("invalid status %q", v), nil)
		}
		f.Status = s
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, models.NewError(models.KindValidation, "limit must be a positive integer", err)
		}
		f.Limit = n
	}
	return f, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[Handlers] Failed to encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := models.MessageOf(err)
	switch {
	case errors.Is(err, db.ErrComplaintNotFound):
		msg = "complaint not found"
	case errors.Is(err, db.ErrDuplicateID):
		msg = "complaint already exists"
	case code == http.StatusInternalServerError && models.KindOf(err) == "":
		msg = "internal server error"
	}
	writeJSON(w, code, map[string]string{"detail": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrComplaintNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	case models.KindConnectivity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
