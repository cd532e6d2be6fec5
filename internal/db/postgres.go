package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spacesedan/complaintflow/internal/models"
)

const complaintColumns = "id, customer_name, customer_email, text, category, sentiment, priority, status, suggested_action, category_confidence, sentiment_confidence, polarity, created_at, response_due_at, resolved_at"

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS complaints (
	id                   TEXT PRIMARY KEY,
	customer_name        TEXT NOT NULL,
	customer_email       TEXT NOT NULL,
	text                 TEXT NOT NULL,
	category             TEXT NOT NULL,
	sentiment            TEXT NOT NULL,
	priority             TEXT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'open',
	suggested_action     TEXT NOT NULL,
	category_confidence  DOUBLE PRECISION NOT NULL,
	sentiment_confidence DOUBLE PRECISION NOT NULL,
	polarity             DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL,
	response_due_at      TIMESTAMPTZ NOT NULL,
	resolved_at          TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS complaints_created_at_idx ON complaints (created_at DESC);
CREATE INDEX IF NOT EXISTS complaints_status_idx ON complaints (status);
`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type PostgresRepository struct {
	db querier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("db: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// Migrate creates the complaints table and its indexes if missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("db: migrate complaints: %w", err)
	}
	slog.Info("[DB] Complaints schema ready")
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, c models.Complaint) error {
	query := `INSERT INTO complaints (` + complaintColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.CustomerName, c.CustomerEmail, c.Text,
		string(c.Category), string(c.Sentiment), string(c.Priority), string(c.Status),
		c.SuggestedAction, c.CategoryConfidence, c.SentimentConfidence, c.Polarity,
		c.CreatedAt, c.ResponseDueAt, c.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("db: create %s: %w", c.ID, ErrDuplicateID)
		}
		return fmt.Errorf("db: create complaint: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	c, err := scanComplaint(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return models.Complaint{}, notFoundOr(err, "get", id)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, column+" = $"+strconv.Itoa(len(args)))
	}
	add("category", string(f.Category))
	add("sentiment", string(f.Sentiment))
	add("priority", string(f.Priority))
	add("status", string(f.Status))

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.EffectiveLimit())
	query += ` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: list complaints: %w", err)
	}
	defer rows.Close()

	out := []models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("db: scan complaint: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: list complaints: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.Status, at time.Time) (models.Complaint, error) {
	if !validStatus(status) {
		return models.Complaint{}, fmt.Errorf("db: update %s to %q: %w", id, status, ErrInvalidStatus)
	}

	query := `UPDATE complaints SET status = $2, resolved_at = $3 WHERE id = $1 RETURNING ` + complaintColumns
	c, err := scanComplaint(r.db.QueryRow(ctx, query, id, string(status), resolvedAtFor(status, at)))
	if err != nil {
		return models.Complaint{}, notFoundOr(err, "update", id)
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (models.Complaint, error) {
	query := `DELETE FROM complaints WHERE id = $1 RETURNING ` + complaintColumns
	c, err := scanComplaint(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return models.Complaint{}, notFoundOr(err, "delete", id)
	}
	return c, nil
}

func (r *PostgresRepository) Analytics(ctx context.Context, now time.Time) (*models.Analytics, error) {
	a := models.NewAnalytics()
	weekAgo := now.Add(-recentWindow).UTC()

	rows, err := r.db.Query(ctx, `SELECT category, sentiment, priority, status, COUNT(*) FROM complaints GROUP BY category, sentiment, priority, status`)
	if err != nil {
		return nil, fmt.Errorf("db: analytics breakdown: %w", err)
	}
	for rows.Next() {
		var category, sentiment, priority, status string
		var n int
		if err := rows.Scan(&category, &sentiment, &priority, &status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("db: scan breakdown: %w", err)
		}
		a.TotalComplaints += n
		a.Categories[category] += n
		a.Sentiments[sentiment] += n
		a.Priorities[priority] += n
		a.Statuses[status] += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: analytics breakdown: %w", err)
	}

	var (
		recent, resolved, onTime int
		avgHours, avgPolarity    float64
	)
	statsQuery := `SELECT COUNT(*) FILTER (WHERE created_at >= $1), COUNT(*) FILTER (WHERE resolved_at IS NOT NULL), COUNT(*) FILTER (WHERE resolved_at IS NOT NULL AND resolved_at <= response_due_at), COALESCE(AVG(EXTRACT(EPOCH FROM resolved_at - created_at) / 3600) FILTER (WHERE resolved_at IS NOT NULL), 0)::float8, COALESCE(AVG(polarity), 0)::float8 FROM complaints`
	if err := r.db.QueryRow(ctx, statsQuery, weekAgo).Scan(&recent, &resolved, &onTime, &avgHours, &avgPolarity); err != nil {
		return nil, fmt.Errorf("db: analytics stats: %w", err)
	}

	topRows, err := r.db.Query(ctx, `SELECT category, COUNT(*) AS n FROM complaints WHERE created_at >= $1 GROUP BY category ORDER BY n DESC, category LIMIT $2`, weekAgo, topIssueLimit)
	if err != nil {
		return nil, fmt.Errorf("db: analytics top issues: %w", err)
	}
	defer topRows.Close()
	for topRows.Next() {
		var category string
		var n int
		if err := topRows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("db: scan top issue: %w", err)
		}
		a.TopIssues = append(a.TopIssues, models.IssueCount{Category: models.Category(category), Count: n})
	}
	if err := topRows.Err(); err != nil {
		return nil, fmt.Errorf("db: analytics top issues: %w", err)
	}

	a.RecentTrends["last_7_days"] = recent
	a.CSATScore = models.CSATScore(a.Sentiments, a.TotalComplaints)
	a.SLACompliance = models.SLACompliancePercent(resolved, onTime)
	a.AvgResponseTime = models.RoundTo(avgHours, 1)
	a.AvgPolarity = models.RoundTo(avgPolarity, 3)
	return a, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanComplaint(row pgx.Row) (models.Complaint, error) {
	var (
		c                                     models.Complaint
		category, sentiment, priority, status string
		resolvedAt                            *time.Time
	)
	err := row.Scan(
		&c.ID, &c.CustomerName, &c.CustomerEmail, &c.Text,
		&category, &sentiment, &priority, &status,
		&c.SuggestedAction, &c.CategoryConfidence, &c.SentimentConfidence, &c.Polarity,
		&c.CreatedAt, &c.ResponseDueAt, &resolvedAt,
	)
	if err != nil {
		return models.Complaint{}, err
	}
	c.Category = models.Category(category)
	c.Sentiment = models.Sentiment(sentiment)
	c.Priority = models.Priority(priority)
	c.Status = models.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.ResponseDueAt = c.ResponseDueAt.UTC()
	if resolvedAt != nil {
		t := resolvedAt.UTC()
		c.ResolvedAt = &t
	}
	return c, nil
}

func notFoundOr(err error, op, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("db: %s %s: %w", op, id, ErrComplaintNotFound)
	}
	return fmt.Errorf("db: %s %s: %w", op, id, err)
}
