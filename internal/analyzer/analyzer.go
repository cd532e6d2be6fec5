package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spacesedan/complaintflow/internal/models"
	"github.com/spacesedan/complaintflow/internal/sentiment"
	"github.com/spacesedan/complaintflow/internal/triage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("complaintflow/analyzer")

const (
	DefaultMinLength = 15
	DefaultContact   = "customer@example.com"
)

type CategoryClassifier interface {
	Classify(ctx context.Context, text string) models.CategoryResult
}

type SentimentDetector interface {
	Detect(ctx context.Context, text string) models.SentimentResult
}

type AnalysisObserver interface {
	ObserveAnalysis(category, priority string, elapsed time.Duration)
}

type Options struct {
	MinLength      int
	DefaultContact string
	Now            func() time.Time
	Metrics        AnalysisObserver
}

// Analyzer turns complaint text into a triaged AnalysisResult. It holds no
// per-request state and is safe for concurrent use.
type Analyzer struct {
	classifier CategoryClassifier
	detector   SentimentDetector
	minLength  int
	contact    string
	now        func() time.Time
	metrics    AnalysisObserver
}

func New(classifier CategoryClassifier, detector SentimentDetector, opts Options) *Analyzer {
	a := &Analyzer{
		classifier: classifier,
		detector:   detector,
		minLength:  opts.MinLength,
		contact:    opts.DefaultContact,
		now:        opts.Now,
		metrics:    opts.Metrics,
	}
	if a.minLength <= 0 {
		a.minLength = DefaultMinLength
	}
	if a.contact == "" {
		a.contact = DefaultContact
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Validate checks the text without side effects.
func (a *Analyzer) Validate(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.NewError(models.KindValidation, "complaint text is required", nil)
	}
	if utf8.RuneCountInString(trimmed) < a.minLength {
		return models.NewError(models.KindValidation,
			fmt.Sprintf("please provide more details (minimum %d characters)", a.minLength), nil)
	}
	return nil
}

func (a *Analyzer) Analyze(ctx context.Context, text, contact string) (result models.AnalysisResult, err error) {
	ctx, span := tracer.Start(ctx, "analyzer.Analyze")
	defer span.End()

	if err := a.Validate(text); err != nil {
		span.SetStatus(codes.Error, "validation")
		return models.AnalysisResult{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Analyzer] Recovered from panic", slog.Any("panic", r))
			result = models.AnalysisResult{}
			err = models.NewError(models.KindAnalysis, "analysis failed", fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(models.KindOf(err)))
		}
	}()

	start := time.Now()
	text = strings.TrimSpace(text)
	if contact == "" {
		contact = a.contact
	}

	category, sent, err := a.runSignals(ctx, text)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	if ctx.Err() != nil {
		return models.AnalysisResult{}, cancelled(ctx.Err())
	}

	outcome := triage.Decide(category.Category, sent.Sentiment, text, contact, a.now())

	result = models.AnalysisResult{
		Category:        category.Category,
		Sentiment:       sent.Sentiment,
		Priority:        outcome.Priority,
		SuggestedAction: outcome.SuggestedAction,
		ResponseDueAt:   outcome.ResponseDueAt,
		Confidence: models.Confidence{
			Category:  category.Confidence,
			Sentiment: sent.Confidence,
		},
		Sources: models.Sources{
			Category:  category.Source,
			Sentiment: sent.Source,
		},
		Polarity: sentiment.Polarity(text),
	}

	elapsed := time.Since(start)
	if a.metrics != nil {
		a.metrics.ObserveAnalysis(string(result.Category), string(result.Priority), elapsed)
	}

	span.SetAttributes(
		attribute.String("category", string(result.Category)),
		attribute.String("sentiment", string(result.Sentiment)),
		attribute.String("priority", string(result.Priority)),
	)
	slog.Info("[Analyzer] Complaint analyzed",
		slog.String("category", string(result.Category)),
		slog.String("sentiment", string(result.Sentiment)),
		slog.String("priority", string(result.Priority)),
		slog.String("category_source", string(result.Sources.Category)),
		slog.String("sentiment_source", string(result.Sources.Sentiment)),
		slog.Duration("elapsed", elapsed))

	return result, nil
}

// runSignals classifies and detects sentiment concurrently. Each side always
// yields a result, so one failing never blocks the other's fallback.
func (a *Analyzer) runSignals(ctx context.Context, text string) (models.CategoryResult, models.SentimentResult, error) {
	var (
		wg        sync.WaitGroup
		category  models.CategoryResult
		sent      models.SentimentResult
		panicsMu  sync.Mutex
		panicked  []any
		recordErr = func() {
			if r := recover(); r != nil {
				panicsMu.Lock()
				panicked = append(panicked, r)
				panicsMu.Unlock()
			}
		}
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recordErr()
		category = a.classifier.Classify(ctx, text)
	}()
	go func() {
		defer wg.Done()
		defer recordErr()
		sent = a.detector.Detect(ctx, text)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return models.CategoryResult{}, models.SentimentResult{}, cancelled(ctx.Err())
	case <-done:
	}

	if len(panicked) > 0 {
		slog.Error("[Analyzer] Signal step panicked", slog.Any("panic", panicked[0]))
		return models.CategoryResult{}, models.SentimentResult{},
			models.NewError(models.KindAnalysis, "analysis failed", fmt.Errorf("panic: %v", panicked[0]))
	}
	return category, sent, nil
}

func cancelled(err error) error {
	return models.NewError(models.KindAnalysis, "analysis cancelled", err)
}
