package analyzer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spacesedan/complaintflow/internal/classifier"
	"github.com/spacesedan/complaintflow/internal/models"
	"github.com/spacesedan/complaintflow/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type classifierFunc func(ctx context.Context, text string) models.CategoryResult

func (f classifierFunc) Classify(ctx context.Context, text string) models.CategoryResult {
	return f(ctx, text)
}

type detectorFunc func(ctx context.Context, text string) models.SentimentResult

func (f detectorFunc) Detect(ctx context.Context, text string) models.SentimentResult {
	return f(ctx, text)
}

func fixedClassifier(c models.Category) classifierFunc {
	return func(ctx context.Context, text string) models.CategoryResult {
		return models.CategoryResult{Category: c, Confidence: 0.9, Source: models.SourceOracle}
	}
}

func fixedDetector(s models.Sentiment) detectorFunc {
	return func(ctx context.Context, text string) models.SentimentResult {
		return models.SentimentResult{Sentiment: s, Confidence: 0.8, Source: models.SourceOracle}
	}
}

type analysisRecorder struct {
	calls int
	last  string
}

func (r *analysisRecorder) ObserveAnalysis(category, priority string, elapsed time.Duration) {
	r.calls++
	r.last = category + "/" + priority
}

func newKeywordAnalyzer() *Analyzer {
	return New(
		classifier.New(nil, "", 0.5, nil),
		sentiment.NewDetector(nil, "", 0.6, nil),
		Options{Now: func() time.Time { return fixedNow }},
	)
}

func TestAnalyzeValidation(t *testing.T) {
	a := newKeywordAnalyzer()

	tests := []struct {
		name    string
		text    string
		wantMsg string
	}{
		{"empty", "", "complaint text is required"},
		{"whitespace", "   \n\t ", "complaint text is required"},
		{"too short", "too short", "please provide more details (minimum 15 characters)"},
		{"short after trim", "   fourteen chars   ", "please provide more details (minimum 15 characters)"},
		{"multibyte counted as runes", strings.Repeat("ñ", 14), "please provide more details (minimum 15 characters)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(context.Background(), tt.text, "")
			require.Error(t, err)
			assert.Equal(t, models.KindValidation, models.KindOf(err))
			assert.Equal(t, tt.wantMsg, models.MessageOf(err))
		})
	}

	assert.NoError(t, a.Validate(strings.Repeat("ñ", 15)))
}

func TestAnalyzeValidationHasNoSideEffects(t *testing.T) {
	called := false
	a := New(
		classifierFunc(func(ctx context.Context, text string) models.CategoryResult {
			called = true
			return models.CategoryResult{}
		}),
		fixedDetector(models.SentimentNeutral),
		Options{},
	)

	_, err := a.Analyze(context.Background(), "short", "")
	require.Error(t, err)
	assert.False(t, called)
}

const (
	urgentDeliveryText  = "The delivery is extremely late and this is urgent, I need a refund now!"
	gratefulSupportText = "Thank you so much, the support team was excellent and fixed everything quickly!"
)

func TestAnalyzeKeywordScenarios(t *testing.T) {
	a := newKeywordAnalyzer()

	t.Run("urgent delivery", func(t *testing.T) {
		got, err := a.Analyze(context.Background(), urgentDeliveryText, "")
		require.NoError(t, err)

		assert.Equal(t, models.CategoryDelivery, got.Category)
		assert.InDelta(t, 0.91, got.Confidence.Category, 1e-9)
		assert.Equal(t, models.SentimentNeutral, got.Sentiment)
		assert.InDelta(t, 0.75, got.Confidence.Sentiment, 1e-9)
		assert.Equal(t, models.PriorityMedium, got.Priority)
		assert.True(t, fixedNow.Add(24*time.Hour).Equal(got.ResponseDueAt))
		assert.True(t, strings.HasPrefix(got.SuggestedAction, "ACTION PLAN:\n1. Email customer@example.com within 12 hours"))
		assert.Equal(t, models.Sources{Category: models.SourceKeywords, Sentiment: models.SourceKeywords}, got.Sources)
	})

	t.Run("grateful customer", func(t *testing.T) {
		got, err := a.Analyze(context.Background(), gratefulSupportText, "ana@example.com")
		require.NoError(t, err)

		assert.Equal(t, models.CategoryServiceQuality, got.Category)
		assert.InDelta(t, 0.87, got.Confidence.Category, 1e-9)
		assert.Equal(t, models.SentimentPositive, got.Sentiment)
		assert.Equal(t, models.PriorityLow, got.Priority)
		assert.True(t, fixedNow.Add(48*time.Hour).Equal(got.ResponseDueAt))
		assert.Contains(t, got.SuggestedAction, "ana@example.com")
		assert.Greater(t, got.Polarity, 0.0)
	})

	t.Run("urgent delivery with negative tone", func(t *testing.T) {
		negative := New(
			classifier.New(nil, "", 0.5, nil),
			fixedDetector(models.SentimentNegative),
			Options{Now: func() time.Time { return fixedNow }},
		)
		got, err := negative.Analyze(context.Background(), urgentDeliveryText, "")
		require.NoError(t, err)

		assert.Equal(t, models.CategoryDelivery, got.Category)
		assert.Equal(t, models.PriorityHigh, got.Priority)
		assert.True(t, fixedNow.Add(2*time.Hour).Equal(got.ResponseDueAt))
	})
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := newKeywordAnalyzer()

	for _, text := range []string{urgentDeliveryText, gratefulSupportText} {
		first, err := a.Analyze(context.Background(), text, "")
		require.NoError(t, err)
		second, err := a.Analyze(context.Background(), text, "")
		require.NoError(t, err)

		assert.Equal(t, first.Category, second.Category)
		assert.Equal(t, first.Sentiment, second.Sentiment)
		assert.Equal(t, first.Priority, second.Priority)
		assert.Equal(t, first, second)
	}
}

func TestAnalyzeUsesExactPlaybook(t *testing.T) {
	rec := &analysisRecorder{}
	a := New(fixedClassifier(models.CategoryBilling), fixedDetector(models.SentimentNegative), Options{
		Now:     func() time.Time { return fixedNow },
		Metrics: rec,
	})

	got, err := a.Analyze(context.Background(), "You charged me twice, this is fraud!", "lee@example.com")
	require.NoError(t, err)

	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.True(t, fixedNow.Add(2*time.Hour).Equal(got.ResponseDueAt))
	assert.True(t, strings.HasPrefix(got.SuggestedAction, "⚠️ URGENT ACTION REQUIRED:\n1. Call lee@example.com within 2 hours"))
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "Billing Issues/high", rec.last)
}

func TestAnalyzeRunsSignalsConcurrently(t *testing.T) {
	detectorStarted := make(chan struct{})
	a := New(
		classifierFunc(func(ctx context.Context, text string) models.CategoryResult {
			select {
			case <-detectorStarted:
			case <-ctx.Done():
			}
			return models.CategoryResult{Category: models.CategoryDelivery, Confidence: 0.9, Source: models.SourceKeywords}
		}),
		detectorFunc(func(ctx context.Context, text string) models.SentimentResult {
			close(detectorStarted)
			return models.SentimentResult{Sentiment: models.SentimentNeutral, Confidence: 0.75, Source: models.SourceKeywords}
		}),
		Options{},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := a.Analyze(ctx, "Where is my package? It has been weeks.", "")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryDelivery, got.Category)
}

func TestAnalyzeCancelled(t *testing.T) {
	a := New(
		classifierFunc(func(ctx context.Context, text string) models.CategoryResult {
			<-ctx.Done()
			return models.CategoryResult{Category: models.CategoryBilling}
		}),
		fixedDetector(models.SentimentNeutral),
		Options{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := a.Analyze(ctx, "My bill is wrong again this month", "")
	require.Error(t, err)
	assert.Equal(t, models.KindAnalysis, models.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeRecoversFromPanics(t *testing.T) {
	a := New(
		fixedClassifier(models.CategoryBilling),
		detectorFunc(func(ctx context.Context, text string) models.SentimentResult {
			panic("detector exploded")
		}),
		Options{},
	)

	_, err := a.Analyze(context.Background(), "My bill is wrong again this month", "")
	require.Error(t, err)
	assert.Equal(t, models.KindAnalysis, models.KindOf(err))
	assert.Contains(t, err.Error(), "detector exploded")
}
