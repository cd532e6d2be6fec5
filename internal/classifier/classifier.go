package classifier

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/spacesedan/complaintflow/internal/clients"
	"github.com/spacesedan/complaintflow/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("complaintflow/classifier")

const StageClassification = "classification"

// Fallback reasons.
const (
	ReasonDisabled      = "disabled"
	ReasonNoResult      = "no_result"
	ReasonMalformed     = "malformed"
	ReasonLowConfidence = "low_confidence"
	ReasonUnknownLabel  = "unknown_label"
	ReasonError         = "error"
)

type FallbackObserver interface {
	ObserveFallback(stage, reason string)
}

// Classifier asks a zero-shot model for a category and falls back to keyword
// matching whenever the model cannot give a confident known label.
type Classifier struct {
	oracle    clients.Oracle
	model     string
	threshold float64
	observer  FallbackObserver
}

// New returns a Classifier. A nil oracle always uses keywords.
func New(oracle clients.Oracle, model string, threshold float64, observer FallbackObserver) *Classifier {
	return &Classifier{
		oracle:    oracle,
		model:     model,
		threshold: threshold,
		observer:  observer,
	}
}

func (c *Classifier) Classify(ctx context.Context, text string) models.CategoryResult {
	ctx, span := tracer.Start(ctx, "classifier.Classify")
	defer span.End()

	result, reason := c.classifyRemote(ctx, text)
	if reason != "" {
		slog.Debug("[Classifier] Using keyword fallback",
			slog.String("reason", reason))
		if c.observer != nil {
			c.observer.ObserveFallback(StageClassification, reason)
		}
		result = ClassifyByKeywords(text)
	}

	span.SetAttributes(
		attribute.String("category", string(result.Category)),
		attribute.String("source", string(result.Source)),
		attribute.Float64("confidence", result.Confidence),
	)
	return result
}

func (c *Classifier) classifyRemote(ctx context.Context, text string) (models.CategoryResult, string) {
	if c.oracle == nil {
		return models.CategoryResult{}, ReasonDisabled
	}

	body, ok, err := c.oracle.Invoke(ctx, c.model, models.NewZeroShotRequest(text, models.CandidateLabels))
	if err != nil {
		slog.Warn("[Classifier] Oracle call failed",
			slog.String("kind", string(models.KindOf(err))),
			slog.String("error", err.Error()))
		return models.CategoryResult{}, errorReason(err)
	}
	if !ok {
		return models.CategoryResult{}, ReasonNoResult
	}

	var resp models.ZeroShotResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Labels) == 0 || len(resp.Scores) == 0 {
		return models.CategoryResult{}, ReasonMalformed
	}

	if resp.Scores[0] <= c.threshold {
		return models.CategoryResult{}, ReasonLowConfidence
	}

	category, known := models.ParseCategory(resp.Labels[0])
	if !known {
		return models.CategoryResult{}, ReasonUnknownLabel
	}

	return models.CategoryResult{
		Category:   category,
		Confidence: models.RoundTo(resp.Scores[0], 3),
		Source:     models.SourceOracle,
	}, ""
}

// errorReason names a gateway failure by its kind.
func errorReason(err error) string {
	if kind := models.KindOf(err); kind != "" {
		return string(kind)
	}
	return ReasonError
}
