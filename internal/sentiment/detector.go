package sentiment

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/spacesedan/complaintflow/internal/clients"
	"github.com/spacesedan/complaintflow/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("complaintflow/sentiment")

const StageSentiment = "sentiment"

const (
	ReasonDisabled      = "disabled"
	ReasonNoResult      = "no_result"
	ReasonMalformed     = "malformed"
	ReasonLowConfidence = "low_confidence"
	ReasonError         = "error"
)

type FallbackObserver interface {
	ObserveFallback(stage, reason string)
}

type Detector struct {
	oracle    clients.Oracle
	model     string
	threshold float64
	observer  FallbackObserver
}

// NewDetector returns a Detector. A nil oracle always uses keywords.
func NewDetector(oracle clients.Oracle, model string, threshold float64, observer FallbackObserver) *Detector {
	return &Detector{
		oracle:    oracle,
		model:     model,
		threshold: threshold,
		observer:  observer,
	}
}

func (d *Detector) Detect(ctx context.Context, text string) models.SentimentResult {
	ctx, span := tracer.Start(ctx, "sentiment.Detect")
	defer span.End()

	result, reason := d.detectRemote(ctx, text)
	if reason != "" {
		slog.Debug("[SentimentDetector] Using keyword fallback",
			slog.String("reason", reason))
		if d.observer != nil {
			d.observer.ObserveFallback(StageSentiment, reason)
		}
		result = DetectByKeywords(text)
	}

	span.SetAttributes(
		attribute.String("sentiment", string(result.Sentiment)),
		attribute.String("source", string(result.Source)),
		attribute.Float64("confidence", result.Confidence),
	)
	return result
}

func (d *Detector) detectRemote(ctx context.Context, text string) (models.SentimentResult, string) {
	if d.oracle == nil {
		return models.SentimentResult{}, ReasonDisabled
	}

	body, ok, err := d.oracle.Invoke(ctx, d.model, models.TextClassificationRequest{Inputs: text})
	if err != nil {
		slog.Warn("[SentimentDetector] Oracle call failed",
			slog.String("kind", string(models.KindOf(err))),
			slog.String("error", err.Error()))
		if kind := models.KindOf(err); kind != "" {
			return models.SentimentResult{}, string(kind)
		}
		return models.SentimentResult{}, ReasonError
	}
	if !ok {
		return models.SentimentResult{}, ReasonNoResult
	}

	var resp models.TextClassificationResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp) == 0 || len(resp[0]) == 0 {
		return models.SentimentResult{}, ReasonMalformed
	}

	top := resp[0][0]
	for _, p := range resp[0][1:] {
		if p.Score > top.Score {
			top = p
		}
	}

	if top.Score <= d.threshold {
		return models.SentimentResult{}, ReasonLowConfidence
	}

	label, known := models.ParseSentiment(top.Label)
	if !known {
		label = models.SentimentNeutral
	}

	return models.SentimentResult{
		Sentiment:  label,
		Confidence: models.RoundTo(top.Score, 3),
		Source:     models.SourceOracle,
	}, ""
}
