package sentiment

import (
	"testing"

	"github.com/spacesedan/complaintflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDetectByKeywords(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		sentiment  models.Sentiment
		confidence float64
	}{
		{"negative words", "I am so angry and frustrated with this", models.SentimentNegative, 0.80},
		{"positive words", "Thank you so much, the support was excellent", models.SentimentPositive, 0.80},
		{"neutral phrasing", "Maybe you could consider adding dark mode", models.SentimentNeutral, 0.85},
		{"balanced", "Bad service but great staff", models.SentimentNeutral, 0.75},
		{"neutral phrasing loses to negative words", "It would be nice to have this, but the app is terrible", models.SentimentNegative, 0.80},
		{"nothing matched", "nothing to see", models.SentimentNeutral, 0.75},
		{"substring match", "I am unhappy", models.SentimentPositive, 0.80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectByKeywords(tt.text)
			assert.Equal(t, tt.sentiment, got.Sentiment)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.Equal(t, models.SourceKeywords, got.Source)
		})
	}
}

func TestCountKeywords(t *testing.T) {
	got := CountKeywords("Thanks! Great work, but maybe add an idea box. The wait was AWFUL.")
	assert.Equal(t, Tally{Negative: 1, Positive: 3, Neutral: 2}, got)
}
