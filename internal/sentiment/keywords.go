package sentiment

import (
	"strings"

	"github.com/spacesedan/complaintflow/internal/models"
)

var (
	negativeWords = []string{
		"angry", "frustrated", "terrible", "awful", "horrible", "worst",
		"hate", "disappointed", "disgusted", "furious", "annoyed", "upset",
		"useless", "pathetic", "ridiculous", "unacceptable", "poor", "bad",
	}

	positiveWords = []string{
		"thank", "thanks", "great", "excellent", "happy", "satisfied",
		"love", "appreciate", "wonderful", "amazing", "fantastic", "good",
		"pleased", "glad", "perfect", "awesome", "brilliant",
	}

	neutralWords = []string{
		"suggest", "suggestion", "would be nice", "could", "maybe", "perhaps",
		"consider", "feature request", "idea", "feedback",
	}
)

// Tally holds keyword hit counts for one text.
type Tally struct {
	Negative int `json:"negative"`
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
}

func CountKeywords(text string) Tally {
	lower := strings.ToLower(text)
	return Tally{
		Negative: countHits(lower, negativeWords),
		Positive: countHits(lower, positiveWords),
		Neutral:  countHits(lower, neutralWords),
	}
}

func countHits(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// DetectByKeywords applies the first matching rule: neutral phrasing without
// negative words, then the larger of negative and positive, then neutral.
func DetectByKeywords(text string) models.SentimentResult {
	t := CountKeywords(text)

	result := models.SentimentResult{Source: models.SourceKeywords}
	switch {
	case t.Neutral > 0 && t.Negative == 0:
		result.Sentiment, result.Confidence = models.SentimentNeutral, 0.85
	case t.Negative > t.Positive:
		result.Sentiment, result.Confidence = models.SentimentNegative, 0.80
	case t.Positive > t.Negative:
		result.Sentiment, result.Confidence = models.SentimentPositive, 0.80
	default:
		result.Sentiment, result.Confidence = models.SentimentNeutral, 0.75
	}
	return result
}
