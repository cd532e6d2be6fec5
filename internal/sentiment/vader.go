package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/complaintflow/internal/models"
)

var (
	analyzer = govader.NewSentimentIntensityAnalyzer()

	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(RemoveLinks(input)), blackfriday.WithNoExtensions())
	plainText := tagPattern.ReplaceAllString(string(output), " ")
	return strings.Join(strings.Fields(plainText), " ")
}

// Polarity is the VADER compound score in [-1, 1], rounded to 3 decimals.
func Polarity(text string) float64 {
	score := analyzer.PolarityScores(ConvertMarkdownToText(text)).Compound
	return models.RoundTo(score, 3)
}

// AnalyzeWithVADER labels the compound score with a ±0.20 neutral band.
func AnalyzeWithVADER(text string) (float64, models.Sentiment) {
	score := Polarity(text)

	switch {
	case score >= 0.20:
		return score, models.SentimentPositive
	case score <= -0.20:
		return score, models.SentimentNegative
	default:
		return score, models.SentimentNeutral
	}
}
