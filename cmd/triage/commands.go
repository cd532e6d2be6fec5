package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spacesedan/complaintflow/config"
	"github.com/spacesedan/complaintflow/internal/analyzer"
	"github.com/spacesedan/complaintflow/internal/classifier"
	"github.com/spacesedan/complaintflow/internal/clients"
	"github.com/spacesedan/complaintflow/internal/models"
	"github.com/spacesedan/complaintflow/internal/sentiment"
	"github.com/spf13/cobra"
)

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "triage",
		Short:        "Classify and prioritise customer complaints from the terminal",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newAnalyzeCmd(), newKeywordsCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	var (
		contact string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Run the full analysis and print a triage card",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var oracle clients.Oracle
			if !offline {
				oracle = clients.NewHuggingFaceClient(cfg.HuggingFace)
			}

			a := analyzer.New(
				classifier.New(oracle, cfg.HuggingFace.ClassificationModel, cfg.Analysis.ClassificationThreshold, nil),
				sentiment.NewDetector(oracle, cfg.HuggingFace.SentimentModel, cfg.Analysis.SentimentThreshold, nil),
				analyzer.Options{
					MinLength:      cfg.Analysis.MinLength,
					DefaultContact: cfg.Analysis.DefaultContact,
				},
			)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cfg.Analysis.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Analysis.RequestTimeout)
				defer cancel()
			}

			result, err := a.Analyze(ctx, strings.Join(args, " "), contact)
			if err != nil {
				return fmt.Errorf("%s", models.MessageOf(err))
			}
			printCard(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&contact, "contact", "", "contact address used in the suggested action")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the remote models and use keyword matching only")
	return cmd
}

func newKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords [text]",
		Short: "Show keyword scores per category and sentiment tallies",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printKeywords(cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
}

var (
	heading = color.New(color.Bold, color.FgCyan)
	faint   = color.New(color.Faint)
)

func priorityColor(p models.Priority) *color.Color {
	switch p {
	case models.PriorityHigh:
		return color.New(color.Bold, color.FgRed)
	case models.PriorityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func sentimentColor(s models.Sentiment) *color.Color {
	switch s {
	case models.SentimentNegative:
		return color.New(color.FgRed)
	case models.SentimentPositive:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func printCard(w io.Writer, r models.AnalysisResult) {
	heading.Fprintln(w, "Complaint triage")
	fmt.Fprintf(w, "  Category:   %s %s\n", r.Category,
		faint.Sprintf("(%.2f, %s)", r.Confidence.Category, r.Sources.Category))
	fmt.Fprintf(w, "  Sentiment:  %s %s\n", sentimentColor(r.Sentiment).Sprint(r.Sentiment),
		faint.Sprintf("(%.2f, %s)", r.Confidence.Sentiment, r.Sources.Sentiment))
	fmt.Fprintf(w, "  Polarity:   %.3f\n", r.Polarity)
	fmt.Fprintf(w, "  Priority:   %s\n", priorityColor(r.Priority).Sprint(strings.ToUpper(string(r.Priority))))
	fmt.Fprintf(w, "  Respond by: %s\n\n", r.ResponseDueAt.Local().Format("Mon 02 Jan 15:04 MST"))
	heading.Fprintln(w, "Suggested action")
	fmt.Fprintln(w, r.SuggestedAction)
}

func printKeywords(w io.Writer, text string) {
	scores := classifier.Scores(text)
	heading.Fprintln(w, "Category keyword hits")
	for _, c := range models.Categories {
		n := scores[c]
		line := fmt.Sprintf("  %-18s %d", c, n)
		if n == 0 {
			faint.Fprintln(w, line)
			continue
		}
		fmt.Fprintln(w, line)
	}

	best := classifier.ClassifyByKeywords(text)
	fmt.Fprintf(w, "  => %s (%.2f)\n\n", best.Category, best.Confidence)

	tally := sentiment.CountKeywords(text)
	heading.Fprintln(w, "Sentiment keyword hits")
	fmt.Fprintf(w, "  negative %d  positive %d  neutral %d\n", tally.Negative, tally.Positive, tally.Neutral)
	detected := sentiment.DetectByKeywords(text)
	fmt.Fprintf(w, "  => %s (%.2f)\n\n", sentimentColor(detected.Sentiment).Sprint(detected.Sentiment), detected.Confidence)

	score, label := sentiment.AnalyzeWithVADER(text)
	heading.Fprintln(w, "VADER polarity")
	fmt.Fprintf(w, "  compound %.3f => %s\n", score, sentimentColor(label).Sprint(label))
}
