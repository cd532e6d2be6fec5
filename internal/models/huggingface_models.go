package models

// ZeroShotRequest is the payload for zero-shot classification models such as
// facebook/bart-large-mnli.
type ZeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters ZeroShotParameters `json:"parameters"`
}

type ZeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// ZeroShotResponse holds labels ranked by descending score.
type ZeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

type TextClassificationRequest struct {
	Inputs string `json:"inputs"`
}

type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TextClassificationResponse has one prediction list per input.
type TextClassificationResponse [][]LabelScore

func NewZeroShotRequest(text string, labels []string) ZeroShotRequest {
	return ZeroShotRequest{
		Inputs: text,
		Parameters: ZeroShotParameters{
			CandidateLabels: labels,
			MultiLabel:      false,
		},
	}
}
