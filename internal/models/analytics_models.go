package models

type IssueCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

type Analytics struct {
	TotalComplaints int            `json:"total_complaints"`
	Categories      map[string]int `json:"categories"`
	Sentiments      map[string]int `json:"sentiments"`
	Priorities      map[string]int `json:"priorities"`
	Statuses        map[string]int `json:"statuses"`
	RecentTrends    map[string]int `json:"recent_trends"`
	// AvgResponseTime is the mean number of hours between creation and resolution.
	AvgResponseTime float64 `json:"avg_response_time"`
	// SLACompliance is the percentage of resolved complaints resolved before their due time.
	SLACompliance float64      `json:"sla_compliance"`
	CSATScore     float64      `json:"csat_score"`
	AvgPolarity   float64      `json:"avg_polarity"`
	TopIssues     []IssueCount `json:"top_issues"`
}

func NewAnalytics() *Analytics {
	return &Analytics{
		Categories:    map[string]int{},
		Sentiments:    map[string]int{},
		Priorities:    map[string]int{},
		Statuses:      map[string]int{},
		RecentTrends:  map[string]int{"last_7_days": 0},
		SLACompliance: 100,
		TopIssues:     []IssueCount{},
	}
}

// CSATScore weights positive complaints 5, neutral 3 and negative 1.
func CSATScore(sentiments map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	weighted := 5*sentiments[string(SentimentPositive)] +
		3*sentiments[string(SentimentNeutral)] +
		1*sentiments[string(SentimentNegative)]
	return RoundTo(float64(weighted)/float64(total), 1)
}

// SLACompliancePercent returns 100 when nothing has been resolved yet.
func SLACompliancePercent(resolved, onTime int) float64 {
	if resolved == 0 {
		return 100
	}
	return RoundTo(float64(onTime)*100/float64(resolved), 1)
}
