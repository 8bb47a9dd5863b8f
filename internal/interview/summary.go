package interview

// OverallScores are session-level averages on the 0-5 scale.
type OverallScores struct {
	Clarity        float64 `json:"clarity" mapstructure:"clarity"`
	Structure      float64 `json:"structure" mapstructure:"structure"`
	TechnicalDepth float64 `json:"technical_depth" mapstructure:"technical_depth"`
	Relevance      float64 `json:"relevance" mapstructure:"relevance"`
}

// SummaryReport is the structured part of the final summary.
type SummaryReport struct {
	OverallScores *OverallScores `json:"overall_scores,omitempty" mapstructure:"overall_scores"`
	Strengths     []string       `json:"strengths,omitempty" mapstructure:"strengths"`
	Weaknesses    []string       `json:"weaknesses,omitempty" mapstructure:"weaknesses"`
	TopTips       []string       `json:"top_tips,omitempty" mapstructure:"top_tips"`
	Summary       string         `json:"summary,omitempty" mapstructure:"summary"`
}

// Summary is produced once when the session finishes. Report is nil when
// the collaborator returned no structured part.
type Summary struct {
	Report *SummaryReport `json:"report,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// SummaryInput is what the summary collaborator receives.
type SummaryInput struct {
	Role        string
	Skills      []string
	Questions   []string
	Answers     []string
	Evaluations []Evaluation
}
