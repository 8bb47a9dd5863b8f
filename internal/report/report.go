// Package report turns a finished session into a scored report.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/spigell/interview-coach/internal/interview"
)

// Dimension weights of the overall rating.
const (
	WeightClarity        = 0.25
	WeightStructure      = 0.25
	WeightTechnicalDepth = 0.30
	WeightRelevance      = 0.20

	maxScore     = 5.0
	neutralScore = 3.0
)

// Score sources.
const (
	SourceSummary     = "summary"
	SourceEvaluations = "evaluations"
	SourceNeutral     = "neutral"
)

// Question statuses.
const (
	StatusAnswered   = "answered"
	StatusRefused    = "skipped (refused)"
	StatusUnrelated  = "skipped (unrelated replies)"
	StatusSkipped    = "skipped"
	StatusNotReached = "not reached"
)

//go:embed report.md.tmpl
var markdownTemplate string

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	"bar":  bar,
}).Parse(markdownTemplate))

// Question is the per-question part of a report.
type Question struct {
	Index     int               `json:"index"`
	Question  string            `json:"question"`
	Status    string            `json:"status"`
	Scores    *interview.Scores `json:"scores,omitempty"`
	Comments  string            `json:"comments,omitempty"`
	Hints     int               `json:"hints,omitempty"`
	FollowUps int               `json:"follow_ups,omitempty"`
	Notes     []string          `json:"notes,omitempty"`
}

// Report is the scored outcome of an interview.
type Report struct {
	SessionID   string         `json:"session_id"`
	Role        string         `json:"role"`
	Mode        interview.Mode `json:"mode"`
	Skills      []string       `json:"skills,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`

	Scores      interview.OverallScores `json:"scores"`
	ScoreSource string                  `json:"score_source"`

	Rating         float64 `json:"rating"`
	AnswerRatio    float64 `json:"answer_ratio"`
	Answered       int     `json:"answered"`
	Total          int     `json:"total"`
	AdjustedRating float64 `json:"adjusted_rating"`
	CoverageNote   string  `json:"coverage_note,omitempty"`

	Summary    string   `json:"summary,omitempty"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
	Tips       []string `json:"top_tips,omitempty"`

	Questions []Question `json:"questions"`
}

// Build scores a session. Summary scores win over per-answer averages,
// which win over neutral defaults.
func Build(s interview.Session, summary interview.Summary) Report {
	r := Report{
		SessionID:   s.ID,
		Role:        s.Role,
		Mode:        s.Mode,
		Skills:      s.Skills,
		GeneratedAt: s.UpdatedAt,
		Summary:     strings.TrimSpace(summary.Text),
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}

	if rep := summary.Report; rep != nil {
		r.Strengths = rep.Strengths
		r.Weaknesses = rep.Weaknesses
		r.Tips = rep.TopTips
		if text := strings.TrimSpace(rep.Summary); text != "" {
			r.Summary = strings.TrimSpace(text + "\n\n" + r.Summary)
		}
	}

	r.Scores, r.ScoreSource = scores(s, summary)
	r.Questions = questions(s)

	r.Total = len(s.Questions)
	for _, q := range r.Questions {
		if q.Status == StatusAnswered {
			r.Answered++
		}
	}
	r.AnswerRatio = AnswerRatio(r.Answered, r.Total)
	r.Rating = OverallRating(r.Scores)
	r.AdjustedRating = round(r.Rating * r.AnswerRatio)
	r.CoverageNote = coverageNote(r.Questions, r.Answered, r.Total)

	return r
}

// OverallRating maps 0-5 dimension scores onto 0-100.
func OverallRating(s interview.OverallScores) float64 {
	weighted := s.Clarity*WeightClarity +
		s.Structure*WeightStructure +
		s.TechnicalDepth*WeightTechnicalDepth +
		s.Relevance*WeightRelevance
	return round(weighted / maxScore * 100)
}

// AnswerRatio is answered/total; no questions means no penalty.
func AnswerRatio(answered, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(answered) / float64(total)
}

// Markdown renders the report.
func (r Report) Markdown() (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// JSON encodes the report.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func scores(s interview.Session, summary interview.Summary) (interview.OverallScores, string) {
	if summary.Report != nil && summary.Report.OverallScores != nil {
		return *summary.Report.OverallScores, SourceSummary
	}

	var sum interview.OverallScores
	count := 0
	for _, e := range s.Evaluations {
		if !e.Answered() {
			continue
		}
		sum.Clarity += float64(e.Scores.Clarity)
		sum.Structure += float64(e.Scores.Structure)
		sum.TechnicalDepth += float64(e.Scores.TechnicalDepth)
		sum.Relevance += float64(e.Scores.Relevance)
		count++
	}
	if count == 0 {
		return interview.OverallScores{
			Clarity:        neutralScore,
			Structure:      neutralScore,
			TechnicalDepth: neutralScore,
			Relevance:      neutralScore,
		}, SourceNeutral
	}

	n := float64(count)
	return interview.OverallScores{
		Clarity:        round(sum.Clarity / n),
		Structure:      round(sum.Structure / n),
		TechnicalDepth: round(sum.TechnicalDepth / n),
		Relevance:      round(sum.Relevance / n),
	}, SourceEvaluations
}

func questions(s interview.Session) []Question {
	out := make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		out[i] = Question{Index: i, Question: q, Status: StatusNotReached}
		if i >= len(s.Evaluations) {
			continue
		}
		e := s.Evaluations[i]
		out[i].Status = status(e)
		out[i].Scores = e.Scores
		out[i].Comments = e.Comments
		out[i].Hints = e.HintsOffered
		out[i].FollowUps = e.FollowUpsAsked
		out[i].Notes = e.Notes
	}
	return out
}

func status(e interview.Evaluation) string {
	switch {
	case e.SkippedDueToRefusal:
		return StatusRefused
	case e.SkippedDueToUnrelated:
		return StatusUnrelated
	case e.Skipped || e.KnowledgeIntent.Skips():
		return StatusSkipped
	case e.Scores == nil:
		return StatusNotReached
	default:
		return StatusAnswered
	}
}

func coverageNote(qs []Question, answered, total int) string {
	if total == 0 || answered >= total {
		return ""
	}
	missed := total - answered
	for _, q := range qs {
		if q.Status != StatusAnswered && q.Status != StatusNotReached {
			return fmt.Sprintf("The overall rating has been reduced because the candidate refused or skipped %d out of %d main questions. "+
				"The score reflects both answer quality and coverage of questions.", missed, total)
		}
	}
	return fmt.Sprintf("The overall rating has been scaled to reflect that the candidate answered only %d out of %d main questions.", answered, total)
}

func bar(score float64) string {
	filled := int(math.Round(score))
	filled = max(0, min(filled, int(maxScore)))
	return strings.Repeat("█", filled) + strings.Repeat("░", int(maxScore)-filled)
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
