package interview

import (
	"github.com/spigell/interview-coach/internal/classify"
	"github.com/spigell/interview-coach/internal/evaluate"
)

// NoteMaxFollowUpDepth is recorded when a requested follow-up is abandoned.
const NoteMaxFollowUpDepth = "max_followup_depth_reached"

// Scores are the four per-answer dimensions, each in [1,5]. TechnicalDepth
// may be 0 for non-engineering roles.
type Scores struct {
	Clarity        int `json:"clarity"`
	Structure      int `json:"structure"`
	TechnicalDepth int `json:"technical_depth"`
	Relevance      int `json:"relevance"`
}

// Evaluation is the accumulating record for one main question.
type Evaluation struct {
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`

	Scores        *Scores               `json:"scores,omitempty"`
	NeedsFollowUp bool                  `json:"needs_follow_up,omitempty"`
	FollowUpType  evaluate.FollowUpType `json:"follow_up_type,omitempty"`
	Comments      string                `json:"comments,omitempty"`
	Degraded      bool                  `json:"degraded,omitempty"`

	KnowledgeIntent classify.Intent   `json:"knowledge_intent,omitempty"`
	HeuristicIntent classify.Intent   `json:"knowledge_intent_heuristic,omitempty"`
	RemoteIntent    classify.Intent   `json:"knowledge_intent_remote,omitempty"`
	Relation        classify.Relation `json:"relation,omitempty"`

	SkippedDueToRefusal   bool `json:"skipped_due_to_refusal,omitempty"`
	SkippedDueToUnrelated bool `json:"skipped_due_to_unrelated_replies,omitempty"`
	Skipped               bool `json:"skipped,omitempty"`

	ClarityOffered int      `json:"clarity_offered,omitempty"`
	HintsOffered   int      `json:"hint_offered,omitempty"`
	FollowUpsAsked int      `json:"follow_ups_asked,omitempty"`
	Notes          []string `json:"notes,omitempty"`
}

// Merge folds an evaluator result into the slot. Later results override
// earlier scores.
func (e *Evaluation) Merge(r evaluate.Result) {
	e.Scores = &Scores{
		Clarity:        r.Clarity,
		Structure:      r.Structure,
		TechnicalDepth: r.TechnicalDepth,
		Relevance:      r.Relevance,
	}
	e.NeedsFollowUp = r.NeedsFollowUp
	e.FollowUpType = r.FollowUpType
	e.Comments = r.Comments
	e.Degraded = r.Degraded
	e.KnowledgeIntent = r.KnowledgeIntent
	e.HeuristicIntent = r.HeuristicIntent
	if r.RemoteIntent != "" {
		e.RemoteIntent = r.RemoteIntent
	}
}

// Note records an annotation once.
func (e *Evaluation) Note(note string) {
	for _, n := range e.Notes {
		if n == note {
			return
		}
	}
	e.Notes = append(e.Notes, note)
}

// SkippedAny reports whether the question was skipped for any reason.
func (e Evaluation) SkippedAny() bool {
	return e.SkippedDueToRefusal || e.SkippedDueToUnrelated || e.Skipped
}

// Answered reports whether the slot holds a scored, non-skipped answer.
func (e Evaluation) Answered() bool {
	return e.Scores != nil && !e.SkippedAny() && !e.KnowledgeIntent.Skips()
}

func (e Evaluation) clone() Evaluation {
	c := e
	if e.Scores != nil {
		scores := *e.Scores
		c.Scores = &scores
	}
	c.Notes = append([]string(nil), e.Notes...)
	return c
}
