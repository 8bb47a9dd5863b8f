// Package interview holds the session state of a mock interview and the
// dialogue controller that advances it one reply at a time.
package interview

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotInProgress is returned when a reply arrives outside an active session.
	ErrNotInProgress = errors.New("interview is not in progress")
	// ErrNoQuestions is returned when a session is created without questions.
	ErrNoQuestions = errors.New("interview has no questions")
	// ErrAlreadyStarted is returned when starting a session twice.
	ErrAlreadyStarted = errors.New("interview already started")
)

// Stage is the lifecycle position of a session.
type Stage string

const (
	StageNotStarted Stage = "not_started"
	StageInProgress Stage = "in_progress"
	StageFinished   Stage = "finished"
)

// Mode selects how many questions an interview has.
type Mode string

const (
	ModeBrief  Mode = "brief"
	ModeNormal Mode = "normal"
	ModeDeep   Mode = "deep"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{ModeBrief, ModeNormal, ModeDeep}

// ParseMode validates s. An empty string means ModeNormal.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeNormal, nil
	case ModeBrief, ModeNormal, ModeDeep:
		return m, nil
	default:
		return "", fmt.Errorf("unknown interview mode %q", s)
	}
}

// QuestionCount is the number of questions generated for the mode.
func (m Mode) QuestionCount() int {
	switch m {
	case ModeBrief:
		return 4
	case ModeDeep:
		return 9
	default:
		return 6
	}
}

// FollowUpRecord is a diagnostic entry for an issued follow-up.
type FollowUpRecord struct {
	QuestionIndex int       `json:"question_index"`
	Depth         int       `json:"depth"`
	Text          string    `json:"text"`
	AskedAt       time.Time `json:"asked_at"`
}

// Session is one interview run. It is a value: the controller returns an
// updated copy instead of mutating the caller's session.
type Session struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Mode      Mode     `json:"mode"`
	Skills    []string `json:"skills,omitempty"`
	Questions []string `json:"questions"`

	CurrentQuestionIndex int          `json:"current_question_index"`
	Answers              []string     `json:"answers"`
	Evaluations          []Evaluation `json:"evaluations"`

	// PendingFollowUp, when set, is the question the next reply answers.
	PendingFollowUp string           `json:"pending_followup,omitempty"`
	FollowUpDepth   int              `json:"followup_depth"`
	FollowUpHistory []FollowUpRecord `json:"followup_history,omitempty"`

	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a not yet started session. Blank questions are dropped.
func NewSession(role string, mode Mode, skills, questions []string) (Session, error) {
	if mode == "" {
		mode = ModeNormal
	}

	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		return Session{}, ErrNoQuestions
	}

	now := time.Now().UTC()
	return Session{
		ID:        uuid.NewString(),
		Role:      strings.TrimSpace(role),
		Mode:      mode,
		Skills:    append([]string(nil), skills...),
		Questions: cleaned,
		Stage:     StageNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CurrentQuestion returns the main question the session is on.
func (s Session) CurrentQuestion() string {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return ""
	}
	return s.Questions[s.CurrentQuestionIndex]
}

// Finished reports whether the session reached its terminal stage.
func (s Session) Finished() bool { return s.Stage == StageFinished }

// AwaitingFollowUp reports whether the next reply answers a follow-up.
func (s Session) AwaitingFollowUp() bool { return s.PendingFollowUp != "" }

func (s Session) isLastQuestion() bool {
	return s.CurrentQuestionIndex >= len(s.Questions)-1
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	c := s
	c.Skills = append([]string(nil), s.Skills...)
	c.Questions = append([]string(nil), s.Questions...)
	c.Answers = append([]string(nil), s.Answers...)
	c.FollowUpHistory = append([]FollowUpRecord(nil), s.FollowUpHistory...)
	c.Evaluations = make([]Evaluation, len(s.Evaluations))
	for i, e := range s.Evaluations {
		c.Evaluations[i] = e.clone()
	}
	return c
}

// slot returns the evaluation slot for the current question, creating it
// (and any missing earlier slots) when the question is first reached.
func (s *Session) slot() *Evaluation {
	for len(s.Evaluations) <= s.CurrentQuestionIndex {
		idx := len(s.Evaluations)
		s.Evaluations = append(s.Evaluations, Evaluation{QuestionIndex: idx, Question: s.Questions[idx]})
	}
	return &s.Evaluations[s.CurrentQuestionIndex]
}
