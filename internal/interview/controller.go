package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/classify"
	"github.com/spigell/interview-coach/internal/evaluate"
	"github.com/spigell/interview-coach/internal/logger"
)

// DefaultMaxFollowUpDepth bounds follow-ups per main question.
const DefaultMaxFollowUpDepth = 2

const (
	fallbackHint    = "Here is a small hint: think about where you have seen this in practice."
	fallbackSummary = "The interview is complete. A detailed summary could not be generated."
)

var fallbackFollowUps = map[evaluate.FollowUpType]string{
	evaluate.FollowUpClarity: "Could you restate that more precisely?",
	evaluate.FollowUpDepth:   "Could you go one level deeper into how that works?",
	evaluate.FollowUpExample: "Can you give a concrete example from your experience?",
}

var errNoCollaborator = errors.New("no collaborator configured")

// IntentClassifier decides a reply's intent from its text alone.
type IntentClassifier interface {
	Intent(text string) classify.Intent
}

// RelationClassifier decides whether a reply relates to a question.
type RelationClassifier interface {
	Classify(ctx context.Context, question, answer string) classify.Relation
}

// AnswerEvaluator scores a reply. It must not fail.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, req evaluate.Request) evaluate.Result
}

// Collaborator produces the free-text parts of the conversation. Errors are
// replaced by fixed fallback text.
type Collaborator interface {
	Rephrase(ctx context.Context, question, role string) (string, error)
	Hint(ctx context.Context, question, answer, role string) (string, error)
	FollowUp(ctx context.Context, question, answer string, focus evaluate.FollowUpType, role string) (string, error)
	Summary(ctx context.Context, in SummaryInput) (Summary, error)
}

// Deps are the controller's collaborators. Nil classifiers and evaluator
// get built-in defaults; a nil Collaborator means fallback text everywhere.
type Deps struct {
	Intent       IntentClassifier
	Relation     RelationClassifier
	Evaluator    AnswerEvaluator
	Collaborator Collaborator
	Logger       *zap.Logger
	Now          func() time.Time
}

// Config tunes the controller.
type Config struct {
	MaxFollowUpDepth int `mapstructure:"max-followup-depth"`
}

// Controller is the dialogue state machine. It holds no per-session state
// and may serve many sessions.
type Controller struct {
	intent       IntentClassifier
	relation     RelationClassifier
	evaluator    AnswerEvaluator
	collaborator Collaborator
	maxDepth     int
	logger       *zap.Logger
	now          func() time.Time
}

// NewController applies defaults to cfg and deps.
func NewController(cfg Config, deps Deps) *Controller {
	if cfg.MaxFollowUpDepth <= 0 {
		cfg.MaxFollowUpDepth = DefaultMaxFollowUpDepth
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Intent == nil {
		deps.Intent = classify.NewHeuristics(nil)
	}
	if deps.Relation == nil {
		deps.Relation = classify.NewRelationClassifier(classify.RelationConfig{Logger: deps.Logger})
	}
	if deps.Evaluator == nil {
		deps.Evaluator = evaluate.New(evaluate.Config{Logger: deps.Logger})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		intent:       deps.Intent,
		relation:     deps.Relation,
		evaluator:    deps.Evaluator,
		collaborator: deps.Collaborator,
		maxDepth:     cfg.MaxFollowUpDepth,
		logger:       deps.Logger,
		now:          deps.Now,
	}
}

// MaxFollowUpDepth returns the configured depth limit.
func (c *Controller) MaxFollowUpDepth() int { return c.maxDepth }

// Start moves a new session into progress and returns the first question.
func (c *Controller) Start(s Session) (Session, Action, error) {
	if s.Stage != StageNotStarted && s.Stage != "" {
		return s, nil, ErrAlreadyStarted
	}
	if len(s.Questions) == 0 {
		return s, nil, ErrNoQuestions
	}

	next := s.Clone()
	next.Stage = StageInProgress
	next.CurrentQuestionIndex = 0
	next.slot()
	next.UpdatedAt = c.now().UTC()

	action := AskQuestion{Index: 0, Question: next.Questions[0]}
	c.log(next, action).Info("interview started", zap.Int("questions", len(next.Questions)))
	return next, action, nil
}

// HandleReply consumes one raw reply and returns the updated session with
// the next action. The given session is not modified. Replies outside an
// in-progress session are rejected with ErrNotInProgress.
func (c *Controller) HandleReply(ctx context.Context, s Session, reply string) (Session, Action, error) {
	if s.Stage != StageInProgress {
		return s, nil, ErrNotInProgress
	}
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return s, nil, fmt.Errorf("%w: question index %d out of range", ErrNotInProgress, s.CurrentQuestionIndex)
	}

	next := s.Clone()
	next.Answers = append(next.Answers, reply)
	next.slot()

	var action Action
	if next.AwaitingFollowUp() {
		action = c.followUpReply(ctx, &next, reply)
	} else {
		action = c.mainReply(ctx, &next, reply)
	}
	next.UpdatedAt = c.now().UTC()

	c.log(next, action).Debug("reply handled", zap.Int("followup_depth", next.FollowUpDepth))
	return next, action, nil
}

// followUpReply evaluates a reply against the pending follow-up. Relation
// and refusal gating do not apply.
func (c *Controller) followUpReply(ctx context.Context, s *Session, reply string) Action {
	question := s.PendingFollowUp
	s.PendingFollowUp = ""

	result := c.evaluator.Evaluate(ctx, c.request(s, question, reply))
	s.slot().Merge(result)

	if result.WantsFollowUp() {
		return c.followUp(ctx, s, question, reply, result.FollowUpType)
	}
	return c.advance(ctx, s)
}

func (c *Controller) mainReply(ctx context.Context, s *Session, reply string) Action {
	question := s.CurrentQuestion()
	slot := s.slot()

	intent := c.intent.Intent(reply)
	if intent.Skips() {
		slot.KnowledgeIntent = intent
		slot.SkippedDueToRefusal = true
		return c.advance(ctx, s)
	}

	// Partial replies go straight to the hint path even when they share no
	// words with the question.
	if intent != classify.IntentPartial {
		relation := c.relation.Classify(ctx, question, reply)
		slot.Relation = relation
		if relation == classify.RelationUnrelated {
			return c.clarify(ctx, s, question)
		}
	}

	result := c.evaluator.Evaluate(ctx, c.request(s, question, reply))
	slot.Merge(result)

	switch {
	case result.KnowledgeIntent.Skips():
		slot.Skipped = true
		return c.advance(ctx, s)
	case result.KnowledgeIntent == classify.IntentPartial:
		return c.hint(ctx, s, question, reply)
	case result.WantsFollowUp():
		return c.followUp(ctx, s, question, reply, result.FollowUpType)
	default:
		return c.advance(ctx, s)
	}
}

// clarify escalates on repeated unrelated replies: rephrase, then repeat
// the question verbatim, then skip it.
func (c *Controller) clarify(ctx context.Context, s *Session, question string) Action {
	slot := s.slot()
	switch slot.ClarityOffered {
	case 0:
		slot.ClarityOffered = 1
		rephrase := c.rephrase(ctx, s, question)
		return Clarify{Message: ClarificationText(rephrase), Rephrase: rephrase}
	case 1:
		slot.ClarityOffered = 2
		return AskQuestion{Index: s.CurrentQuestionIndex, Question: question, Repeat: true}
	default:
		slot.SkippedDueToUnrelated = true
		return c.advance(ctx, s)
	}
}

// ClarificationText is shown after the first unrelated reply.
func ClarificationText(rephrase string) string {
	return fmt.Sprintf("It seems your reply wasn't related to the question. Did you understand it?\n\n"+
		"I can rephrase it as:\n\"%s\"\n\nWould you like the rephrased version or the original?", rephrase)
}

// hint keeps the candidate on the same question. It does not count toward
// the follow-up depth.
func (c *Controller) hint(ctx context.Context, s *Session, question, reply string) Action {
	s.slot().HintsOffered++

	text, err := c.collab().Hint(ctx, question, reply, s.Role)
	if err != nil || text == "" {
		c.degraded(s, "hint", err)
		text = fallbackHint + " " + question
	}
	return AskFollowUp{Message: text, Hint: true, Depth: s.FollowUpDepth}
}

func (c *Controller) followUp(ctx context.Context, s *Session, question, reply string, focus evaluate.FollowUpType) Action {
	slot := s.slot()
	if s.FollowUpDepth >= c.maxDepth {
		slot.Note(NoteMaxFollowUpDepth)
		c.log(*s, nil).Debug("follow-up abandoned at depth limit", zap.Int("followup_depth", s.FollowUpDepth))
		return c.advance(ctx, s)
	}

	text, err := c.collab().FollowUp(ctx, question, reply, focus, s.Role)
	if err != nil || text == "" {
		c.degraded(s, "follow-up", err)
		text = fallbackFollowUps[focus]
		if text == "" {
			text = fallbackFollowUps[evaluate.FollowUpDepth]
		}
	}

	s.FollowUpDepth++
	s.PendingFollowUp = text
	s.FollowUpHistory = append(s.FollowUpHistory, FollowUpRecord{
		QuestionIndex: s.CurrentQuestionIndex,
		Depth:         s.FollowUpDepth,
		Text:          text,
		AskedAt:       c.now().UTC(),
	})
	slot.FollowUpsAsked++

	return AskFollowUp{Message: text, Depth: s.FollowUpDepth}
}

// advance moves to the next main question or finishes the session.
func (c *Controller) advance(ctx context.Context, s *Session) Action {
	s.PendingFollowUp = ""
	if s.isLastQuestion() {
		s.Stage = StageFinished
		return Finish{Summary: c.summarize(ctx, s)}
	}

	s.CurrentQuestionIndex++
	s.FollowUpDepth = 0
	s.slot()
	return AskQuestion{Index: s.CurrentQuestionIndex, Question: s.CurrentQuestion()}
}

func (c *Controller) summarize(ctx context.Context, s *Session) Summary {
	summary, err := c.collab().Summary(ctx, SummaryInput{
		Role:        s.Role,
		Skills:      append([]string(nil), s.Skills...),
		Questions:   append([]string(nil), s.Questions...),
		Answers:     append([]string(nil), s.Answers...),
		Evaluations: s.Clone().Evaluations,
	})
	if err != nil || (summary.Report == nil && summary.Text == "") {
		c.degraded(s, "summary", err)
		return Summary{Text: fallbackSummary}
	}
	return summary
}

func (c *Controller) rephrase(ctx context.Context, s *Session, question string) string {
	text, err := c.collab().Rephrase(ctx, question, s.Role)
	if err != nil || text == "" {
		c.degraded(s, "rephrase", err)
		return question
	}
	return text
}

func (c *Controller) request(s *Session, question, reply string) evaluate.Request {
	return evaluate.Request{Question: question, Answer: reply, Role: s.Role, Skills: s.Skills}
}

func (c *Controller) collab() Collaborator {
	if c.collaborator == nil {
		return nopCollaborator{}
	}
	return c.collaborator
}

func (c *Controller) degraded(s *Session, call string, err error) {
	if err == nil {
		err = errors.New("empty response")
	}
	c.log(*s, nil).Warn("collaborator call failed; using fallback text", zap.String("call", call), zap.Error(err))
}

func (c *Controller) log(s Session, action Action) *zap.Logger {
	l := logger.WithSession(c.logger, s.ID, s.Role).With(zap.Int("question_index", s.CurrentQuestionIndex))
	if action != nil {
		l = l.With(zap.String("action", string(action.Kind())))
	}
	return l
}

type nopCollaborator struct{}

func (nopCollaborator) Rephrase(context.Context, string, string) (string, error) {
	return "", errNoCollaborator
}

func (nopCollaborator) Hint(context.Context, string, string, string) (string, error) {
	return "", errNoCollaborator
}

func (nopCollaborator) FollowUp(context.Context, string, string, evaluate.FollowUpType, string) (string, error) {
	return "", errNoCollaborator
}

func (nopCollaborator) Summary(context.Context, SummaryInput) (Summary, error) {
	return Summary{}, errNoCollaborator
}
