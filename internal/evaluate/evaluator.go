// Package evaluate scores candidate replies and decides whether a follow-up
// question is warranted.
package evaluate

import (
	"context"
	_ "embed"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/ai"
	"github.com/spigell/interview-coach/internal/classify"
	"github.com/spigell/interview-coach/internal/utils"
)

const (
	scoringSystem   = "You are an objective interview evaluator. Reply with a JSON object and nothing else."
	knowledgeSystem = "You are a concise classifier for candidate intent. Answer with a single JSON object."

	neutralScore = 3
	minScore     = 1
	maxScore     = 5

	defaultComments = "Could not parse model output; default neutral scores."
)

//go:embed prompts/scoring.md
var scoringPrompt string

//go:embed prompts/knowledge.md
var knowledgePrompt string

// FollowUpType is the focus of a requested follow-up question.
type FollowUpType string

const (
	FollowUpClarity FollowUpType = "clarity"
	FollowUpDepth   FollowUpType = "depth"
	FollowUpExample FollowUpType = "example"
	FollowUpNone    FollowUpType = "none"
)

// ParseFollowUpType maps free text onto a follow-up type. Anything
// unrecognised becomes FollowUpNone.
func ParseFollowUpType(s string) FollowUpType {
	switch t := FollowUpType(strings.ToLower(strings.TrimSpace(s))); t {
	case FollowUpClarity, FollowUpDepth, FollowUpExample:
		return t
	default:
		return FollowUpNone
	}
}

// Request describes one reply to evaluate.
type Request struct {
	Question string
	Answer   string
	Role     string
	Skills   []string
}

// Result is the outcome of evaluating a reply.
type Result struct {
	Clarity        int          `json:"clarity"`
	Structure      int          `json:"structure"`
	TechnicalDepth int          `json:"technical_depth"`
	Relevance      int          `json:"relevance"`
	NeedsFollowUp  bool         `json:"needs_follow_up"`
	FollowUpType   FollowUpType `json:"follow_up_type"`
	Comments       string       `json:"comments,omitempty"`

	KnowledgeIntent classify.Intent `json:"knowledge_intent"`
	HeuristicIntent classify.Intent `json:"knowledge_intent_heuristic,omitempty"`
	RemoteIntent    classify.Intent `json:"knowledge_intent_remote,omitempty"`

	// Degraded is set when the scores are the neutral default.
	Degraded bool `json:"degraded,omitempty"`
}

// WantsFollowUp reports whether the result asks for a follow-up of a known type.
func (r Result) WantsFollowUp() bool {
	return r.NeedsFollowUp && r.FollowUpType != FollowUpNone
}

// Evaluator scores replies with a text generator. It never returns an
// error: backend failures degrade to neutral defaults.
type Evaluator struct {
	generator  ai.Generator
	heuristics *classify.Heuristics
	logger     *zap.Logger
}

// Config configures an Evaluator.
type Config struct {
	Generator  ai.Generator
	Heuristics *classify.Heuristics
	Logger     *zap.Logger
}

// New creates an Evaluator. A nil generator yields neutral scores for every
// reply.
func New(cfg Config) *Evaluator {
	if cfg.Heuristics == nil {
		cfg.Heuristics = classify.NewHeuristics(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Evaluator{
		generator:  cfg.Generator,
		heuristics: cfg.Heuristics,
		logger:     cfg.Logger,
	}
}

// Evaluate derives the knowledge intent and scores the reply.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Result {
	heuristic := e.heuristics.Intent(req.Answer)

	knowledge, remote := heuristic, classify.Intent("")
	switch {
	case heuristic != classify.IntentAmbiguous && heuristic != classify.IntentGreeting:
	case e.generator != nil:
		remote = e.KnowledgeIntent(ctx, req)
		knowledge = remote
	case heuristic == classify.IntentAmbiguous:
		// Offline, a reply with no refusal or hedging is taken as an answer.
		knowledge = classify.IntentKnown
	}

	result := e.score(ctx, req)
	result.KnowledgeIntent = knowledge
	result.HeuristicIntent = heuristic
	result.RemoteIntent = remote

	e.logger.Debug("answer evaluated",
		zap.String("knowledge_intent", string(knowledge)),
		zap.Bool("needs_follow_up", result.NeedsFollowUp),
		zap.String("follow_up_type", string(result.FollowUpType)),
		zap.Bool("degraded", result.Degraded),
	)

	return result
}

// KnowledgeIntent asks the generator for the candidate's knowledge intent.
// Any failure, including a missing generator, yields classify.IntentUnknown.
func (e *Evaluator) KnowledgeIntent(ctx context.Context, req Request) classify.Intent {
	if e.generator == nil {
		return classify.IntentUnknown
	}

	raw, err := e.generator.Generate(ctx, ai.Prompt(knowledgeSystem, fill(knowledgePrompt, req)), ai.Options{MaxOutputTokens: 100, Temperature: 0})
	if err != nil {
		e.logger.Warn("knowledge intent classification failed", zap.Error(err))
		return classify.IntentUnknown
	}

	var verdict struct {
		KnowledgeIntent string `mapstructure:"knowledge_intent"`
		Reason          string `mapstructure:"reason"`
	}
	if _, err := ai.DecodeObject(raw, &verdict); err != nil {
		e.logger.Warn("could not parse knowledge intent output",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, 200)),
		)
		return classify.IntentUnknown
	}

	intent, ok := classify.ParseIntent(verdict.KnowledgeIntent)
	if !ok {
		e.logger.Warn("unexpected knowledge intent", zap.String("knowledge_intent", verdict.KnowledgeIntent))
		return classify.IntentUnknown
	}
	return intent
}

type scoring struct {
	Clarity        *int   `mapstructure:"clarity"`
	Structure      *int   `mapstructure:"structure"`
	TechnicalDepth *int   `mapstructure:"technical_depth"`
	Relevance      *int   `mapstructure:"relevance"`
	NeedsFollowUp  bool   `mapstructure:"needs_follow_up"`
	FollowUpType   string `mapstructure:"follow_up_type"`
	Comments       string `mapstructure:"comments"`
}

func (s scoring) empty() bool {
	return s.Clarity == nil && s.Structure == nil && s.TechnicalDepth == nil && s.Relevance == nil
}

func (e *Evaluator) score(ctx context.Context, req Request) Result {
	if e.generator == nil {
		return Neutral(req.Role)
	}

	raw, err := e.generator.Generate(ctx, ai.Prompt(scoringSystem, fill(scoringPrompt, req)), ai.Options{MaxOutputTokens: 300, Temperature: 0})
	if err != nil {
		e.logger.Warn("answer scoring failed", zap.Error(err))
		return Neutral(req.Role)
	}

	var parsed scoring
	if _, err := ai.DecodeObject(raw, &parsed); err != nil || parsed.empty() {
		e.logger.Warn("could not parse scoring output",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, 200)),
		)
		return Neutral(req.Role)
	}

	result := Result{
		Clarity:        clamp(parsed.Clarity),
		Structure:      clamp(parsed.Structure),
		TechnicalDepth: clamp(parsed.TechnicalDepth),
		Relevance:      clamp(parsed.Relevance),
		NeedsFollowUp:  parsed.NeedsFollowUp,
		FollowUpType:   ParseFollowUpType(parsed.FollowUpType),
		Comments:       strings.TrimSpace(parsed.Comments),
	}
	if result.FollowUpType == FollowUpNone {
		result.NeedsFollowUp = false
	}
	return result
}

// Neutral is the default result used when scoring output is unavailable.
// Non-engineering roles get a technical depth of 0.
func Neutral(role string) Result {
	depth := neutralScore
	if !IsEngineeringRole(role) {
		depth = 0
	}
	return Result{
		Clarity:        neutralScore,
		Structure:      neutralScore,
		TechnicalDepth: depth,
		Relevance:      neutralScore,
		FollowUpType:   FollowUpNone,
		Comments:       defaultComments,
		Degraded:       true,
	}
}

var engineeringMarkers = []string{"engineer", "developer", "programmer", "sre", "devops"}

// IsEngineeringRole reports whether technical depth applies to role.
func IsEngineeringRole(role string) bool {
	role = strings.ToLower(role)
	for _, marker := range engineeringMarkers {
		if strings.Contains(role, marker) {
			return true
		}
	}
	return false
}

func clamp(v *int) int {
	switch {
	case v == nil:
		return neutralScore
	case *v < minScore:
		return minScore
	case *v > maxScore:
		return maxScore
	default:
		return *v
	}
}

func fill(template string, req Request) string {
	skills := "not specified"
	if len(req.Skills) > 0 {
		skills = strings.Join(req.Skills, ", ")
	}
	return strings.NewReplacer(
		"{{ROLE}}", req.Role,
		"{{SKILLS}}", skills,
		"{{QUESTION}}", req.Question,
		"{{ANSWER}}", req.Answer,
	).Replace(template)
}
