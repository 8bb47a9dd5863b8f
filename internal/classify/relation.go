package classify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/ai"
	"github.com/spigell/interview-coach/internal/utils"
)

// Relation tells whether a reply is topically connected to its question.
type Relation string

const (
	RelationRelated   Relation = "related"
	RelationUnrelated Relation = "unrelated"
	RelationAmbiguous Relation = "ambiguous"
	RelationRefuse    Relation = "refuse"
)

const (
	// DefaultOverlapThreshold is the minimum share of question tokens a
	// related reply must repeat.
	DefaultOverlapThreshold = 0.2
	// minContentTokens is the reply length at or below which overlap is not
	// trusted.
	minContentTokens = 2

	relationSystem = "You are a concise classifier that decides whether a candidate's reply is related to the interview question."
	relationPrompt = `Question: {{QUESTION}}
Candidate reply: {{ANSWER}}

Return JSON only: {"related": true|false|"ambiguous", "reason": "one-line reason"}.`
)

// RelationClassifier runs the token-overlap fast path and escalates
// ambiguous results to a text generator.
type RelationClassifier struct {
	patterns  *Patterns
	threshold float64
	generator ai.Generator
	logger    *zap.Logger
}

// RelationConfig configures a RelationClassifier.
type RelationConfig struct {
	Patterns  *Patterns
	Threshold float64
	// Generator is optional; without it ambiguous results stay ambiguous.
	Generator ai.Generator
	Logger    *zap.Logger
}

// NewRelationClassifier applies defaults to cfg.
func NewRelationClassifier(cfg RelationConfig) *RelationClassifier {
	if cfg.Patterns == nil {
		cfg.Patterns = DefaultPatterns()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultOverlapThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RelationClassifier{
		patterns:  cfg.Patterns,
		threshold: cfg.Threshold,
		generator: cfg.Generator,
		logger:    cfg.Logger,
	}
}

// relationRule is one fast-path step; ok=false passes to the next rule.
type relationRule func(c *RelationClassifier, question string, answer []string, raw string) (Relation, bool)

var relationRules = []relationRule{
	func(_ *RelationClassifier, _ string, _ []string, raw string) (Relation, bool) {
		return RelationUnrelated, strings.TrimSpace(raw) == ""
	},
	func(c *RelationClassifier, _ string, _ []string, raw string) (Relation, bool) {
		return RelationRefuse, c.patterns.IsRefusal(raw)
	},
	func(c *RelationClassifier, _ string, _ []string, raw string) (Relation, bool) {
		return RelationUnrelated, c.patterns.IsGreeting(raw)
	},
	func(_ *RelationClassifier, _ string, answer []string, _ string) (Relation, bool) {
		return RelationAmbiguous, len(answer) <= minContentTokens
	},
	func(c *RelationClassifier, question string, answer []string, _ string) (Relation, bool) {
		return c.overlap(question, answer), true
	},
}

// FastPath classifies without any backend call. It is a pure function of
// its inputs and the configured tables.
func (c *RelationClassifier) FastPath(question, answer string) Relation {
	tokens := c.patterns.ContentTokens(answer)
	for _, rule := range relationRules {
		if rel, ok := rule(c, question, tokens, answer); ok {
			return rel
		}
	}
	return RelationAmbiguous
}

func (c *RelationClassifier) overlap(question string, answer []string) Relation {
	questionSet := toSet(c.patterns.ContentTokens(question))
	if len(questionSet) == 0 {
		return RelationAmbiguous
	}

	shared := 0
	for token := range toSet(answer) {
		if _, ok := questionSet[token]; ok {
			shared++
		}
	}

	if float64(shared)/float64(len(questionSet)) < c.threshold {
		return RelationUnrelated
	}
	return RelationRelated
}

// Classify runs the fast path and, only when it is ambiguous, asks the
// generator for a second opinion.
func (c *RelationClassifier) Classify(ctx context.Context, question, answer string) Relation {
	rel := c.FastPath(question, answer)
	if rel != RelationAmbiguous {
		return rel
	}
	return c.Remote(ctx, question, answer)
}

// Remote asks the generator whether answer relates to question. Any failure
// yields RelationAmbiguous.
func (c *RelationClassifier) Remote(ctx context.Context, question, answer string) Relation {
	if c.generator == nil {
		return RelationAmbiguous
	}

	prompt := strings.NewReplacer("{{QUESTION}}", question, "{{ANSWER}}", answer).Replace(relationPrompt)
	raw, err := c.generator.Generate(ctx, ai.Prompt(relationSystem, prompt), ai.Options{MaxOutputTokens: 120, Temperature: 0})
	if err != nil {
		c.logger.Warn("relation classification failed", zap.Error(err))
		return RelationAmbiguous
	}

	var verdict struct {
		Related any    `mapstructure:"related"`
		Reason  string `mapstructure:"reason"`
	}
	if _, err := ai.DecodeObject(raw, &verdict); err != nil {
		c.logger.Warn("could not parse relation classifier output",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, 200)),
		)
		return RelationAmbiguous
	}

	rel := normalizeRelation(verdict.Related)
	c.logger.Debug("relation escalated", zap.String("relation", string(rel)), zap.String("reason", verdict.Reason))
	return rel
}

func normalizeRelation(v any) Relation {
	switch val := v.(type) {
	case bool:
		if val {
			return RelationRelated
		}
		return RelationUnrelated
	case string:
		switch Relation(strings.ToLower(strings.TrimSpace(val))) {
		case RelationRelated, "true", "yes":
			return RelationRelated
		case RelationUnrelated, "false", "no":
			return RelationUnrelated
		}
	}
	return RelationAmbiguous
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
