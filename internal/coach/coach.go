// Package coach produces the interviewer's free text: questions,
// rephrasings, hints, follow-ups and the final summary.
package coach

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/ai"
	"github.com/spigell/interview-coach/internal/evaluate"
	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/utils"
)

const (
	questionsSystem = "You are an expert interviewer who writes clear, realistic interview questions."
	rephraseSystem  = "You are an interviewer who can paraphrase a question simply and concisely."
	hintSystem      = "You are an interviewer providing a small hint to help the candidate, but do NOT give away the answer."
	followUpSystem  = "You are an interviewer asking a short targeted follow-up question."
	summarySystem   = "You are an expert interview coach. Analyze the session and produce a structured summary."

	// FocusHint asks FollowUp for a hint instead of a follow-up question.
	FocusHint evaluate.FollowUpType = "hint"
)

var (
	//go:embed prompts/questions.md
	questionsPrompt string
	//go:embed prompts/rephrase.md
	rephrasePrompt string
	//go:embed prompts/hint.md
	hintPrompt string
	//go:embed prompts/followup.md
	followUpPrompt string
	//go:embed prompts/summary.md
	summaryPrompt string
)

// DemoQuestions are used when question generation is unavailable.
var DemoQuestions = []string{
	"Tell me about a project you are proud of.",
	"How do you debug a production issue?",
	"Explain a data structure you use often.",
}

// ErrEmptyResponse is returned when the generator produced no text.
var ErrEmptyResponse = errors.New("empty response from generator")

// Coach implements interview.Collaborator on top of a text generator.
type Coach struct {
	generator ai.Generator
	logger    *zap.Logger
}

var _ interview.Collaborator = (*Coach)(nil)

// New creates a Coach.
func New(generator ai.Generator, logger *zap.Logger) *Coach {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coach{generator: generator, logger: logger}
}

// Questions generates the main questions for a session. The count follows
// the mode.
func (c *Coach) Questions(ctx context.Context, role string, mode interview.Mode, skills []string) ([]string, error) {
	count := mode.QuestionCount()
	prompt := fill(questionsPrompt, map[string]string{
		"ROLE":   role,
		"MODE":   string(mode),
		"SKILLS": skillsText(skills),
		"COUNT":  strconv.Itoa(count),
	})

	raw, err := c.generate(ctx, questionsSystem, prompt, ai.Options{MaxOutputTokens: 60 * count, Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions := ParseQuestions(raw)
	if len(questions) > count {
		questions = questions[:count]
	}
	c.logger.Debug("questions generated", zap.Int("requested", count), zap.Int("parsed", len(questions)))
	return questions, nil
}

var numberedLine = regexp.MustCompile(`^\s*\d+[).\s-]+(.+)$`)

// ParseQuestions extracts a numbered list. When nothing is numbered the whole
// trimmed text is one question.
func ParseQuestions(raw string) []string {
	var questions []string
	for _, line := range strings.Split(raw, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if q := strings.TrimSpace(strings.Trim(m[1], "*")); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		if q := strings.TrimSpace(raw); q != "" {
			questions = []string{q}
		}
	}
	return questions
}

// Rephrase paraphrases a question in at most twenty words.
func (c *Coach) Rephrase(ctx context.Context, question, role string) (string, error) {
	prompt := fill(rephrasePrompt, map[string]string{"ROLE": role, "QUESTION": question})
	return c.generate(ctx, rephraseSystem, prompt, ai.Options{MaxOutputTokens: 80, Temperature: 0.2})
}

// Hint returns a short nudge followed by the question again.
func (c *Coach) Hint(ctx context.Context, question, answer, role string) (string, error) {
	prompt := fill(hintPrompt, map[string]string{"ROLE": role, "QUESTION": question, "ANSWER": answer})
	return c.generate(ctx, hintSystem, prompt, ai.Options{MaxOutputTokens: 120, Temperature: 0.25})
}

// FollowUp writes a follow-up question with the given focus.
func (c *Coach) FollowUp(ctx context.Context, question, answer string, focus evaluate.FollowUpType, role string) (string, error) {
	if focus == FocusHint {
		return c.Hint(ctx, question, answer, role)
	}
	prompt := fill(followUpPrompt, map[string]string{
		"ROLE":     role,
		"QUESTION": question,
		"ANSWER":   answer,
		"FOCUS":    string(focus),
	})
	return c.generate(ctx, followUpSystem, prompt, ai.Options{MaxOutputTokens: 80, Temperature: 0.25})
}

// Summary produces the final feedback. A reply without a JSON object is
// returned as text only.
func (c *Coach) Summary(ctx context.Context, in interview.SummaryInput) (interview.Summary, error) {
	evaluations, err := json.Marshal(in.Evaluations)
	if err != nil {
		return interview.Summary{}, fmt.Errorf("marshal evaluations: %w", err)
	}

	prompt := fill(summaryPrompt, map[string]string{
		"ROLE":        in.Role,
		"SKILLS":      skillsText(in.Skills),
		"TRANSCRIPT":  transcript(in.Questions, in.Answers),
		"EVALUATIONS": string(evaluations),
	})

	raw, err := c.generate(ctx, summarySystem, prompt, ai.Options{MaxOutputTokens: 600, Temperature: 0})
	if err != nil {
		return interview.Summary{}, err
	}

	return ParseSummary(raw, c.logger), nil
}

// ParseSummary splits model output into the structured report and the
// surrounding free text.
func ParseSummary(raw string, logger *zap.Logger) interview.Summary {
	object, err := ai.ExtractJSON(raw)
	if err != nil {
		return interview.Summary{Text: strings.TrimSpace(raw)}
	}

	var report interview.SummaryReport
	if _, err := ai.DecodeObject(object, &report); err != nil {
		if logger != nil {
			logger.Warn("could not decode summary report",
				zap.Error(err),
				zap.String("response_preview", utils.TruncateForLog(raw, 200)),
			)
		}
		return interview.Summary{Text: strings.TrimSpace(raw)}
	}

	return interview.Summary{Report: &report, Text: ai.Remainder(raw, object)}
}

func (c *Coach) generate(ctx context.Context, system, prompt string, opts ai.Options) (string, error) {
	if c.generator == nil {
		return "", errors.New("text generator is not configured")
	}
	out, err := c.generator.Generate(ctx, ai.Prompt(system, prompt), opts)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// transcript lists the main questions and then every reply in arrival
// order, since replies to clarifications and follow-ups are interleaved.
func transcript(questions, answers []string) string {
	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, q)
	}
	b.WriteString("\nCandidate replies in order:\n")
	for i, a := range answers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	return strings.TrimSpace(b.String())
}

func skillsText(skills []string) string {
	if len(skills) == 0 {
		return "not specified"
	}
	return strings.Join(skills, ", ")
}

func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
