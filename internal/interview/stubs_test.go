package interview

import (
	"context"
	"fmt"

	"github.com/spigell/interview-coach/internal/classify"
	"github.com/spigell/interview-coach/internal/evaluate"
)

type scriptedEvaluator struct {
	results  []evaluate.Result
	requests []evaluate.Request
}

// Evaluate returns the scripted results in order and repeats the last one.
func (e *scriptedEvaluator) Evaluate(_ context.Context, req evaluate.Request) evaluate.Result {
	e.requests = append(e.requests, req)
	if len(e.results) == 0 {
		return known()
	}
	r := e.results[0]
	if len(e.results) > 1 {
		e.results = e.results[1:]
	}
	return r
}

func known() evaluate.Result {
	return evaluate.Result{
		Clarity: 4, Structure: 4, TechnicalDepth: 4, Relevance: 4,
		FollowUpType:    evaluate.FollowUpNone,
		KnowledgeIntent: classify.IntentKnown,
	}
}

func wantsFollowUp(focus evaluate.FollowUpType) evaluate.Result {
	r := known()
	r.NeedsFollowUp = true
	r.FollowUpType = focus
	return r
}

type countingRelation struct {
	inner *classify.RelationClassifier
	calls int
}

func (r *countingRelation) Classify(ctx context.Context, question, answer string) classify.Relation {
	r.calls++
	return r.inner.Classify(ctx, question, answer)
}

type stubCollaborator struct {
	err       error
	rephrases int
	hints     int
	followUps []evaluate.FollowUpType
	summaries []SummaryInput
}

func (c *stubCollaborator) Rephrase(_ context.Context, question, _ string) (string, error) {
	c.rephrases++
	if c.err != nil {
		return "", c.err
	}
	return "In short: " + question, nil
}

func (c *stubCollaborator) Hint(_ context.Context, question, _, _ string) (string, error) {
	c.hints++
	if c.err != nil {
		return "", c.err
	}
	return "Think about lookups. " + question, nil
}

func (c *stubCollaborator) FollowUp(_ context.Context, _, _ string, focus evaluate.FollowUpType, _ string) (string, error) {
	c.followUps = append(c.followUps, focus)
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("Follow-up %d on %s?", len(c.followUps), focus), nil
}

func (c *stubCollaborator) Summary(_ context.Context, in SummaryInput) (Summary, error) {
	c.summaries = append(c.summaries, in)
	if c.err != nil {
		return Summary{}, c.err
	}
	return Summary{Report: &SummaryReport{Summary: "Solid interview."}, Text: "Keep practicing."}, nil
}
