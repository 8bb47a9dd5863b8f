package interview

// ActionKind names an action variant.
type ActionKind string

const (
	KindClarify     ActionKind = "clarify"
	KindAskQuestion ActionKind = "ask_question"
	KindAskFollowUp ActionKind = "ask_follow_up"
	KindFinish      ActionKind = "finish"
)

// Action is what the candidate sees next. It is one of Clarify,
// AskQuestion, AskFollowUp or Finish.
type Action interface {
	Kind() ActionKind
	// Text is the message to show the candidate.
	Text() string
}

// Clarify asks whether the candidate understood the question.
type Clarify struct {
	Message  string `json:"message"`
	Rephrase string `json:"rephrase"`
}

// AskQuestion presents a main question. Repeat is set when the same
// question is asked again verbatim.
type AskQuestion struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Repeat   bool   `json:"repeat,omitempty"`
}

// AskFollowUp presents a follow-up question or, when Hint is set, a hint
// followed by the main question.
type AskFollowUp struct {
	Message string `json:"message"`
	Hint    bool   `json:"hint,omitempty"`
	Depth   int    `json:"depth"`
}

// Finish ends the interview.
type Finish struct {
	Summary Summary `json:"summary"`
}

func (Clarify) Kind() ActionKind     { return KindClarify }
func (AskQuestion) Kind() ActionKind { return KindAskQuestion }
func (AskFollowUp) Kind() ActionKind { return KindAskFollowUp }
func (Finish) Kind() ActionKind      { return KindFinish }

func (a Clarify) Text() string     { return a.Message }
func (a AskQuestion) Text() string { return a.Question }
func (a AskFollowUp) Text() string { return a.Message }

func (a Finish) Text() string {
	if a.Summary.Text == "" && a.Summary.Report != nil {
		return a.Summary.Report.Summary
	}
	return a.Summary.Text
}
