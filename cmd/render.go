package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/spigell/interview-coach/internal/interview"
)

const defaultWidth = 100

var (
	interviewerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	clarifyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	followUpStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// printAction writes the interviewer's turn to stdout.
func printAction(action interview.Action) {
	if action == nil {
		return
	}

	switch a := action.(type) {
	case interview.AskQuestion:
		label := fmt.Sprintf("Question %d", a.Index+1)
		if a.Repeat {
			label += " (again)"
		}
		fmt.Printf("\n%s %s\n", interviewerStyle.Render(label+":"), a.Question)
	case interview.AskFollowUp:
		label := "Follow-up:"
		if a.Hint {
			label = "Hint:"
		}
		fmt.Printf("\n%s %s\n", followUpStyle.Render(label), a.Message)
	case interview.Clarify:
		fmt.Printf("\n%s %s\n", clarifyStyle.Render("Interviewer:"), a.Message)
	case interview.Finish:
		fmt.Printf("\n%s %s\n", interviewerStyle.Render("Interview finished."), mutedStyle.Render(a.Text()))
	}
}

// renderMarkdown renders md for the terminal, returning md unchanged when
// rendering fails.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(terminalWidth()),
	)
	if err != nil {
		return md
	}

	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
