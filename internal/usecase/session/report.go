package session

import (
	"fmt"
	"strings"

	"quantprep/internal/domain/interview"
)

// RenderReport formats a session as the plain-text results export.
func RenderReport(d Detail) string {
	var b strings.Builder
	s := d.Session

	fmt.Fprintf(&b, "Interview Results - %s %s (%s)\n\n", s.Role, s.RoundType, s.Difficulty)
	if s.Score != nil {
		fmt.Fprintf(&b, "Overall Score: %d/10 (%s)\n", *s.Score, interview.ScoreBand(float64(*s.Score)))
	} else {
		b.WriteString("Overall Score: pending\n")
	}
	fmt.Fprintf(&b, "Started: %s\n", s.StartedAt.UTC().Format("2006-01-02 15:04 MST"))
	if s.EndedAt != nil {
		fmt.Fprintf(&b, "Completed: %s\n", s.EndedAt.UTC().Format("2006-01-02 15:04 MST"))
	}

	b.WriteString("\nQuestions and Answers:\n")
	if len(d.QAs) == 0 {
		b.WriteString("\nNo questions were answered.\n")
	}
	for i, qa := range d.QAs {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, qa.Question)
		fmt.Fprintf(&b, "Answer: %s\n", deref(qa.Answer, "(no answer)"))
		if qa.AIScore != nil {
			fmt.Fprintf(&b, "Score: %d/10\n", *qa.AIScore)
		} else {
			b.WriteString("Score: n/a\n")
		}
		fmt.Fprintf(&b, "Feedback: %s\n", deref(qa.AIFeedback, "-"))
	}
	return b.String()
}

func deref(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return *s
}
