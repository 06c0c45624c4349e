package cli

import (
	"fmt"
	"sort"
	"strings"

	"study-session/internal/analytics"
	"study-session/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))
)

func bandStyle(b analytics.Band) lipgloss.Style {
	switch b {
	case analytics.BandExcellent:
		return successStyle
	case analytics.BandGood:
		return warningStyle
	default:
		return errorStyle
	}
}

func renderReport(r analytics.Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Learning Analytics"))
	b.WriteString("\n")

	stat := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label)), value)
	}
	stat("Quizzes Completed", valueStyle.Render(fmt.Sprint(r.QuizzesCompleted)))
	stat("Avg. Accuracy", bandStyle(r.Band).Render(fmt.Sprintf("%d%%", r.AvgAccuracy)))
	stat("Total Questions", valueStyle.Render(fmt.Sprint(r.TotalQuestions)))
	stat("Best Score", bandStyle(analytics.BandFor(r.BestScore)).Render(fmt.Sprintf("%d%%", r.BestScore)))

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Recent Quiz History"))
	b.WriteString("\n")
	if len(r.RecentHistory) == 0 {
		b.WriteString(labelStyle.Render("No quiz history yet. Take a quiz to see your progress!"))
		b.WriteString("\n")
	}
	for _, h := range r.RecentHistory {
		fmt.Fprintf(&b, "%s  %d/%d  %s\n",
			dateStyle.Render(h.Timestamp.Local().Format("2006-01-02 15:04")),
			h.Score, h.TotalQuestions,
			bandStyle(h.Band).Render(fmt.Sprintf("%d%%", h.Percentage)))
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Study Recommendations"))
	b.WriteString("\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "• %s\n", rec)
	}
	return b.String()
}

func renderQuestion(s domain.QuizSnapshot) string {
	if s.Question == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Question %d of %d", s.CurrentIndex+1, s.TotalQuestions)))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render(s.Question.Prompt))
	b.WriteString("\n")
	for _, key := range optionKeys(s.Question.Options) {
		fmt.Fprintf(&b, "  %s. %s\n", key, s.Question.Options[key])
	}
	return b.String()
}

func renderFeedback(s domain.QuizSnapshot) string {
	if s.Question == nil {
		return ""
	}
	var b strings.Builder
	if s.Correct {
		b.WriteString(successStyle.Render("Correct!"))
	} else {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Incorrect. The answer is %s.", s.Question.CorrectKey)))
	}
	b.WriteString("\n")
	if s.Question.Explanation != "" {
		b.WriteString(labelStyle.Render(s.Question.Explanation))
		b.WriteString("\n")
	}
	return b.String()
}

func renderResult(r domain.QuizResult) string {
	band := analytics.BandFor(r.DisplayPercentage())
	return headerStyle.Render("Quiz Complete!") + "\n" +
		fmt.Sprintf("You scored %d out of %d ", r.Score, r.TotalQuestions) +
		bandStyle(band).Render(fmt.Sprintf("(%d%%)", r.DisplayPercentage())) + "\n"
}

func renderMessage(m domain.ChatMessage) string {
	var b strings.Builder
	if m.IsError {
		b.WriteString(errorStyle.Render(m.Text))
	} else {
		b.WriteString(m.Text)
	}
	b.WriteString("\n")
	if sources := m.DisplaySources(); len(sources) > 0 {
		b.WriteString(labelStyle.Render("Sources: "))
		b.WriteString(sourceStyle.Render(strings.Join(sources, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func optionKeys(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
