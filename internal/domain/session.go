package domain

import "time"

// QuizPhase is the mode of a quiz session that gates which operations are valid.
type QuizPhase string

const (
	QuizIdle     QuizPhase = "idle"
	QuizLoading  QuizPhase = "loading"
	QuizActive   QuizPhase = "active"
	QuizAnswered QuizPhase = "answered"
	QuizFinished QuizPhase = "finished"
)

// ChatPhase is the mode of a chat session.
type ChatPhase string

const (
	ChatIdle     ChatPhase = "idle"
	ChatAwaiting ChatPhase = "awaiting"
)

// QuestionView is the presentation form of the current question. CorrectKey and
// Explanation stay empty until the question has been answered.
type QuestionView struct {
	Prompt      string            `json:"question"`
	Options     map[string]string `json:"options"`
	CorrectKey  string            `json:"answer,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
}

// QuizSnapshot is a copy of a quiz session's state.
type QuizSnapshot struct {
	Phase          QuizPhase     `json:"phase"`
	CurrentIndex   int           `json:"currentIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	Score          int           `json:"score"`
	SelectedOption string        `json:"selectedOption,omitempty"`
	Correct        bool          `json:"correct,omitempty"`
	Question       *QuestionView `json:"question,omitempty"`
	Percentage     int           `json:"percentage"`
	Error          string        `json:"error,omitempty"`
	Result         *QuizResult   `json:"result,omitempty"`
}

// IsLast reports whether the snapshot shows the final question.
func (s QuizSnapshot) IsLast() bool {
	return s.TotalQuestions > 0 && s.CurrentIndex == s.TotalQuestions-1
}

// ChatSnapshot is a copy of a chat session's transcript and phase.
type ChatSnapshot struct {
	Phase     ChatPhase     `json:"phase"`
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
