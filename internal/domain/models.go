package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one entry of a chat transcript. Messages are never mutated after creation.
type ChatMessage struct {
	ID        uint64    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Sources   []string  `json:"sources,omitempty"`
	IsError   bool      `json:"isError"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplaySources returns the sources with duplicates removed, keeping first occurrences.
func (m ChatMessage) DisplaySources() []string {
	if len(m.Sources) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(m.Sources))
	out := make([]string, 0, len(m.Sources))
	for _, s := range m.Sources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ChatAnswer is the remote answering service's reply to a question.
type ChatAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// QuizQuestion models an MCQ question as produced by the answering service.
type QuizQuestion struct {
	Prompt      string            `json:"question"`
	Options     map[string]string `json:"options"`
	CorrectKey  string            `json:"answer"`
	Explanation string            `json:"explanation"`
}

// HasOption reports whether key is one of the question's option keys.
func (q QuizQuestion) HasOption(key string) bool {
	_, ok := q.Options[key]
	return ok
}

// QuizResult is a ledger entry written once per finished quiz.
type QuizResult struct {
	Timestamp      time.Time `json:"timestamp"`
	TotalQuestions int       `json:"totalQuestions"`
	Score          int       `json:"score"`
	Percentage     int       `json:"percentage"`
}

// NewQuizResult builds a result, computing the percentage rounded half up and clamped to [0,100].
func NewQuizResult(at time.Time, totalQuestions, score int) QuizResult {
	return QuizResult{
		Timestamp:      at.UTC(),
		TotalQuestions: totalQuestions,
		Score:          score,
		Percentage:     Percentage(score, totalQuestions),
	}
}

// UnmarshalJSON accepts fractional or out-of-range numbers from other writers: counts are
// rounded and bounded to non-negative int32 values, the percentage to [0,100].
func (r *QuizResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp      time.Time `json:"timestamp"`
		TotalQuestions float64   `json:"totalQuestions"`
		Score          float64   `json:"score"`
		Percentage     float64   `json:"percentage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Timestamp = raw.Timestamp
	r.TotalQuestions = boundedInt(raw.TotalQuestions, 0, math.MaxInt32)
	r.Score = boundedInt(raw.Score, 0, math.MaxInt32)
	r.Percentage = boundedInt(raw.Percentage, 0, 100)
	return nil
}

func boundedInt(f float64, lo, hi int) int {
	f = math.Floor(f + 0.5)
	switch {
	case math.IsNaN(f) || f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	default:
		return int(f)
	}
}

// DisplayPercentage caps stored percentages that came from malformed upstream data.
func (r QuizResult) DisplayPercentage() int {
	return ClampPercent(r.Percentage)
}

// Percentage returns round(100*score/total) clamped to [0,100]; 0 when total is not positive.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	if score < 0 {
		score = 0
	}
	return ClampPercent((200*score + total) / (2 * total))
}

// ClampPercent bounds p to [0,100].
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
