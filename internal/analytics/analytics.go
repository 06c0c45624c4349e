// Package analytics derives study statistics from the quiz ledger. Everything here is a
// pure function of the ledger contents and is recomputed on every view.
package analytics

import (
	"math"
	"time"

	"study-session/internal/domain"
)

// RecentLimit is the number of entries shown in the recent history.
const RecentLimit = 5

const (
	adviceNeedsWork = "Review your study materials more thoroughly before taking quizzes"
	adviceGood      = "You're doing well! Focus on understanding concepts deeply"
	adviceExcellent = "Excellent work! Consider challenging yourself with more advanced topics"
	tipChat         = "Use the chat feature to clarify difficult concepts"
	tipRegular      = "Take regular quizzes to track your progress"
)

// Band groups a percentage for presentation.
type Band string

const (
	BandNeedsWork Band = "needs-work"
	BandGood      Band = "good"
	BandExcellent Band = "excellent"
)

// BandFor maps a percentage into its band: below 60, 60 to 79, 80 and above.
func BandFor(pct int) Band {
	switch {
	case pct >= 80:
		return BandExcellent
	case pct >= 60:
		return BandGood
	default:
		return BandNeedsWork
	}
}

// HistoryEntry is a ledger entry prepared for display.
type HistoryEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	Band           Band      `json:"band"`
}

// Report is the analytics view over the ledger.
type Report struct {
	QuizzesCompleted int            `json:"quizzesCompleted"`
	AvgAccuracy      int            `json:"avgAccuracy"`
	TotalQuestions   int            `json:"totalQuestions"`
	BestScore        int            `json:"bestScore"`
	Band             Band           `json:"band"`
	RecentHistory    []HistoryEntry `json:"recentHistory"`
	Recommendations  []string       `json:"recommendations"`
}

// Summarize computes the report for results given oldest first.
func Summarize(results []domain.QuizResult) Report {
	report := Report{
		QuizzesCompleted: len(results),
		RecentHistory:    Recent(results, RecentLimit),
	}
	if len(results) > 0 {
		// The sum is accumulated in float64 so out-of-range stored percentages cannot overflow it.
		var sum float64
		best := results[0].DisplayPercentage()
		for _, r := range results {
			sum += float64(r.Percentage)
			report.TotalQuestions += r.TotalQuestions
			if pct := r.DisplayPercentage(); pct > best {
				best = pct
			}
		}
		report.AvgAccuracy = meanPercent(sum, len(results))
		report.BestScore = best
	}
	report.Band = BandFor(report.AvgAccuracy)
	report.Recommendations = Recommendations(report.AvgAccuracy)
	return report
}

// Recent returns the last n entries, most recent first.
func Recent(results []domain.QuizResult, n int) []HistoryEntry {
	if n > len(results) {
		n = len(results)
	}
	if n < 0 {
		n = 0
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(results) - 1; i >= len(results)-n; i-- {
		r := results[i]
		pct := r.DisplayPercentage()
		out = append(out, HistoryEntry{
			Timestamp:      r.Timestamp,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			Percentage:     pct,
			Band:           BandFor(pct),
		})
	}
	return out
}

// Recommendations returns the advice for avgAccuracy followed by the two standing tips.
func Recommendations(avgAccuracy int) []string {
	var advice string
	switch BandFor(avgAccuracy) {
	case BandExcellent:
		advice = adviceExcellent
	case BandGood:
		advice = adviceGood
	default:
		advice = adviceNeedsWork
	}
	return []string{advice, tipChat, tipRegular}
}

// meanPercent rounds sum/n half up and bounds the result to [0,100].
func meanPercent(sum float64, n int) int {
	mean := math.Floor(sum/float64(n) + 0.5)
	switch {
	case mean >= 100:
		return 100
	case mean <= 0:
		return 0
	default:
		return int(mean)
	}
}
