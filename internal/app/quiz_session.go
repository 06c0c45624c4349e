package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"study-session/internal/domain"
	"study-session/internal/logger"
	"study-session/internal/metrics"
	"go.uber.org/zap"
)

// QuizFallbackReason is shown when the answering service gives no reason for a failed quiz request.
const QuizFallbackReason = "Failed to generate quiz. Make sure you have uploaded documents."

// QuestionCounts lists the quiz sizes a user may request.
var QuestionCounts = []int{5, 10, 15}

// QuizGenerator requests new question sets from the answering service.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, count int) ([]domain.QuizQuestion, error)
}

// ResultRecorder receives the result of every finished quiz.
type ResultRecorder interface {
	Append(ctx context.Context, result domain.QuizResult) error
}

// ValidQuestionCount reports whether count is one of QuestionCounts.
func ValidQuestionCount(count int) bool {
	for _, c := range QuestionCounts {
		if c == count {
			return true
		}
	}
	return false
}

// QuizSession drives one quiz attempt through its phases. Transitions are guarded by
// phase; an event arriving in the wrong phase returns domain.ErrTransitionIgnored and
// leaves the state untouched.
type QuizSession struct {
	generator QuizGenerator
	results   ResultRecorder
	now       func() time.Time
	log       *zap.Logger

	mu           sync.Mutex
	phase        domain.QuizPhase
	questions    []domain.QuizQuestion
	currentIndex int
	score        int
	selected     string
	lastErr      string
	result       *domain.QuizResult
	// generation changes whenever the session is discarded so late responses can be dropped.
	generation uint64
}

func NewQuizSession(generator QuizGenerator, results ResultRecorder, log *zap.Logger) *QuizSession {
	return NewQuizSessionWithClock(generator, results, log, time.Now)
}

// NewQuizSessionWithClock allows deterministic result timestamps in tests.
func NewQuizSessionWithClock(generator QuizGenerator, results ResultRecorder, log *zap.Logger, now func() time.Time) *QuizSession {
	return &QuizSession{
		generator: generator,
		results:   results,
		now:       now,
		log:       logger.OrNop(log),
		phase:     domain.QuizIdle,
	}
}

// RequestQuiz loads a new question set of the given size. It blocks until the answering
// service responds; meanwhile the session stays in the loading phase and rejects new requests.
func (s *QuizSession) RequestQuiz(ctx context.Context, count int) error {
	fetch, err := s.BeginQuiz(count)
	if err != nil {
		return err
	}
	return fetch(ctx)
}

// BeginQuiz validates count and moves the session into the loading phase without
// blocking. The returned function performs the request and completes the transition.
func (s *QuizSession) BeginQuiz(count int) (func(ctx context.Context) error, error) {
	if !ValidQuestionCount(count) {
		return nil, domain.ErrInvalidQuestionCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.QuizIdle && s.phase != domain.QuizFinished {
		return nil, domain.ErrTransitionIgnored
	}
	s.discardLocked()
	s.phase = domain.QuizLoading
	gen := s.generation

	return func(ctx context.Context) error {
		return s.completeQuiz(ctx, gen, count)
	}, nil
}

func (s *QuizSession) completeQuiz(ctx context.Context, gen uint64, count int) error {
	questions, err := s.generator.GenerateQuiz(ctx, count)
	if err == nil {
		err = validateQuestions(questions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.log.Debug("dropping quiz response for discarded session", zap.Error(err))
		return domain.ErrSessionDiscarded
	}
	if err != nil {
		s.phase = domain.QuizIdle
		s.lastErr = failureReason(err)
		s.log.Warn("quiz generation failed", zap.Int("count", count), zap.Error(err))
		return err
	}

	s.questions = append([]domain.QuizQuestion(nil), questions...)
	s.currentIndex = 0
	s.score = 0
	s.selected = ""
	s.phase = domain.QuizActive
	s.log.Info("quiz started", zap.Int("requested", count), zap.Int("questions", len(questions)))
	return nil
}

// SubmitAnswer locks in the selected option for the current question and reports whether it was correct.
func (s *QuizSession) SubmitAnswer(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.QuizActive {
		return false, domain.ErrTransitionIgnored
	}
	question := s.questions[s.currentIndex]
	if !question.HasOption(key) {
		return false, domain.ErrOptionNotFound
	}

	s.selected = key
	correct := key == question.CorrectKey
	if correct {
		s.score++
	}
	s.phase = domain.QuizAnswered
	return correct, nil
}

// Advance moves past an answered question. After the last question the session finishes
// and the returned result is recorded exactly once. A recording failure is returned, but
// the session still ends finished.
func (s *QuizSession) Advance(ctx context.Context) (*domain.QuizResult, error) {
	s.mu.Lock()
	if s.phase != domain.QuizAnswered {
		s.mu.Unlock()
		return nil, domain.ErrTransitionIgnored
	}
	s.selected = ""
	if s.currentIndex < len(s.questions)-1 {
		s.currentIndex++
		s.phase = domain.QuizActive
		s.mu.Unlock()
		return nil, nil
	}

	result := domain.NewQuizResult(s.now(), len(s.questions), s.score)
	s.result = &result
	s.phase = domain.QuizFinished
	s.mu.Unlock()

	s.log.Info("quiz finished",
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions),
		zap.Int("percentage", result.Percentage))

	if s.results == nil {
		return &result, nil
	}
	if err := s.results.Append(ctx, result); err != nil {
		return &result, err
	}
	metrics.QuizzesCompleted.Inc()
	return &result, nil
}

// Reset discards the session from any phase.
func (s *QuizSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked()
	s.phase = domain.QuizIdle
}

// Phase returns the current phase.
func (s *QuizSession) Phase() domain.QuizPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LastError returns the reason the most recent quiz request failed, if any.
func (s *QuizSession) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns a copy of the session state for presentation.
func (s *QuizSession) Snapshot() domain.QuizSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.QuizSnapshot{
		Phase:          s.phase,
		CurrentIndex:   s.currentIndex,
		TotalQuestions: len(s.questions),
		Score:          s.score,
		SelectedOption: s.selected,
		Error:          s.lastErr,
		Percentage:     domain.Percentage(s.score, len(s.questions)),
	}

	switch s.phase {
	case domain.QuizActive, domain.QuizAnswered:
		q := s.questions[s.currentIndex]
		view := &domain.QuestionView{
			Prompt:  q.Prompt,
			Options: make(map[string]string, len(q.Options)),
		}
		for k, v := range q.Options {
			view.Options[k] = v
		}
		if s.phase == domain.QuizAnswered {
			view.CorrectKey = q.CorrectKey
			view.Explanation = q.Explanation
			snap.Correct = s.selected == q.CorrectKey
		}
		snap.Question = view
	case domain.QuizFinished:
		if s.result != nil {
			result := *s.result
			snap.Result = &result
			snap.Percentage = result.DisplayPercentage()
		}
	}
	return snap
}

func (s *QuizSession) discardLocked() {
	s.generation++
	s.questions = nil
	s.currentIndex = 0
	s.score = 0
	s.selected = ""
	s.lastErr = ""
	s.result = nil
}

func validateQuestions(questions []domain.QuizQuestion) error {
	if len(questions) == 0 {
		return domain.ErrEmptyQuestionSet
	}
	for _, q := range questions {
		if len(q.Options) == 0 || !q.HasOption(q.CorrectKey) {
			return domain.ErrMalformedQuestion
		}
	}
	return nil
}

func failureReason(err error) string {
	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &svcErr) && svcErr.Detail != "":
		return svcErr.Detail
	case errors.Is(err, domain.ErrEmptyQuestionSet), errors.Is(err, domain.ErrMalformedQuestion):
		return err.Error()
	default:
		return QuizFallbackReason
	}
}
