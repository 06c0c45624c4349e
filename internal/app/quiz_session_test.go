package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"study-session/internal/app"
	"study-session/internal/domain"
	"study-session/internal/infra/memory"
)

var fixedNow = time.Date(2024, 11, 22, 10, 30, 0, 0, time.UTC)

func TestQuizAllCorrectRecordsPerfectScore(t *testing.T) {
	ctx := context.Background()
	ledger := app.NewLedger(memory.NewKVStore())
	quiz := app.NewQuizSessionWithClock(memory.NewAssistant(singleQuestionBank(), nil), ledger, nil, func() time.Time { return fixedNow })

	result := playQuiz(t, quiz, 5, "B")

	want := domain.QuizResult{Timestamp: fixedNow, TotalQuestions: 5, Score: 5, Percentage: 100}
	if *result != want {
		t.Fatalf("expected %+v, got %+v", want, *result)
	}
	results := ledger.LoadAll(ctx)
	if len(results) != 1 || results[0] != want {
		t.Fatalf("expected ledger to hold %+v, got %+v", want, results)
	}
	if quiz.Phase() != domain.QuizFinished {
		t.Fatalf("expected finished, got %s", quiz.Phase())
	}
}

func TestQuizAllIncorrectRecordsZero(t *testing.T) {
	ctx := context.Background()
	ledger := app.NewLedger(memory.NewKVStore())
	quiz := app.NewQuizSession(memory.NewAssistant(singleQuestionBank(), nil), ledger, nil)

	playQuiz(t, quiz, 5, "A")

	results := ledger.LoadAll(ctx)
	if len(results) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(results))
	}
	if got := results[0]; got.TotalQuestions != 5 || got.Score != 0 || got.Percentage != 0 {
		t.Fatalf("expected {5 0 0}, got %+v", got)
	}
}

func TestSubmitAnswerScoresOncePerQuestion(t *testing.T) {
	ctx := context.Background()
	quiz := app.NewQuizSession(memory.NewAssistant(singleQuestionBank(), nil), nil, nil)
	if err := quiz.RequestQuiz(ctx, 5); err != nil {
		t.Fatalf("request quiz: %v", err)
	}

	correct, err := quiz.SubmitAnswer("B")
	if err != nil || !correct {
		t.Fatalf("expected correct answer, got correct=%v err=%v", correct, err)
	}
	for _, key := range []string{"A", "B", "C"} {
		if _, err := quiz.SubmitAnswer(key); !errors.Is(err, domain.ErrTransitionIgnored) {
			t.Fatalf("expected repeated submit to be ignored, got %v", err)
		}
	}

	snap := quiz.Snapshot()
	if snap.Score != 1 || snap.SelectedOption != "B" {
		t.Fatalf("expected score 1 with B selected, got score=%d selected=%q", snap.Score, snap.SelectedOption)
	}
}

func TestSubmitAnswerRejectsUnknownOption(t *testing.T) {
	quiz := app.NewQuizSession(memory.NewAssistant(singleQuestionBank(), nil), nil, nil)
	if err := quiz.RequestQuiz(context.Background(), 5); err != nil {
		t.Fatalf("request quiz: %v", err)
	}
	if _, err := quiz.SubmitAnswer("Z"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option error, got %v", err)
	}
	if quiz.Phase() != domain.QuizActive {
		t.Fatalf("expected still active, got %s", quiz.Phase())
	}
}

func TestRequestQuizValidatesCountBeforeCalling(t *testing.T) {
	assistant := memory.NewAssistant(singleQuestionBank(), nil)
	quiz := app.NewQuizSession(assistant, nil, nil)

	if err := quiz.RequestQuiz(context.Background(), 7); !errors.Is(err, domain.ErrInvalidQuestionCount) {
		t.Fatalf("expected count error, got %v", err)
	}
	if calls, _ := assistant.Calls(); calls != 0 {
		t.Fatalf("expected no remote call, got %d", calls)
	}
	if quiz.Phase() != domain.QuizIdle {
		t.Fatalf("expected idle, got %s", quiz.Phase())
	}
}

func TestRequestQuizFailureReturnsToIdle(t *testing.T) {
	assistant := memory.NewAssistant(singleQuestionBank(), nil)
	assistant.FailQuizzes(&domain.ServiceError{Op: "generate quiz", Status: 400, Detail: "No documents uploaded yet. Please upload a PDF first."})
	quiz := app.NewQuizSession(assistant, nil, nil)

	if err := quiz.RequestQuiz(context.Background(), 5); err == nil {
		t.Fatalf("expected failure")
	}
	if quiz.Phase() != domain.QuizIdle {
		t.Fatalf("expected idle, got %s", quiz.Phase())
	}
	if got := quiz.LastError(); got != "No documents uploaded yet. Please upload a PDF first." {
		t.Fatalf("unexpected reason %q", got)
	}

	assistant.FailQuizzes(errors.New("dial tcp: connection refused"))
	_ = quiz.RequestQuiz(context.Background(), 5)
	if got := quiz.LastError(); got != app.QuizFallbackReason {
		t.Fatalf("expected fallback reason, got %q", got)
	}

	assistant.FailQuizzes(nil)
	if err := quiz.RequestQuiz(context.Background(), 5); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if quiz.LastError() != "" {
		t.Fatalf("expected error cleared on new request")
	}
}

func TestRequestQuizRejectsEmptyQuestionSet(t *testing.T) {
	ledger := app.NewLedger(memory.NewKVStore())
	quiz := app.NewQuizSession(memory.NewAssistant(nil, nil), ledger, nil)

	if err := quiz.RequestQuiz(context.Background(), 5); !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty set error, got %v", err)
	}
	if quiz.Phase() != domain.QuizIdle {
		t.Fatalf("expected idle, got %s", quiz.Phase())
	}
	if _, err := quiz.Advance(context.Background()); !errors.Is(err, domain.ErrTransitionIgnored) {
		t.Fatalf("expected advance ignored, got %v", err)
	}
	if n := len(ledger.LoadAll(context.Background())); n != 0 {
		t.Fatalf("expected empty ledger, got %d", n)
	}
}

func TestRequestQuizRejectsMalformedQuestions(t *testing.T) {
	bank := []domain.QuizQuestion{{Prompt: "?", Options: map[string]string{"A": "x"}, CorrectKey: "E"}}
	quiz := app.NewQuizSession(memory.NewAssistant(bank, nil), nil, nil)

	if err := quiz.RequestQuiz(context.Background(), 5); !errors.Is(err, domain.ErrMalformedQuestion) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestRequestQuizIgnoredWhileLoading(t *testing.T) {
	gen := newGatedGenerator(singleQuestionBank())
	quiz := app.NewQuizSession(gen, nil, nil)

	done := make(chan error, 1)
	go func() { done <- quiz.RequestQuiz(context.Background(), 5) }()
	<-gen.started

	if quiz.Phase() != domain.QuizLoading {
		t.Fatalf("expected loading, got %s", quiz.Phase())
	}
	if err := quiz.RequestQuiz(context.Background(), 10); !errors.Is(err, domain.ErrTransitionIgnored) {
		t.Fatalf("expected second request ignored, got %v", err)
	}
	if _, err := quiz.SubmitAnswer("B"); !errors.Is(err, domain.ErrTransitionIgnored) {
		t.Fatalf("expected answer ignored while loading, got %v", err)
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatalf("request quiz: %v", err)
	}
	if quiz.Phase() != domain.QuizActive {
		t.Fatalf("expected active, got %s", quiz.Phase())
	}
	if gen.calls != 1 {
		t.Fatalf("expected a single remote call, got %d", gen.calls)
	}
}

func TestResetWhileLoadingDropsLateResponse(t *testing.T) {
	gen := newGatedGenerator(singleQuestionBank())
	quiz := app.NewQuizSession(gen, nil, nil)

	done := make(chan error, 1)
	go func() { done <- quiz.RequestQuiz(context.Background(), 5) }()
	<-gen.started

	quiz.Reset()
	close(gen.release)

	if err := <-done; !errors.Is(err, domain.ErrSessionDiscarded) {
		t.Fatalf("expected discarded response, got %v", err)
	}
	if quiz.Phase() != domain.QuizIdle {
		t.Fatalf("expected idle after reset, got %s", quiz.Phase())
	}
}

func TestSnapshotRevealsAnswerOnlyAfterSubmit(t *testing.T) {
	quiz := app.NewQuizSession(memory.NewAssistant(singleQuestionBank(), nil), nil, nil)
	if err := quiz.RequestQuiz(context.Background(), 5); err != nil {
		t.Fatalf("request quiz: %v", err)
	}

	snap := quiz.Snapshot()
	if snap.Question == nil || snap.Question.CorrectKey != "" || snap.Question.Explanation != "" {
		t.Fatalf("expected hidden answer, got %+v", snap.Question)
	}
	if snap.TotalQuestions != 5 || snap.CurrentIndex != 0 {
		t.Fatalf("unexpected progress %+v", snap)
	}

	_, _ = quiz.SubmitAnswer("A")
	snap = quiz.Snapshot()
	if snap.Question.CorrectKey != "B" || snap.Question.Explanation == "" || snap.Correct {
		t.Fatalf("expected revealed answer for wrong pick, got %+v correct=%v", snap.Question, snap.Correct)
	}

	if _, err := quiz.Advance(context.Background()); err != nil {
		t.Fatalf("advance: %v", err)
	}
	snap = quiz.Snapshot()
	if snap.Phase != domain.QuizActive || snap.CurrentIndex != 1 || snap.SelectedOption != "" {
		t.Fatalf("expected next question with cleared selection, got %+v", snap)
	}
}

func TestAdvanceRecordsResultExactlyOnce(t *testing.T) {
	ctx := context.Background()
	ledger := app.NewLedger(memory.NewKVStore())
	quiz := app.NewQuizSession(memory.NewAssistant(singleQuestionBank(), nil), ledger, nil)

	playQuiz(t, quiz, 5, "B")
	if _, err := quiz.Advance(ctx); !errors.Is(err, domain.ErrTransitionIgnored) {
		t.Fatalf("expected advance after finish to be ignored, got %v", err)
	}
	if _, err := quiz.SubmitAnswer("B"); !errors.Is(err, domain.ErrTransitionIgnored) {
		t.Fatalf("expected submit after finish to be ignored, got %v", err)
	}
	if n := len(ledger.LoadAll(ctx)); n != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", n)
	}

	// Finished sessions may start another quiz.
	playQuiz(t, quiz, 10, "A")
	if n := len(ledger.LoadAll(ctx)); n != 2 {
		t.Fatalf("expected two ledger entries, got %d", n)
	}
}

func TestAdvanceFinishesEvenWhenLedgerWriteFails(t *testing.T) {
	store := &flakyStore{KVStore: memory.NewKVStore(), setErr: errors.New("quota exceeded")}
	quiz := app.NewQuizSession(memory.NewAssistant(singleQuestionBank(), nil), app.NewLedger(store), nil)
	ctx := context.Background()

	if err := quiz.RequestQuiz(ctx, 5); err != nil {
		t.Fatalf("request quiz: %v", err)
	}
	var (
		result *domain.QuizResult
		err    error
	)
	for i := 0; i < 5; i++ {
		_, _ = quiz.SubmitAnswer("B")
		result, err = quiz.Advance(ctx)
	}
	if err == nil {
		t.Fatalf("expected ledger error")
	}
	if result == nil || result.Score != 5 {
		t.Fatalf("expected result despite write failure, got %+v", result)
	}
	if quiz.Phase() != domain.QuizFinished {
		t.Fatalf("expected finished, got %s", quiz.Phase())
	}
}

func TestScoreNeverExceedsAnsweredQuestions(t *testing.T) {
	quiz := app.NewQuizSession(memory.NewAssistant(singleQuestionBank(), nil), nil, nil)
	if err := quiz.RequestQuiz(context.Background(), 15); err != nil {
		t.Fatalf("request quiz: %v", err)
	}
	for i := 0; i < 15; i++ {
		_, _ = quiz.SubmitAnswer("B")
		_, _ = quiz.SubmitAnswer("B")
		snap := quiz.Snapshot()
		if snap.Score > snap.CurrentIndex+1 {
			t.Fatalf("score %d exceeds answered questions at index %d", snap.Score, snap.CurrentIndex)
		}
		_, _ = quiz.Advance(context.Background())
	}
	snap := quiz.Snapshot()
	if snap.Result == nil || snap.Result.Score != 15 || snap.Percentage != 100 {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}
}

func playQuiz(t *testing.T, quiz *app.QuizSession, count int, key string) *domain.QuizResult {
	t.Helper()
	ctx := context.Background()
	if err := quiz.RequestQuiz(ctx, count); err != nil {
		t.Fatalf("request quiz: %v", err)
	}
	var result *domain.QuizResult
	for i := 0; i < count; i++ {
		if _, err := quiz.SubmitAnswer(key); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		r, err := quiz.Advance(ctx)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if i < count-1 && r != nil {
			t.Fatalf("unexpected result before last question")
		}
		result = r
	}
	if result == nil {
		t.Fatalf("expected a result after the last question")
	}
	return result
}

func singleQuestionBank() []domain.QuizQuestion {
	return []domain.QuizQuestion{
		{
			Prompt:      "What is 2 + 2?",
			Options:     map[string]string{"A": "3", "B": "4", "C": "5", "D": "22"},
			CorrectKey:  "B",
			Explanation: "Two plus two is four.",
		},
	}
}

// gatedGenerator blocks GenerateQuiz until release is closed.
type gatedGenerator struct {
	bank    []domain.QuizQuestion
	started chan struct{}
	release chan struct{}
	calls   int
}

func newGatedGenerator(bank []domain.QuizQuestion) *gatedGenerator {
	return &gatedGenerator{bank: bank, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedGenerator) GenerateQuiz(_ context.Context, count int) ([]domain.QuizQuestion, error) {
	g.calls++
	close(g.started)
	<-g.release
	questions := make([]domain.QuizQuestion, count)
	for i := range questions {
		questions[i] = g.bank[0]
	}
	return questions, nil
}

func TestBeginQuizClaimsSessionSynchronously(t *testing.T) {
	assistant := memory.NewAssistant(singleQuestionBank(), nil)
	quiz := app.NewQuizSession(assistant, nil, nil)

	fetch, err := quiz.BeginQuiz(5)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if quiz.Phase() != domain.QuizLoading {
		t.Fatalf("expected loading, got %s", quiz.Phase())
	}
	if _, err := quiz.BeginQuiz(10); !errors.Is(err, domain.ErrTransitionIgnored) {
		t.Fatalf("expected second request ignored, got %v", err)
	}
	if calls, _ := assistant.Calls(); calls != 0 {
		t.Fatalf("expected no remote call before fetch, got %d", calls)
	}

	if err := fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap := quiz.Snapshot(); snap.Phase != domain.QuizActive || snap.TotalQuestions != 5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
