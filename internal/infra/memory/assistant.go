package memory

import (
	"context"
	"fmt"
	"sync"

	"study-session/internal/domain"
)

// Assistant is an in-process stand-in for the answering service (useful for tests/demos).
// Quizzes are cut from a fixed question bank; answers come from a prompt lookup table.
type Assistant struct {
	mu        sync.Mutex
	bank      []domain.QuizQuestion
	answers   map[string]domain.ChatAnswer
	quizErr   error
	chatErr   error
	quizCalls int
	chatCalls int
}

func NewAssistant(bank []domain.QuizQuestion, answers map[string]domain.ChatAnswer) *Assistant {
	if answers == nil {
		answers = make(map[string]domain.ChatAnswer)
	}
	return &Assistant{bank: bank, answers: answers}
}

// FailQuizzes makes subsequent GenerateQuiz calls return err (nil restores normal behaviour).
func (a *Assistant) FailQuizzes(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quizErr = err
}

// FailChat makes subsequent Ask calls return err (nil restores normal behaviour).
func (a *Assistant) FailChat(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chatErr = err
}

// GenerateQuiz returns up to count questions, cycling through the bank.
func (a *Assistant) GenerateQuiz(_ context.Context, count int) ([]domain.QuizQuestion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quizCalls++
	if a.quizErr != nil {
		return nil, a.quizErr
	}
	if len(a.bank) == 0 {
		return []domain.QuizQuestion{}, nil
	}
	questions := make([]domain.QuizQuestion, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, a.bank[(a.quizCalls-1+i)%len(a.bank)])
	}
	return questions, nil
}

// Ask answers from the lookup table, echoing unknown questions.
func (a *Assistant) Ask(_ context.Context, question string) (domain.ChatAnswer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chatCalls++
	if a.chatErr != nil {
		return domain.ChatAnswer{}, a.chatErr
	}
	if answer, ok := a.answers[question]; ok {
		return answer, nil
	}
	return domain.ChatAnswer{Answer: fmt.Sprintf("I don't know the answer to %q yet.", question)}, nil
}

// Calls reports how many quiz and chat requests were received.
func (a *Assistant) Calls() (quiz, chat int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quizCalls, a.chatCalls
}
