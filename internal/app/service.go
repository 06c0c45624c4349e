package app

import (
	"context"

	"study-session/internal/analytics"
	"study-session/internal/domain"
	"study-session/internal/logger"
	"go.uber.org/zap"
)

// AnsweringService is the remote collaborator that generates quizzes and answers questions.
type AnsweringService interface {
	QuizGenerator
	Answerer
}

// StudyService wires the study flows together: it opens per-tab quiz and chat sessions
// against one answering service and serves analytics from the shared ledger.
type StudyService struct {
	remote AnsweringService
	ledger *Ledger
	log    *zap.Logger
}

func NewStudyService(remote AnsweringService, ledger *Ledger, log *zap.Logger) *StudyService {
	return &StudyService{remote: remote, ledger: ledger, log: logger.OrNop(log)}
}

// NewQuizSession opens a quiz session whose results go to the shared ledger.
func (s *StudyService) NewQuizSession() *QuizSession {
	return NewQuizSession(s.remote, s.ledger, s.log.Named("quiz"))
}

// NewChatSession opens a chat session with a fresh greeting.
func (s *StudyService) NewChatSession() *ChatSession {
	return NewChatSession(s.remote, s.log.Named("chat"))
}

// Analytics reads the ledger and summarizes it.
func (s *StudyService) Analytics(ctx context.Context) analytics.Report {
	return analytics.Summarize(s.ledger.LoadAll(ctx))
}

// History returns the raw ledger entries, oldest first.
func (s *StudyService) History(ctx context.Context) []domain.QuizResult {
	return s.ledger.LoadAll(ctx)
}

// ResetProgress clears the ledger.
func (s *StudyService) ResetProgress(ctx context.Context) error {
	return s.ledger.Clear(ctx)
}
