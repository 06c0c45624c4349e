package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"study-session/internal/domain"
	"study-session/internal/logger"
	"study-session/internal/metrics"
	"go.uber.org/zap"
)

const (
	GreetingText     = "Hello! I'm your AI Study Assistant. Upload your notes and ask me anything!"
	ClearedText      = "Chat cleared. How can I help you now?"
	ChatFallbackText = "Sorry, I encountered an error. Please make sure the backend is running and you have uploaded documents."
)

// Answerer asks the answering service a free-form question.
type Answerer interface {
	Ask(ctx context.Context, question string) (domain.ChatAnswer, error)
}

// ChatSession holds one open conversation. The transcript lives only as long as the session.
type ChatSession struct {
	answerer Answerer
	now      func() time.Time
	log      *zap.Logger

	mu         sync.Mutex
	phase      domain.ChatPhase
	messages   []domain.ChatMessage
	lastID     uint64
	updatedAt  time.Time
	generation uint64
}

func NewChatSession(answerer Answerer, log *zap.Logger) *ChatSession {
	return NewChatSessionWithClock(answerer, log, time.Now)
}

// NewChatSessionWithClock allows deterministic timestamps in tests.
func NewChatSessionWithClock(answerer Answerer, log *zap.Logger, now func() time.Time) *ChatSession {
	s := &ChatSession{
		answerer: answerer,
		now:      now,
		log:      logger.OrNop(log),
		phase:    domain.ChatIdle,
	}
	greeting := s.newMessageLocked(GreetingText, domain.SenderAssistant, nil, false)
	s.messages = []domain.ChatMessage{greeting}
	s.updatedAt = greeting.CreatedAt
	return s
}

// Send appends the user's question, waits for the answering service and appends its reply.
// A failed request is recorded as an error reply, not returned; errors are only returned
// when the question is blank, a request is already in flight, or the transcript was
// cleared while waiting.
func (s *ChatSession) Send(ctx context.Context, question string) (domain.ChatMessage, error) {
	await, err := s.BeginSend(question)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return await(ctx)
}

// BeginSend appends the user's question and enters the awaiting phase without blocking.
// The returned function asks the answering service and appends the reply.
func (s *ChatSession) BeginSend(question string) (func(ctx context.Context) (domain.ChatMessage, error), error) {
	if domain.IsBlank(question) {
		return nil, domain.ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.ChatAwaiting {
		return nil, domain.ErrTransitionIgnored
	}
	s.appendLocked(s.newMessageLocked(question, domain.SenderUser, nil, false))
	s.phase = domain.ChatAwaiting
	gen := s.generation

	return func(ctx context.Context) (domain.ChatMessage, error) {
		return s.completeSend(ctx, gen, question)
	}, nil
}

func (s *ChatSession) completeSend(ctx context.Context, gen uint64, question string) (domain.ChatMessage, error) {
	answer, err := s.answerer.Ask(ctx, question)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.log.Debug("dropping chat reply for cleared transcript", zap.Error(err))
		return domain.ChatMessage{}, domain.ErrSessionDiscarded
	}

	var reply domain.ChatMessage
	if err != nil {
		s.log.Warn("chat request failed", zap.Error(err))
		reply = s.newMessageLocked(ChatFallbackText, domain.SenderAssistant, nil, true)
	} else {
		reply = s.newMessageLocked(answer.Answer, domain.SenderAssistant, append([]string(nil), answer.Sources...), false)
	}
	s.appendLocked(reply)
	s.phase = domain.ChatIdle
	return reply, nil
}

// Clear replaces the transcript with a single greeting. Prior history cannot be recovered.
func (s *ChatSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.phase = domain.ChatIdle
	s.messages = nil
	s.appendLocked(s.newMessageLocked(ClearedText, domain.SenderAssistant, nil, false))
}

// Phase returns the current phase.
func (s *ChatSession) Phase() domain.ChatPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Transcript returns a copy of the messages in order.
func (s *ChatSession) Transcript() domain.ChatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ChatSnapshot{
		Phase:     s.phase,
		Messages:  append([]domain.ChatMessage(nil), s.messages...),
		UpdatedAt: s.updatedAt,
	}
}

func (s *ChatSession) newMessageLocked(text string, sender domain.Sender, sources []string, isError bool) domain.ChatMessage {
	s.lastID++
	return domain.ChatMessage{
		ID:        s.lastID,
		Text:      text,
		Sender:    sender,
		Sources:   sources,
		IsError:   isError,
		CreatedAt: s.now(),
	}
}

func (s *ChatSession) appendLocked(msg domain.ChatMessage) {
	s.messages = append(s.messages, msg)
	s.updatedAt = msg.CreatedAt
	metrics.ChatMessages.WithLabelValues(string(msg.Sender), strconv.FormatBool(msg.IsError)).Inc()
}
