package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"study-session/internal/analytics"
	"study-session/internal/app"
	"study-session/internal/domain"
	"study-session/internal/logger"
	"study-session/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StudyService is what the websocket handler needs from the application layer.
type StudyService interface {
	NewQuizSession() *app.QuizSession
	NewChatSession() *app.ChatSession
	Analytics(ctx context.Context) analytics.Report
	ResetProgress(ctx context.Context) error
}

type WSHandler struct {
	service  StudyService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(service StudyService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     logger.OrNop(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type generatePayload struct {
	Count int `json:"count"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type chatPayload struct {
	Question string `json:"question"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type sessionPayload struct {
	SessionID string              `json:"sessionId"`
	Quiz      domain.QuizSnapshot `json:"quiz"`
	Chat      domain.ChatSnapshot `json:"chat"`
	Counts    []int               `json:"questionCounts"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// connection is the per-socket state. Each socket is one browser tab: it owns its quiz
// and chat sessions and shares only the ledger with other sockets.
type connection struct {
	id     string
	quiz   *app.QuizSession
	chat   *app.ChatSession
	log    *zap.Logger
	send   chan outboundMessage[any]
	closed chan struct{}
	writer chan struct{}
	wg     sync.WaitGroup
}

func (c *connection) emit(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.closed:
	case <-c.writer:
	}
}

func (c *connection) fail(err error) {
	code := "error"
	switch {
	case errors.Is(err, domain.ErrTransitionIgnored):
		code = "ignored"
	case errors.Is(err, domain.ErrSessionDiscarded):
		code = "discarded"
	case errors.Is(err, domain.ErrInvalidQuestionCount), errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrEmptyQuestion):
		code = "invalid"
	}
	c.emit("error", errorPayload{Message: err.Error(), Code: code})
}

// async runs a blocking call off the read loop so the socket keeps accepting events
// (a reset or clear while a request is in flight).
func (c *connection) async(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// ServeWS upgrades HTTP requests to websockets and opens a study session per socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &connection{
		id:     uuid.NewString(),
		quiz:   h.service.NewQuizSession(),
		chat:   h.service.NewChatSession(),
		send:   make(chan outboundMessage[any], 16),
		closed: make(chan struct{}),
		writer: make(chan struct{}),
	}
	c.log = h.log.With(zap.String("session", c.id))

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()
	c.log.Info("session opened", zap.String("remote", r.RemoteAddr))

	go func() {
		defer close(c.writer)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				c.log.Warn("ws write error", zap.Error(err))
				// Unblock the read loop.
				conn.Close()
				return
			}
		}
	}()

	c.emit("session", sessionPayload{
		SessionID: c.id,
		Quiz:      c.quiz.Snapshot(),
		Chat:      c.chat.Transcript(),
		Counts:    app.QuestionCounts,
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, c, inbound)
	}

	cancel()
	close(c.closed)
	c.wg.Wait()
	close(c.send)
	<-c.writer
	c.log.Info("session closed")
}

func (h *WSHandler) dispatch(ctx context.Context, c *connection, inbound inboundMessage) {
	switch inbound.Type {
	case "quiz.generate":
		var payload generatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.emit("error", errorPayload{Message: "invalid generate payload", Code: "invalid"})
			return
		}
		fetch, err := c.quiz.BeginQuiz(payload.Count)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("quiz.loading", c.quiz.Snapshot())
		c.async(func() {
			if err := fetch(ctx); errors.Is(err, domain.ErrSessionDiscarded) {
				c.fail(err)
				return
			}
			// Failures are carried in the snapshot's error field.
			c.emit("quiz", c.quiz.Snapshot())
		})

	case "quiz.answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.emit("error", errorPayload{Message: "invalid answer payload", Code: "invalid"})
			return
		}
		if _, err := c.quiz.SubmitAnswer(payload.Option); err != nil {
			c.fail(err)
			return
		}
		c.emit("quiz", c.quiz.Snapshot())

	case "quiz.next":
		result, err := c.quiz.Advance(ctx)
		if err != nil && result == nil {
			c.fail(err)
			return
		}
		if err != nil {
			c.log.Error("quiz result not recorded", zap.Error(err))
		}
		c.emit("quiz", c.quiz.Snapshot())

	case "quiz.reset":
		c.quiz.Reset()
		c.emit("quiz", c.quiz.Snapshot())

	case "quiz.state":
		c.emit("quiz", c.quiz.Snapshot())

	case "chat.send":
		var payload chatPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.emit("error", errorPayload{Message: "invalid chat payload", Code: "invalid"})
			return
		}
		await, err := c.chat.BeginSend(payload.Question)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("chat.pending", c.chat.Transcript())
		c.async(func() {
			if _, err := await(ctx); err != nil {
				c.fail(err)
				return
			}
			c.emit("chat", c.chat.Transcript())
		})

	case "chat.clear":
		c.chat.Clear()
		c.emit("chat", c.chat.Transcript())

	case "chat.state":
		c.emit("chat", c.chat.Transcript())

	case "analytics.get":
		c.emit("analytics", h.service.Analytics(ctx))

	case "analytics.reset":
		if err := h.service.ResetProgress(ctx); err != nil {
			c.fail(err)
			return
		}
		c.emit("analytics", h.service.Analytics(ctx))

	default:
		c.emit("error", errorPayload{Message: "unsupported message type", Code: "unsupported"})
	}
}
