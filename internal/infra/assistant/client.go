package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"study-session/internal/domain"
	"study-session/internal/logger"
	"study-session/internal/metrics"
	"go.uber.org/zap"
)

// Client talks to the remote answering service over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a client for baseURL. A zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.OrNop(log),
	}
}

type chatRequest struct {
	Question string `json:"question"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// GenerateQuiz asks the service for count questions built from the uploaded documents.
func (c *Client) GenerateQuiz(ctx context.Context, count int) ([]domain.QuizQuestion, error) {
	endpoint := c.baseURL + "/quiz/generate?num_questions=" + url.QueryEscape(strconv.Itoa(count))
	var questions []domain.QuizQuestion
	if err := c.do(ctx, "generate quiz", http.MethodGet, endpoint, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Ask sends a free-form question and returns the answer with its source documents.
func (c *Client) Ask(ctx context.Context, question string) (domain.ChatAnswer, error) {
	var answer domain.ChatAnswer
	if err := c.do(ctx, "chat", http.MethodPost, c.baseURL+"/chat/", chatRequest{Question: question}, &answer); err != nil {
		return domain.ChatAnswer{}, err
	}
	return answer, nil
}

// Healthy reports whether the service answers its root endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, "health", http.MethodGet, c.baseURL+"/", nil, nil) == nil
}

// ResetCorpus removes every ingested document from the service.
func (c *Client) ResetCorpus(ctx context.Context) bool {
	return c.do(ctx, "reset corpus", http.MethodDelete, c.baseURL+"/upload/clear", nil, nil) == nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RemoteRequests.WithLabelValues(op, metrics.Outcome(err)).Inc()
		metrics.RemoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			c.log.Warn("answering service call failed", zap.String("op", op), zap.Error(err))
		}
	}()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &domain.ServiceError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.ServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return &domain.ServiceError{Op: op, Status: resp.StatusCode, Detail: eb.Detail}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ServiceError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
