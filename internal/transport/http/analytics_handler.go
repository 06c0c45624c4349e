package http

import (
	"context"
	"encoding/json"
	"net/http"

	"study-session/internal/analytics"
	"study-session/internal/logger"
	"go.uber.org/zap"
)

// AnalyticsProvider serves the progress report and clears it.
type AnalyticsProvider interface {
	Analytics(ctx context.Context) analytics.Report
	ResetProgress(ctx context.Context) error
}

// AnalyticsHandler exposes the report over plain HTTP: GET reads it, DELETE clears the ledger.
type AnalyticsHandler struct {
	provider AnalyticsProvider
	log      *zap.Logger
}

func NewAnalyticsHandler(provider AnalyticsProvider, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{provider: provider, log: logger.OrNop(log)}
}

func (h *AnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		if err := h.provider.ResetProgress(r.Context()); err != nil {
			h.log.Error("reset progress failed", zap.Error(err))
			http.Error(w, "failed to clear progress", http.StatusInternalServerError)
			return
		}
	default:
		w.Header().Set("Allow", "GET, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.provider.Analytics(r.Context())); err != nil {
		h.log.Warn("write analytics response", zap.Error(err))
	}
}
