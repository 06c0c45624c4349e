package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study-session/internal/metrics"
	transport "study-session/internal/transport/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCmd builds the CLI subcommand to start the websocket server.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the study session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func runServer(ctx context.Context, opts *rootOptions) error {
	env, err := openEnvironment(ctx, opts, os.Stdout)
	if err != nil {
		return err
	}
	defer env.Close()

	port := env.cfg.Server.Port
	if port == "" {
		port = "8080"
	}

	wsHandler := transport.NewWSHandler(env.service, env.log.Named("ws"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/analytics", transport.NewAnalyticsHandler(env.service, env.log.Named("analytics")))
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		env.log.Info("starting study session server",
			zap.String("addr", server.Addr),
			zap.String("ledger", env.cfg.Ledger.Backend),
			zap.String("assistant", env.cfg.Assistant.BaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			env.log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		env.log.Info("shutting down server")
	case <-ctx.Done():
		env.log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
