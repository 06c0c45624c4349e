package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"study-session/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStatusCmd probes the answering service and the ledger store concurrently.
func NewStatusCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check connectivity to the answering service and the ledger store",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var assistantOK bool
			var storeErr error
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				assistantOK = env.client.Healthy(gctx)
				return nil
			})
			g.Go(func() error {
				_, err := env.store.Get(gctx, env.cfg.Ledger.Key)
				if errors.Is(err, domain.ErrNotFound) {
					err = nil
				}
				storeErr = err
				return nil
			})
			_ = g.Wait()

			out := cmd.OutOrStdout()
			if assistantOK {
				fmt.Fprintf(out, "%s answering service at %s\n", successStyle.Render("✓"), env.cfg.Assistant.BaseURL)
			} else {
				fmt.Fprintf(out, "%s answering service at %s is unreachable\n", errorStyle.Render("✗"), env.cfg.Assistant.BaseURL)
			}
			if storeErr == nil {
				fmt.Fprintf(out, "%s ledger store (%s)\n", successStyle.Render("✓"), env.cfg.Ledger.Backend)
			} else {
				fmt.Fprintf(out, "%s ledger store (%s): %v\n", errorStyle.Render("✗"), env.cfg.Ledger.Backend, storeErr)
			}

			if !assistantOK || storeErr != nil {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "probe timeout")
	return cmd
}
