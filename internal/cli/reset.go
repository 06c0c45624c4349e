package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCmd clears stored progress and, optionally, the uploaded documents.
func NewResetCmd(opts *rootOptions) *cobra.Command {
	var corpus bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear stored quiz results",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.ResetProgress(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Quiz results cleared."))

			if corpus {
				if !env.client.ResetCorpus(cmd.Context()) {
					return fmt.Errorf("failed to clear uploaded documents")
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Uploaded documents cleared."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&corpus, "corpus", false, "also remove every uploaded document from the answering service")
	return cmd
}
