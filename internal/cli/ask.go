package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewAskCmd sends a single question to the study assistant.
func NewAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the study assistant a question about your documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			chat := env.service.NewChatSession()
			reply, err := chat.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderMessage(reply))
			return err
		},
	}
}
