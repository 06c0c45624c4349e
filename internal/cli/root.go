package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	port       string
	configPath string
	logLevel   string
}

// Execute runs the CLI.
func Execute() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "study-session",
		Short:         "AI study assistant: quizzes, chat and progress analytics",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.port, "port", envPort, "port to listen on (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (overrides config)")

	cmd.AddCommand(
		NewServeCmd(opts),
		NewMigrateCmd(opts),
		NewStatsCmd(opts),
		NewResetCmd(opts),
		NewQuizCmd(opts),
		NewAskCmd(opts),
		NewStatusCmd(opts),
	)
	return cmd
}
