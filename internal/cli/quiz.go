package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"study-session/internal/app"
	"study-session/internal/domain"
	"github.com/spf13/cobra"
)

// NewQuizCmd runs an interactive quiz in the terminal.
func NewQuizCmd(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Take a multiple-choice quiz generated from your documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.ValidQuestionCount(count) {
				return fmt.Errorf("--count must be one of %v", app.QuestionCounts)
			}
			env, err := openEnvironment(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			return playInteractive(cmd.Context(), env.service.NewQuizSession(), count, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of questions (5, 10 or 15)")
	return cmd
}

func playInteractive(ctx context.Context, quiz *app.QuizSession, count int, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Generating %d questions...\n", count)
	if err := quiz.RequestQuiz(ctx, count); err != nil {
		fmt.Fprintln(out, errorStyle.Render(quiz.LastError()))
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		snap := quiz.Snapshot()
		fmt.Fprint(out, "\n"+renderQuestion(snap))

		if err := answerCurrent(quiz, scanner, out); err != nil {
			quiz.Reset()
			return err
		}
		fmt.Fprint(out, renderFeedback(quiz.Snapshot()))

		result, err := quiz.Advance(ctx)
		if result != nil {
			fmt.Fprint(out, "\n"+renderResult(*result))
			if err != nil {
				fmt.Fprintln(out, warningStyle.Render("Result could not be saved."))
			}
			return err
		}
		if err != nil {
			return err
		}
	}
}

func answerCurrent(quiz *app.QuizSession, scanner *bufio.Scanner, out io.Writer) error {
	for {
		fmt.Fprint(out, "Your answer: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errors.New("quiz aborted")
		}
		key := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if key == "" {
			continue
		}
		_, err := quiz.SubmitAnswer(key)
		if errors.Is(err, domain.ErrOptionNotFound) {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("%q is not one of the options.", key)))
			continue
		}
		return err
	}
}
