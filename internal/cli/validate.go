package cli

import (
	"fmt"
	"io"

	"automatization-bot/internal/config"
	"automatization-bot/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewValidateCmd checks the config and question bank without starting the bot.
func NewValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config and print the question bank summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var pool *pgxpool.Pool
			if cfg.QuizSource() == "postgres" {
				pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
				if err != nil {
					return fmt.Errorf("connect postgres: %w", err)
				}
				defer pool.Close()
			}
			bank, err := loadBank(ctx, cfg, pool)
			if err != nil {
				return err
			}
			gaps, err := config.VerifyBank(bank, cfg.Quiz.StrictRanges)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), bank, gaps)
			return nil
		},
	}
}

func printSummary(w io.Writer, bank domain.QuestionBank, gaps []int) {
	low, high := bank.ScoreBounds()
	fmt.Fprintf(w, "bank %s: %d questions, answers %v, scores %d..%d\n", bank.ID, len(bank.Questions), bank.Tokens(), low, high)
	for i, q := range bank.Questions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
	for _, r := range bank.Results {
		fmt.Fprintf(w, "  [%d..%d] %s\n", r.Low, r.High, r.Description)
	}
	if len(gaps) > 0 {
		fmt.Fprintf(w, "warning: scores %v match no result\n", gaps)
	}
}
