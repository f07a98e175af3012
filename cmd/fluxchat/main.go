// Package main provides fluxchat, a terminal client that runs one goal
// conversation against the configured completion provider.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flux-life/flux-planner/internal/config"
	"github.com/flux-life/flux-planner/internal/llm"
)

func main() {
	var (
		resumePath string
		userID     string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:   "fluxchat",
		Short: "Plan a health & fitness goal from the terminal",
		Long: `fluxchat runs one goal-planning conversation on stdin/stdout.

Type your goal to begin, answer each question, and confirm the plan.
Type /quit to leave. With --resume, the conversation is saved to the
file after every turn and picked up from it on the next run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			gateway, provider, err := llm.New(ctx, cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("completion gateway: %w", err)
			}

			session, err := openSession(resumePath, userID, gateway, logger)
			if err != nil {
				return err
			}
			return session.run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), provider)
		},
	}

	rootCmd.Flags().StringVar(&resumePath, "resume", "", "snapshot file to resume from and save to")
	rootCmd.Flags().StringVar(&userID, "user", "local", "user id for a new conversation")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log provider calls to stderr")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
