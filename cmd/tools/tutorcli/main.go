// Package main provides a terminal client for the tutoring assistant.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/bootstrap"
	"github.com/zhouzirui/z-tutor/backend/internal/config"
	"github.com/zhouzirui/z-tutor/backend/internal/logger"
)

var (
	app     *bootstrap.App
	userID  string
	newUser bool
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "tutorcli",
		Short: "Chat with the adaptive tutor from a terminal",
		Long: `tutorcli talks to the same tutoring pipeline as the HTTP server.

Every question is classified into a subject and answered by the matching
professor. History is shared with the server when both use the same
HISTORY_DB_PATH.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID whose conversation to use (default DEFAULT_USER_ID)")
	rootCmd.PersistentFlags().BoolVar(&newUser, "new", false, "Start under a fresh random user ID")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show service logs")

	rootCmd.AddCommand(
		chatCmd(),
		askCmd(),
		classifyCmd(),
		historyCmd(),
		resetCmd(),
		personasCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func setup(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if !verbose {
		cfg.Log.Level = "error"
	}
	l, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)

	userID = resolveUser(userID, cfg.DefaultUserID, newUser)

	app, err = bootstrap.New(ctx, cfg, nil, l)
	return err
}

func resolveUser(flagValue, fallback string, fresh bool) string {
	if fresh {
		return "cli-" + uuid.NewString()
	}
	if id := strings.TrimSpace(flagValue); id != "" {
		return id
	}
	return fallback
}
