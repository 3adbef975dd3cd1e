package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nlsql/nlsql/internal/cli/chat"
	"github.com/nlsql/nlsql/internal/conversation"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session in the terminal",
		Long: `Start an interactive session in the terminal.

Questions the model finds ambiguous come back as a clarification; the next
line you type is read as the answer and merged into the original question.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, "nlsql-chat")
			if err != nil {
				return err
			}
			deps, err := newAssistant(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tables, err := deps.executor.Tables(ctx)
			if err != nil {
				logger.Warn("could not list tables", slog.Any("error", err))
			}

			machine := &conversation.Machine{
				Translator: deps.translator,
				Executor:   deps.executor,
				Schema:     deps.schema,
				Logger:     logger,
			}
			code := chat.Run(ctx, machine, chat.Options{
				Stdin:  os.Stdin,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
				Tables: tables,
			})
			if code != 0 {
				return fmt.Errorf("chat exited with code %d", code)
			}
			return nil
		},
	}
}

