package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlsql/nlsql/internal/api"
	"github.com/nlsql/nlsql/internal/conversation"
)

func newServeCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP session API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, "nlsql-api")
			if err != nil {
				return err
			}
			if address != "" {
				cfg.HTTP.Address = address
			}
			deps, err := newAssistant(cfg)
			if err != nil {
				logger.Error("failed to initialize assistant", slog.Any("error", err))
				return err
			}

			handler := api.NewHandler(cfg, api.Dependencies{
				Logger: logger,
				Machine: &conversation.Machine{
					Translator: deps.translator,
					Executor:   deps.executor,
					Schema:     deps.schema,
					Logger:     logger,
				},
				Sessions: conversation.NewRegistry(),
				Tables:   deps.executor,
				Readiness: api.CombineReadinessChecks(
					api.CheckSchema(deps.schema),
					api.CheckStore(deps.executor),
					api.CheckInferenceConfig(cfg),
				),
				DependencyTimeout: 2 * time.Second,
			})
			server := &http.Server{
				Addr:         cfg.HTTP.Address,
				Handler:      handler,
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
				IdleTimeout:  cfg.HTTP.IdleTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("api server failed", slog.Any("error", err))
					serveErr <- err
					stop()
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			logger.Info("shutting down api server")
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", slog.Any("error", err))
				_ = server.Close()
				return err
			}
			select {
			case err := <-serveErr:
				return err
			default:
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&address, "listen", "l", "", "Address to listen on (default from NLSQL_HTTP_ADDR)")
	return cmd
}
