// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/lending-library/internal/config"
	"github.com/Shivanand-hulikatti/lending-library/internal/database"
	"github.com/Shivanand-hulikatti/lending-library/internal/handler"
	"github.com/Shivanand-hulikatti/lending-library/internal/notify"
	"github.com/Shivanand-hulikatti/lending-library/internal/reminder"
	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
	"github.com/Shivanand-hulikatti/lending-library/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Lending library loan service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  func(cmd *cobra.Command, _ []string) error { return run(cmd.Context(), runServe) },
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  func(cmd *cobra.Command, _ []string) error { return run(cmd.Context(), runMigrate) },
	}
	root.AddCommand(serve, migrate)
	// serve is the default when no subcommand is given.
	root.RunE = serve.RunE
	return root
}

// run loads configuration and a logger, then hands over to fn. Errors are
// logged before they are returned.
func run(ctx context.Context, fn func(context.Context, config.Config, *slog.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := fn(ctx, cfg, logger); err != nil {
		logger.Error("exiting", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func runMigrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	version, err := database.Migrate(ctx, pool, logger)
	if err != nil {
		return err
	}
	logger.Info("schema up to date", slog.Int("version", version))
	return nil
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// ── 1. Storage ────────────────────────────────────────────────────────
	var store repository.Store
	switch cfg.Driver {
	case config.DriverMemory:
		store = repository.NewMemory()
		logger.Warn("using in-memory storage; data is lost on exit")
	default:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if _, err := database.Migrate(ctx, pool, logger); err != nil {
			return err
		}
		store = repository.NewPostgres(pool)
		logger.Info("connected to PostgreSQL", slog.String("host", cfg.Database.Host))
	}

	// ── 2. Notifications ──────────────────────────────────────────────────
	var sender notify.Sender = notify.NewLogSender(logger)
	if cfg.SMTP.Host != "" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyWait, cfg.NotifyTimeout, logger)

	// ── 3. Wire up layers ────────────────────────────────────────────────
	loanSvc := service.NewLoanService(store,
		service.NewEligibilityChecker(cfg.MaxActiveLoans),
		service.WithLoanPeriod(cfg.LoanPeriod),
		service.WithNotifier(dispatcher),
		service.WithLogger(logger),
	)
	catalogSvc := service.NewCatalogService(store, logger)
	studentSvc := service.NewStudentService(store, logger)
	h := handler.New(loanSvc, catalogSvc, studentSvc, logger)

	// ── 4. Overdue reminders ─────────────────────────────────────────────
	if cfg.ReminderSchedule != "" {
		job := reminder.NewJob(loanSvc, sender, service.NoticeFor, logger)
		c, err := job.Start(cfg.ReminderSchedule)
		if err != nil {
			return err
		}
		defer func() { <-c.Stop().Done() }()
	}

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("pending confirmations abandoned", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
	return nil
}
