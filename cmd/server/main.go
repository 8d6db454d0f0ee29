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

	"github.com/urfave/cli/v3"

	"github.com/Skotchmaster/gogomedia/internal/config"
	"github.com/Skotchmaster/gogomedia/internal/db"
	"github.com/Skotchmaster/gogomedia/internal/logging"
)

func main() {
	cmd := &cli.Command{
		Name:           "gogomedia",
		Usage:          "Per-user media tracking API",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides SERVER_PORT",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "apply the schema before serving",
				Value: true,
			},
		},
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Apply the database schema and exit",
		Action: migrate,
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, err
	}
	return cfg, logger, nil
}

func migrate(ctx context.Context, _ *cli.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if err := db.Migrate(ctx, gdb); err != nil {
		return err
	}
	logger.Info("migrations applied", "driver", cfg.DatabaseDriver)
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger, cmd.Bool("migrate"))
	if err != nil {
		return err
	}
	defer a.close()

	addr := cfg.Addr()
	if v := cmd.String("addr"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      a.echo,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr, "auth_disabled", cfg.AuthDisabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}
