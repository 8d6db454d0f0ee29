package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gogomedia/internal/authgate"
	"github.com/Skotchmaster/gogomedia/internal/config"
	"github.com/Skotchmaster/gogomedia/internal/db"
	"github.com/Skotchmaster/gogomedia/internal/events"
	"github.com/Skotchmaster/gogomedia/internal/handlers"
	"github.com/Skotchmaster/gogomedia/internal/hash"
	"github.com/Skotchmaster/gogomedia/internal/media"
	"github.com/Skotchmaster/gogomedia/internal/metrics"
	"github.com/Skotchmaster/gogomedia/internal/repo"
	"github.com/Skotchmaster/gogomedia/internal/revocation"
	"github.com/Skotchmaster/gogomedia/internal/search"
	"github.com/Skotchmaster/gogomedia/internal/service"
	"github.com/Skotchmaster/gogomedia/internal/tokens"
	httpserver "github.com/Skotchmaster/gogomedia/internal/transport/http"
)

type app struct {
	logger  *slog.Logger
	echo    *echo.Echo
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger, autoMigrate bool) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return db.Close(gdb) })

	if autoMigrate {
		if err := db.Migrate(ctx, gdb); err != nil {
			return nil, err
		}
	}

	revoked, err := revocationStore(ctx, cfg, gdb, a)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers)
		producer.OnFailure = m.EventFailed
		publisher = producer
		logger.Info("event publishing enabled", "brokers", cfg.KafkaBrokers)
	}
	a.closers = append(a.closers, publisher.Close)

	var index search.Indexer = search.Disabled{}
	if cfg.ESURL != "" {
		client, err := search.NewClient(ctx, search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
		})
		if err != nil {
			return nil, err
		}
		index = search.NewESIndexer(client, cfg.ESIndex)
		logger.Info("search enabled", "index", cfg.ESIndex)
	}

	r := repo.New(gdb)
	ts := tokens.NewService(cfg.JWTSecret, cfg.TokenTTL)
	notifier := &service.Notifier{
		Publisher: publisher,
		Topics:    events.NewTopics(cfg.KafkaTopicPrefix),
		Recorder:  m,
	}
	gate := &authgate.Gate{
		Tokens:       ts,
		Revoked:      revoked,
		Users:        r,
		AuthDisabled: cfg.AuthDisabled,
		Recorder:     m,
	}
	if cfg.AuthDisabled {
		logger.Warn("authentication is disabled")
	}

	a.echo = httpserver.New(logger, cfg.CORSOrigins)
	httpserver.Register(a.echo, &httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{
			Auth: &service.AuthService{
				Repo:     r,
				Hasher:   hash.Hasher{},
				Tokens:   ts,
				Revoked:  revoked,
				Notifier: notifier,
			},
			Gate: gate,
		},
		MediaHandler: &handlers.MediaHandler{
			Media: &service.MediaService{
				Engine:   media.NewEngine(r),
				Repo:     r,
				Index:    index,
				Notifier: notifier,
				Recorder: m,
			},
			Gate: gate,
		},
		HealthHandler: &handlers.HealthHandler{DB: gdb},
		Metrics:       m.Handler(),
	})
	return a, nil
}

func revocationStore(ctx context.Context, cfg config.Config, gdb *gorm.DB, a *app) (revocation.Store, error) {
	if cfg.RevocationBackend != config.RevocationRedis {
		return &revocation.GormStore{DB: gdb}, nil
	}

	rs := revocation.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	a.closers = append(a.closers, rs.Close)
	if err := rs.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis revocation store: %w", err)
	}
	return rs, nil
}
