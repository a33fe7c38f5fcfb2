package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"agenda/contact"
	"agenda/dynamodb"
	"agenda/httpserver"
	"agenda/pkg/config"
	"agenda/pkg/logger"
	"agenda/pkg/sentry"
	"agenda/pkg/tracing"
	"agenda/postgres"

	sentrygo "github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const (
	version         = "dev"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Tracing.ServiceName, cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := sentry.Init(cfg.SentryDSN, cfg.AppEnv, version); err != nil {
		return err
	}
	defer sentrygo.Flush(sentry.FlushTime)

	tp, err := tracing.Start(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracing.Shutdown(tp, shutdownTimeout); err != nil {
			log.Errorw("cannot flush traces", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newContactRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	server := httpserver.Default(cfg)
	server.Logger = log
	server.ContactService = contact.NewUsecase(repo, log)

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server started", "addr", server.Addr, "driver", cfg.DB.Driver)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// newContactRepository opens the store selected by DB_DRIVER.
func newContactRepository(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (contact.Repository, func(), error) {
	switch cfg.DB.Driver {
	case config.DriverDynamoDB:
		client, err := dynamodb.NewClient(ctx, dynamodb.Options{
			Region:       cfg.DynamoDB.Region,
			Endpoint:     cfg.DynamoDB.Endpoint,
			AccessKey:    cfg.DynamoDB.AccessKey,
			SecretKey:    cfg.DynamoDB.SecretKey,
			SessionToken: cfg.DynamoDB.SessionToken,
		})
		if err != nil {
			return nil, nil, err
		}
		return dynamodb.NewContactRepository(client, cfg.DynamoDB.ContactsTable, log), func() {}, nil
	default:
		db, err := postgres.NewConnection(postgres.Options{
			DBName:       cfg.DB.Name,
			DBUser:       cfg.DB.User,
			Password:     cfg.DB.Pass,
			Host:         cfg.DB.Host,
			Port:         strconv.Itoa(cfg.DB.Port),
			SSLMode:      cfg.DB.EnableSSL,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			MaxOpenConns: cfg.DB.MaxOpenConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open postgres connection: %w", err)
		}

		checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := postgres.StatusCheck(checkCtx, db); err != nil {
			return nil, nil, fmt.Errorf("postgres is not ready: %w", err)
		}

		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return postgres.NewContactRepository(db, log), closeDB, nil
	}
}
