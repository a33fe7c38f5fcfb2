package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"agenda/dynamodb"
	"agenda/pkg/config"
	"agenda/pkg/logger"
	"agenda/postgres"

	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Tracing.ServiceName+"-migrate", cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.DB.Driver == config.DriverDynamoDB {
		err = migrateDynamoDB(ctx, cfg, log)
	} else {
		err = migratePostgres(cfg, log)
	}
	if err != nil {
		log.Errorw("cannot execute migration", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
}

func migratePostgres(cfg *config.Config, log *zap.SugaredLogger) error {
	db, err := postgres.NewConnection(postgres.Options{
		DBName:   cfg.DB.Name,
		DBUser:   cfg.DB.User,
		Password: cfg.DB.Pass,
		Host:     cfg.DB.Host,
		Port:     strconv.Itoa(cfg.DB.Port),
		SSLMode:  cfg.DB.EnableSSL,
	})
	if err != nil {
		return fmt.Errorf("cannot connect to db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("cannot get db instance: %w", err)
	}
	defer sqlDB.Close()

	migrations := &migrate.FileMigrationSource{
		Dir: "migrations",
	}

	total, err := migrate.Exec(sqlDB, "postgres", migrations, migrate.Up)
	if err != nil {
		return err
	}

	log.Infow("applied migrations", "total", total)
	return nil
}

func migrateDynamoDB(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	client, err := dynamodb.NewClient(ctx, dynamodb.Options{
		Region:       cfg.DynamoDB.Region,
		Endpoint:     cfg.DynamoDB.Endpoint,
		AccessKey:    cfg.DynamoDB.AccessKey,
		SecretKey:    cfg.DynamoDB.SecretKey,
		SessionToken: cfg.DynamoDB.SessionToken,
	})
	if err != nil {
		return err
	}

	if err := dynamodb.CreateContactsTable(ctx, client, cfg.DynamoDB.ContactsTable); err != nil {
		return err
	}

	log.Infow("contacts table ready", "table", cfg.DynamoDB.ContactsTable)
	return nil
}
