package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Options struct {
	DBName       string
	DBUser       string
	Password     string
	Host         string
	Port         string
	SSLMode      bool
	MaxIdleConns int
	MaxOpenConns int
}

var (
	registerOnce sync.Once
	driverName   string
	registerErr  error
)

// registerDriver wraps lib/pq with otelsql. database/sql panics when a driver
// name is registered twice, so it runs once per process.
func registerDriver(dbName string) (string, error) {
	registerOnce.Do(func() {
		driverName, registerErr = otelsql.Register("postgres",
			otelsql.AllowRoot(),
			otelsql.TraceQueryWithoutArgs(),
			otelsql.TraceRowsClose(),
			otelsql.TraceRowsAffected(),
			otelsql.WithDatabaseName(dbName),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
		)
	})

	return driverName, registerErr
}

// Open returns a traced *sql.DB. No connection is made until first use.
func Open(opts Options) (*sql.DB, error) {
	sslmode := "disable"
	if opts.SSLMode {
		sslmode = "require"
	}

	datasource := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		opts.Host, opts.Port, opts.DBUser, opts.Password, opts.DBName, sslmode,
	)

	name, err := registerDriver(opts.DBName)
	if err != nil {
		return nil, fmt.Errorf("register sql driver: %w", err)
	}

	db, err := sql.Open(name, datasource)
	if err != nil {
		return nil, err
	}

	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	// Database metrics
	if err := otelsql.RecordStats(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// NewConnection opens the database and hands the pool to gorm. Errors coming
// back from gorm are *pq.Error values.
func NewConnection(opts Options) (*gorm.DB, error) {
	sqlDB, err := Open(opts)
	if err != nil {
		return nil, err
	}

	db, err := NewGorm(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// NewGorm wraps an existing pool. gorm pings the pool while opening. Every
// repository write is a single statement, so the implicit transaction is off.
func NewGorm(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// StatusCheck returns nil if it can successfully talk to the database.
func StatusCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	var pingError error
	for attempts := 1; ; attempts++ {
		pingError = sqlDB.PingContext(ctx)
		if pingError == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	// Forces a round trip through the database.
	var tmp bool
	return sqlDB.QueryRowContext(ctx, `SELECT true`).Scan(&tmp)
}
