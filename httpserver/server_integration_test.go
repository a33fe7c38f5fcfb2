package httpserver_test

import (
	"context"
	"testing"
	"time"

	"agenda/contact"
	"agenda/httpserver"
	"agenda/pkg/logger"
	"agenda/postgres"

	"github.com/docker/go-connections/nat"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func MustCreateServer(t testing.TB, db *gorm.DB) *httpserver.Server {
	t.Helper()

	repo := postgres.NewContactRepository(db, logger.NOOPLogger)
	contactService := contact.NewUsecase(repo, logger.NOOPLogger)

	server := httpserver.Default(testConfig())
	server.ContactService = contactService

	return server
}

// MustCreateTestDatabase starts a disposable PostgreSQL container and returns a
// GORM connection to it. Skipped with -short.
func MustCreateTestDatabase(t testing.TB) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container backed test in short mode")
	}

	ctx := context.Background()
	dbName, dbUser, dbPass := "test_agenda", "test", "testpass"
	postgre, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		pgcontainer.WithDatabase(dbName),
		pgcontainer.WithUsername(dbUser),
		pgcontainer.WithPassword(dbPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		require.NoError(t, postgre.Terminate(ctx), "failed to terminate postgres container")
	})

	host, port := extractHostAndPort(t, ctx, postgre)
	db, err := postgres.NewConnection(postgres.Options{
		DBName:   dbName,
		DBUser:   dbUser,
		Password: dbPass,
		Host:     host,
		Port:     port.Port(),
	})
	require.NoError(t, err, "failed to connect to postgres database")

	return db
}

func extractHostAndPort(t testing.TB, ctx context.Context, postgre *pgcontainer.PostgresContainer) (string, nat.Port) {
	t.Helper()
	host, err := postgre.Host(ctx)
	require.NoError(t, err, "failed to get container host")

	port, err := postgre.MappedPort(ctx, "5432")
	require.NoError(t, err, "failed to get mapped port")
	return host, port
}

// MigrateTestDatabase runs all migration files against the test database.
func MigrateTestDatabase(t testing.TB, db *gorm.DB, migrationPath string) {
	t.Helper()
	migrations := &migrate.FileMigrationSource{
		Dir: migrationPath,
	}

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB from gorm.DB")

	_, err = migrate.Exec(sqlDB, "postgres", migrations, migrate.Up)
	require.NoError(t, err, "failed to run database migrations")
}
