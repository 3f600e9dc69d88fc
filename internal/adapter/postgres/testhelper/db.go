// Package testhelper provides a migrated PostgreSQL instance for integration
// tests of the thread and audit repositories.
package testhelper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/heartmarshall/labassist-backend/internal/adapter/postgres"
	"github.com/heartmarshall/labassist-backend/internal/config"
)

const (
	image    = "postgres:17-alpine"
	user     = "labassist"
	password = "labassist"
	dbName   = "labassist_test"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// SetupTestDB returns a pool on a PostgreSQL container shared by the whole
// test binary. The container is started and migrated on first use through
// the same NewPool and Migrate the API server runs at startup. Tests are
// isolated by owner id rather than by schema. Skipped under -short.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = start()
	})
	if initErr != nil {
		t.Fatalf("testhelper: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, Database(sharedDSN))
	if err != nil {
		t.Fatalf("testhelper: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Database is a pool configuration for tests against dsn.
func Database(dsn string) config.DatabaseConfig {
	return config.DatabaseConfig{
		DSN:             dsn,
		MaxConns:        8,
		MinConns:        0,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}
}

func start() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       dbName,
			},
			// postgres logs readiness twice: once for the init server, once for the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", image, err)
	}

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		return "", fmt.Errorf("container endpoint: %w", err)
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, endpoint, dbName)

	if err := postgres.Migrate(ctx, dsn, slog.New(slog.DiscardHandler)); err != nil {
		return "", err
	}
	return dsn, nil
}
