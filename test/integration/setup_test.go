package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registry/registry/internal/platform/db"
)

// testDB holds the shared database infrastructure for integration tests.
type testDB struct {
	Pool    *pgxpool.Pool
	ConnStr string
}

// globalDB is the package-level test database, initialized once in TestMain.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	tdb, cleanup, err := setupDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	globalDB = tdb
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// setupDatabase starts a Postgres 16 container and applies all migrations.
func setupDatabase(ctx context.Context) (*testDB, func(), error) {
	connStr, cleanupContainer, err := startPostgresContainer(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanupContainer()
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		cleanupContainer()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.NewMigrator(pool, findMigrationsDir()).Up(ctx); err != nil {
		pool.Close()
		cleanupContainer()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &testDB{Pool: pool, ConnStr: connStr}, func() {
		pool.Close()
		cleanupContainer()
	}, nil
}

// findMigrationsDir locates the migrations directory relative to this test file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	// test/integration -> repo root
	return filepath.Join(dir, "..", "..", "migrations")
}

// truncateAll wipes every table so each test starts from an empty registry.
func truncateAll(t *testing.T, ctx context.Context) {
	t.Helper()
	_, err := globalDB.Pool.Exec(ctx,
		`TRUNCATE outcome, intraop_sample, transplant_case, evaluation`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// ptrStr returns a pointer to the given string.
func ptrStr(s string) *string { return &s }

// ptrFloat returns a pointer to the given float64.
func ptrFloat(f float64) *float64 { return &f }

// ptrInt returns a pointer to the given int.
func ptrInt(i int) *int { return &i }

// ptrTime returns a pointer to the given time.
func ptrTime(t time.Time) *time.Time { return &t }

// ptrUUID returns a pointer to the given UUID.
func ptrUUID(u uuid.UUID) *uuid.UUID { return &u }
