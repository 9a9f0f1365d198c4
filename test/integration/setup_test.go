// Package integration runs the registry against a real PostgreSQL server.
// Set MEDICHAIN_INTEGRATION=1 to enable it; TEST_DATABASE_URL points at an
// existing server, otherwise a Docker container is started.
package integration

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/blobstore"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/registry"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/migrations"
)

// databaseURL is set by TestMain; empty means integration tests are skipped.
var databaseURL string

var schemaSeq atomic.Int64

func TestMain(m *testing.M) {
	if os.Getenv("MEDICHAIN_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	cleanup := func() {}
	databaseURL = os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		url, stop, err := startPostgres(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
			os.Exit(1)
		}
		databaseURL, cleanup = url, stop
	}

	code := m.Run()
	cleanup()
	os.Exit(code)
}

type testClock struct{ unix atomic.Int64 }

func (c *testClock) Now() time.Time          { return time.Unix(c.unix.Load(), 0).UTC() }
func (c *testClock) Advance(d time.Duration) { c.unix.Add(int64(d / time.Second)) }

type env struct {
	reg   *registry.Registry
	clock *testClock
}

// newEnv migrates a fresh schema and builds a registry over it.
func newEnv(t *testing.T) *env {
	t.Helper()
	if databaseURL == "" {
		t.Skip("set MEDICHAIN_INTEGRATION=1 to run postgres integration tests")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("it_%d_%d", os.Getpid(), schemaSeq.Add(1))

	admin, err := db.NewPool(ctx, db.PoolConfig{URL: databaseURL, MaxConns: 2, MinConns: 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.NewMigrator(admin, migrations.FS, schema).Up(ctx); err != nil {
		admin.Close()
		t.Fatalf("migrate %s: %v", schema, err)
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: databaseURL, MaxConns: 8, MinConns: 0, Schema: schema})
	if err != nil {
		admin.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		pool.Close()
		if _, err := admin.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	clock := &testClock{}
	clock.unix.Store(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC).Unix())
	reg := registry.New(registry.PGSubstrate(pool), blobstore.NewMemoryStore(), registry.Options{
		Clock:  clock.Now,
		Logger: zerolog.Nop(),
	})
	return &env{reg: reg, clock: clock}
}
