//go:build integration

package outbox

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type capturingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
}

func (c *capturingWriter) WriteMessages(_ context.Context, _ string, msgs ...kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
	return nil
}

func (c *capturingWriter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func TestDispatcherClaimsBeforeDelivering(t *testing.T) {
	ctx := context.Background()
	pool := startOutboxDatabase(t, ctx)

	for i := 0; i < 3; i++ {
		_, err := pool.Exec(ctx,
			`INSERT INTO outbox (topic, event_type, partition_key, payload)
             VALUES ('fitness_records', 'record.logged', 'owner-1', '{"n":1}')`)
		require.NoError(t, err)
	}

	writer := &capturingWriter{}
	first := NewDispatcher(pool, writer, time.Second, 10)
	second := NewDispatcher(pool, writer, time.Second, 10)

	events, err := first.fetchAndClaim(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// A concurrent replica polling after the claim must see nothing even
	// though the rows are still unpublished.
	overlap, err := second.fetchAndClaim(ctx)
	require.NoError(t, err)
	require.Empty(t, overlap)

	require.NoError(t, first.markPublished(ctx, events))

	var unpublished int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	require.Zero(t, unpublished)
}

func TestDispatcherReclaimsStaleClaims(t *testing.T) {
	ctx := context.Background()
	pool := startOutboxDatabase(t, ctx)

	_, err := pool.Exec(ctx,
		`INSERT INTO outbox (topic, event_type, partition_key, payload, claimed_at)
         VALUES ('fitness_records', 'record.logged', 'owner-1', '{"n":1}', now() - interval '5 minutes')`)
	require.NoError(t, err)

	writer := &capturingWriter{}
	dispatcher := NewDispatcher(pool, writer, time.Second, 10)

	require.NoError(t, dispatcher.processBatch(ctx))
	require.Equal(t, 1, writer.count(), "a row whose claimant died must be redelivered")

	// Once published it never comes back.
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Equal(t, 1, writer.count())
}

func startOutboxDatabase(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitness"),
		postgrescontainer.WithUsername("fitness"),
		postgrescontainer.WithPassword("fitness"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var pool *pgxpool.Pool
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err = pgxpool.New(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		require.False(t, time.Now().After(deadline), "database never became ready: %v", err)
		time.Sleep(time.Second)
	}
	t.Cleanup(func() { pool.Close() })

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	migration := filepath.Join(filepath.Dir(file), "../../db/postgres/migrations/0001_init.up.sql")
	contents, err := os.ReadFile(migration)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)

	return pool
}
