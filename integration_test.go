package pgrecord

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres brings up a disposable Postgres for the live-database tests
// and returns a pool wired to reg. Skipped under -short.
func startPostgres(t *testing.T, reg *Registry) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("pgrecord_test"),
		postgres.WithUsername("pgrecord"),
		postgres.WithPassword("pgrecord"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(log.New(io.Discard, "", 0)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, &PoolConfig{DSN: dsn, MaxConns: 4}, reg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestIntegration_RoundTrip(t *testing.T) {
	spec := mustSimpleType(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(spec))

	pool := startPostgres(t, reg)
	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	require.NoError(t, CreateType{Spec: spec}.Apply(ctx, conn.Conn(), reg))
	state, _ := reg.State("test_type")
	require.Equal(t, RegStateRegistered, state)

	// Write through a rendered literal, read back through the codec.
	v, err := spec.New(1, "b", time.Date(1985, 10, 26, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	lit, err := v.Literal()
	require.NoError(t, err)
	require.NoError(t, lit.Prepare(conn.Conn().TypeMap()))
	sql, err := lit.Render()
	require.NoError(t, err)
	assert.Equal(t, "(1, 'b', '1985-10-26T09:00:00')::test_type", sql)

	back := spec.newEmpty()
	require.NoError(t, conn.QueryRow(ctx, "SELECT "+sql).Scan(back))
	assert.True(t, v.Equal(back), "got %s", back)

	// And as a bound parameter, no literal involved.
	back2 := spec.newEmpty()
	require.NoError(t, conn.QueryRow(ctx, "SELECT $1::test_type", v).Scan(back2))
	assert.True(t, v.Equal(back2))
}

func TestIntegration_RegisterBeforeCreate(t *testing.T) {
	// Connections open before the migration runs; registration stays armed
	// and completes when the type is created.
	spec := mustSimpleType(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(spec))

	pool := startPostgres(t, reg)
	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	state, _ := reg.State("test_type")
	require.Equal(t, RegStateAwaitingType, state)

	require.NoError(t, CreateType{Spec: spec}.Apply(ctx, conn.Conn(), reg))
	state, _ = reg.State("test_type")
	assert.Equal(t, RegStateRegistered, state)
}

func TestIntegration_NestedAndArray(t *testing.T) {
	point, box := mustPointAndBox(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(box))

	pool := startPostgres(t, reg)
	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	require.NoError(t, CreateType{Spec: point}.Apply(ctx, conn.Conn(), reg))
	require.NoError(t, CreateType{Spec: box}.Apply(ctx, conn.Conn(), reg))

	mustBox := func(x1, y1, x2, y2 int) *CompositeValue {
		tl, err := point.New(x1, y1)
		require.NoError(t, err)
		br, err := point.New(x2, y2)
		require.NoError(t, err)
		b, err := box.New(tl, br)
		require.NoError(t, err)
		return b
	}

	b := mustBox(0, 0, 10, 10)
	back := box.newEmpty()
	require.NoError(t, conn.QueryRow(ctx, "SELECT $1::box", b).Scan(back))
	assert.True(t, b.Equal(back))

	// Array of composites through the derived array codec.
	in := NewValueArray(box)
	for i := 0; i < 5; i++ {
		in.Elems = append(in.Elems, mustBox(i, i, i+1, i+1))
	}
	out := NewValueArray(box)
	require.NoError(t, conn.QueryRow(ctx, "SELECT $1::box[]", in).Scan(out))
	require.Len(t, out.Elems, 5)
	for i := range in.Elems {
		assert.True(t, in.Elems[i].Equal(out.Elems[i]), "element %d", i)
	}
}
