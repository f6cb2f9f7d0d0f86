package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
	"github.com/jinford/minirag/internal/core/vectorstore/vectorstoretest"
	"github.com/jinford/minirag/internal/platform/database"
)

// startPostgres は pgvector 入りの PostgreSQL コンテナを起動して接続パラメータを返す
// Docker が使えない環境ではテストをスキップする
func startPostgres(t *testing.T) database.ConnectionParams {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=minirag",
			"POSTGRES_PASSWORD=minirag",
			"POSTGRES_DB=minirag_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Skipf("could not start pgvector container: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	params := database.ConnectionParams{
		Host:     "localhost",
		Port:     port,
		User:     "minirag",
		Password: "minirag",
		DBName:   "minirag_test",
		SSLMode:  "disable",
	}

	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		db, err := database.New(context.Background(), params)
		if err != nil {
			return err
		}
		db.Close()
		return nil
	})
	require.NoError(t, err, "postgres did not become ready")

	return params
}

func TestStore_Conformance(t *testing.T) {
	params := startPostgres(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// ケースごとに空のデータベースを用意する
	var n atomic.Int32
	vectorstoretest.Run(t, func(t *testing.T) vectorstore.Store {
		ctx := context.Background()
		db, err := database.New(ctx, params)
		require.NoError(t, err)
		t.Cleanup(db.Close)

		dbName := fmt.Sprintf("case_%d", n.Add(1))
		_, err = db.Pool.Exec(ctx, "CREATE DATABASE "+dbName)
		require.NoError(t, err)

		scoped := params
		scoped.DBName = dbName
		store, err := Open(ctx, scoped, WithLogger(logger))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	}, true)
}

func TestOpen_Unavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Open(ctx, database.ConnectionParams{
		Host:    "127.0.0.1",
		Port:    1,
		User:    "nobody",
		DBName:  "nothing",
		SSLMode: "disable",
	})
	assert.ErrorIs(t, err, vectorstore.ErrUnavailable)
}

func TestStore_ReattachAcrossConnections(t *testing.T) {
	params := startPostgres(t)
	ctx := context.Background()

	writer, err := Open(ctx, params)
	require.NoError(t, err)

	col, err := writer.CreateCollection(ctx, "5_gemini", mo.None[llm.Embedder]())
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, []vectorstore.Document{
		{ID: "a", Text: "alpha", Embedding: []float32{1, 0}},
		{ID: "b", Text: "beta", Embedding: []float32{0, 1}},
	}))
	require.NoError(t, writer.Close())

	reader, err := Open(ctx, params)
	require.NoError(t, err)
	defer reader.Close()

	got, err := reader.GetCollection(ctx, "5_gemini", mo.None[llm.Embedder]())
	require.NoError(t, err)

	res, err := got.Query(ctx, vectorstore.QueryByEmbedding([]float32{0.1, 0.9}, 1))
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "b", res.Documents[0].ID)
	assert.Equal(t, "beta", res.Documents[0].Text)
}
