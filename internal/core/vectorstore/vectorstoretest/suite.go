// Package vectorstoretest は vectorstore.Store 実装が共通で満たすべき振る舞いのテストを提供する
package vectorstoretest

import (
	"context"
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

// Factory はテストごとに空のストアを返す
type Factory func(t *testing.T) vectorstore.Store

// KeywordEmbedder は Keywords の出現回数をそのままベクトルにするテスト用Embedder
type KeywordEmbedder struct {
	Keywords []string
}

// NewKeywordEmbedder は fruit 系のキーワードで KeywordEmbedder を作成する
func NewKeywordEmbedder() *KeywordEmbedder {
	return &KeywordEmbedder{Keywords: []string{"apple", "orange", "banana"}}
}

func (e *KeywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, len(e.Keywords))
	lower := strings.ToLower(text)
	for i, k := range e.Keywords {
		v[i] = float32(strings.Count(lower, k))
	}
	return v, nil
}

func (e *KeywordEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *KeywordEmbedder) ModelName() string { return "keyword" }
func (e *KeywordEmbedder) Dimension() int    { return len(e.Keywords) }

var _ llm.Embedder = (*KeywordEmbedder)(nil)

func explicitDocs() []vectorstore.Document {
	return []vectorstore.Document{
		{ID: "x", Text: "points along x", Embedding: []float32{1, 0, 0}},
		{ID: "y", Text: "points along y", Embedding: []float32{0, 1, 0}},
		{ID: "xy", Text: "between x and y", Embedding: []float32{1, 0.8, 0}},
	}
}

// Run は全ケースを実行する
// persistent が true のストアは CreateCollection の再実行で ErrAlreadyExists を返すことを期待する
func Run(t *testing.T, factory Factory, persistent bool) {
	t.Run("round trip with explicit embeddings", func(t *testing.T) {
		testRoundTrip(t, factory(t))
	})
	t.Run("bound embedder", func(t *testing.T) {
		testBoundEmbedder(t, factory(t))
	})
	t.Run("query text without embedder", func(t *testing.T) {
		testQueryTextWithoutEmbedder(t, factory(t))
	})
	t.Run("duplicate ids", func(t *testing.T) {
		testDuplicateIDs(t, factory(t))
	})
	t.Run("dimension mismatch", func(t *testing.T) {
		testDimensionMismatch(t, factory(t))
	})
	t.Run("empty collection", func(t *testing.T) {
		testEmptyCollection(t, factory(t))
	})
	t.Run("missing collection", func(t *testing.T) {
		testMissingCollection(t, factory(t))
	})
	t.Run("create existing collection", func(t *testing.T) {
		testCreateExisting(t, factory(t), persistent)
	})
	t.Run("collections are isolated", func(t *testing.T) {
		testIsolation(t, factory(t))
	})
}

func none() mo.Option[llm.Embedder] { return mo.None[llm.Embedder]() }

func testRoundTrip(t *testing.T, store vectorstore.Store) {
	ctx := context.Background()

	col, err := store.CreateCollection(ctx, "round_trip", none())
	require.NoError(t, err)
	assert.Equal(t, "round_trip", col.Name())

	require.NoError(t, col.Add(ctx, explicitDocs()))

	count, err := col.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	res, err := col.Query(ctx, vectorstore.QueryByEmbedding([]float32{1, 0, 0}, 2))
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, []string{"x", "xy"}, res.IDs())
	assert.Equal(t, "points along x", res.Documents[0].Text)
	assert.InDelta(t, 0.0, res.Documents[0].Distance, 1e-5)
	assert.Less(t, res.Documents[0].Distance, res.Documents[1].Distance)

	// k が件数を超える場合は全件
	res, err = col.Query(ctx, vectorstore.QueryByEmbedding([]float32{0, 1, 0}, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "xy", "x"}, res.IDs())

	// Peek と Count は何度呼んでも同じ
	for i := 0; i < 2; i++ {
		peek, err := col.Peek(ctx, 2)
		require.NoError(t, err)
		require.Len(t, peek, 2)
		assert.Equal(t, "x", peek[0].ID)
		assert.Equal(t, "y", peek[1].ID)
		assert.Equal(t, []float32{0, 1, 0}, peek[1].Embedding)

		count, err := col.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	}

	peek, err := col.Peek(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, peek, 3)
}

func testBoundEmbedder(t *testing.T, store vectorstore.Store) {
	ctx := context.Background()
	embedder := NewKeywordEmbedder()

	col, err := store.CreateCollection(ctx, "bound", mo.Some[llm.Embedder](embedder))
	require.NoError(t, err)

	require.NoError(t, col.Add(ctx, []vectorstore.Document{
		{ID: "1", Text: "apple pie"},
		{ID: "2", Text: "orange juice"},
		{ID: "3", Text: "banana bread"},
	}))

	res, err := col.Query(ctx, vectorstore.QueryByText("fresh orange", 1))
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "2", res.Documents[0].ID)
	assert.Equal(t, "orange juice", res.Documents[0].Text)
}

func testQueryTextWithoutEmbedder(t *testing.T, store vectorstore.Store) {
	ctx := context.Background()

	col, err := store.CreateCollection(ctx, "unbound", none())
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, explicitDocs()))

	_, err = col.Query(ctx, vectorstore.QueryByText("x", 1))
	assert.ErrorIs(t, err, vectorstore.ErrConfiguration)

	err = col.Add(ctx, []vectorstore.Document{{ID: "z", Text: "no vector"}})
	assert.ErrorIs(t, err, vectorstore.ErrConfiguration)
}

func testDuplicateIDs(t *testing.T, store vectorstore.Store) {
	ctx := context.Background()

	col, err := store.CreateCollection(ctx, "dups", none())
	require.NoError(t, err)

	err = col.Add(ctx, []vectorstore.Document{
		{ID: "a", Embedding: []float32{1, 0, 0}},
		{ID: "a", Embedding: []float32{0, 1, 0}},
	})
	assert.ErrorIs(t, err, vectorstore.ErrValidation)

	require.NoError(t, col.Add(ctx, explicitDocs()))

	// 既存IDの再追加は拒否され、件数は変わらない
	err = col.Add(ctx, []vectorstore.Document{
		{ID: "new", Embedding: []float32{0, 0, 1}},
		{ID: "x", Embedding: []float32{0, 0, 1}},
	})
	assert.ErrorIs(t, err, vectorstore.ErrValidation)

	count, err := col.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func testDimensionMismatch(t *testing.T, store vectorstore.Store) {
	ctx := context.Background()

	col, err := store.CreateCollection(ctx, "dims", none())
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, explicitDocs()))

	err = col.Add(ctx, []vectorstore.Document{{ID: "w", Embedding: []float32{1, 0}}})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)

	_, err = col.Query(ctx, vectorstore.QueryByEmbedding([]float32{1, 0}, 1))
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func testEmptyCollection(t *testing.T, store vectorstore.Store) {
	ctx := context.Background()

	col, err := store.CreateCollection(ctx, "empty", none())
	require.NoError(t, err)

	res, err := col.Query(ctx, vectorstore.QueryByEmbedding([]float32{1, 0, 0}, 3))
	require.NoError(t, err)
	assert.Empty(t, res.Documents)

	peek, err := col.Peek(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, peek)

	count, err := col.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = col.Query(ctx, vectorstore.QueryByEmbedding([]float32{1, 0, 0}, 0))
	assert.ErrorIs(t, err, vectorstore.ErrValidation)

	err = col.Add(ctx, nil)
	assert.ErrorIs(t, err, vectorstore.ErrValidation)
}

func testMissingCollection(t *testing.T, store vectorstore.Store) {
	_, err := store.GetCollection(context.Background(), "does_not_exist", none())
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func testCreateExisting(t *testing.T, store vectorstore.Store, persistent bool) {
	ctx := context.Background()

	col, err := store.CreateCollection(ctx, "again", none())
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, explicitDocs()))

	again, err := store.CreateCollection(ctx, "again", none())
	if persistent {
		assert.ErrorIs(t, err, vectorstore.ErrAlreadyExists)
	} else {
		require.NoError(t, err)
		count, err := again.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	}

	got, err := store.GetCollection(ctx, "again", none())
	require.NoError(t, err)
	count, err := got.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	res, err := got.Query(ctx, vectorstore.QueryByEmbedding([]float32{0, 1, 0}, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, res.IDs())
}

func testIsolation(t *testing.T, store vectorstore.Store) {
	ctx := context.Background()

	a, err := store.CreateCollection(ctx, "iso_a", none())
	require.NoError(t, err)
	b, err := store.CreateCollection(ctx, "iso_b", none())
	require.NoError(t, err)

	require.NoError(t, a.Add(ctx, explicitDocs()))
	// 同じIDでも別コレクションなら追加できる
	require.NoError(t, b.Add(ctx, []vectorstore.Document{{ID: "x", Embedding: []float32{1, 2}}}))

	countA, err := a.Count(ctx)
	require.NoError(t, err)
	countB, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, countA)
	assert.Equal(t, 1, countB)
}
