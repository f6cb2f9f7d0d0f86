package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/minirag/internal/core/llm"
)

// stubEmbedder はテキスト長を1次元目に入れる固定次元のEmbedder
type stubEmbedder struct {
	dim   int
	err   error
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, s.dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Dimension() int    { return s.dim }

var _ llm.Embedder = (*stubEmbedder)(nil)

func noEmbedder() mo.Option[llm.Embedder] { return mo.None[llm.Embedder]() }

func TestPrepareDocuments_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		docs    []Document
		wantErr error
	}{
		{name: "empty batch", docs: nil, wantErr: ErrValidation},
		{name: "empty id", docs: []Document{{ID: "", Embedding: []float32{1}}}, wantErr: ErrValidation},
		{
			name:    "duplicate id",
			docs:    []Document{{ID: "a", Embedding: []float32{1}}, {ID: "a", Embedding: []float32{2}}},
			wantErr: ErrValidation,
		},
		{
			name:    "partial embeddings",
			docs:    []Document{{ID: "a", Embedding: []float32{1}}, {ID: "b"}},
			wantErr: ErrValidation,
		},
		{
			name:    "missing embeddings without embedder",
			docs:    []Document{{ID: "a", Text: "x"}},
			wantErr: ErrConfiguration,
		},
		{
			name:    "mixed lengths",
			docs:    []Document{{ID: "a", Embedding: []float32{1, 0}}, {ID: "b", Embedding: []float32{1}}},
			wantErr: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := PrepareDocuments(ctx, tt.docs, noEmbedder(), 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPrepareDocuments_CollectionDimension(t *testing.T) {
	docs := []Document{{ID: "a", Embedding: []float32{1, 0, 0}}}

	_, _, err := PrepareDocuments(context.Background(), docs, noEmbedder(), 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	prepared, dim, err := PrepareDocuments(context.Background(), docs, noEmbedder(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
	assert.Len(t, prepared, 1)
}

func TestPrepareDocuments_EmbedsWithBoundEmbedder(t *testing.T) {
	e := &stubEmbedder{dim: 4}
	docs := []Document{{ID: "a", Text: "one"}, {ID: "b", Text: "three"}}

	prepared, dim, err := PrepareDocuments(context.Background(), docs, mo.Some[llm.Embedder](e), 0)
	require.NoError(t, err)

	assert.Equal(t, 4, dim)
	assert.Equal(t, 1, e.calls)
	assert.Equal(t, float32(3), prepared[0].Embedding[0])
	assert.Equal(t, float32(5), prepared[1].Embedding[0])
	// 入力は書き換えない
	assert.Nil(t, docs[0].Embedding)
}

func TestPrepareDocuments_EmbedderErrorPropagates(t *testing.T) {
	e := &stubEmbedder{dim: 4, err: llm.ErrConnection}

	_, _, err := PrepareDocuments(context.Background(), []Document{{ID: "a", Text: "x"}}, mo.Some[llm.Embedder](e), 0)
	assert.ErrorIs(t, err, llm.ErrConnection)
}

func TestResolveQueryVector(t *testing.T) {
	ctx := context.Background()
	e := &stubEmbedder{dim: 2}

	t.Run("k must be positive", func(t *testing.T) {
		_, err := ResolveQueryVector(ctx, QueryByEmbedding([]float32{1, 0}, 0), noEmbedder(), 0)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("text without embedder", func(t *testing.T) {
		_, err := ResolveQueryVector(ctx, QueryByText("hello", 1), noEmbedder(), 2)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("text with embedder", func(t *testing.T) {
		v, err := ResolveQueryVector(ctx, QueryByText("hello", 1), mo.Some[llm.Embedder](e), 2)
		require.NoError(t, err)
		assert.Equal(t, []float32{5, 0}, v)
	})

	t.Run("embedding takes precedence", func(t *testing.T) {
		q := Query{Text: mo.Some("hello"), Embedding: mo.Some([]float32{0, 1}), K: 1}
		v, err := ResolveQueryVector(ctx, q, mo.Some[llm.Embedder](e), 2)
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 1}, v)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := ResolveQueryVector(ctx, QueryByEmbedding([]float32{1, 0, 0}, 1), noEmbedder(), 2)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("empty collection accepts any dimension", func(t *testing.T) {
		_, err := ResolveQueryVector(ctx, QueryByEmbedding([]float32{1, 0, 0}, 1), noEmbedder(), 0)
		assert.NoError(t, err)
	})

	t.Run("neither text nor embedding", func(t *testing.T) {
		_, err := ResolveQueryVector(ctx, Query{K: 1}, noEmbedder(), 0)
		assert.True(t, errors.Is(err, ErrValidation))
	})
}
