package vectorstore

import (
	"context"
	"fmt"

	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/llm"
)

// PrepareDocuments は追加前のドキュメントを検証し、Embeddingを補完したコピーを返す
// dimension はコレクションの既知の次元数（未確定なら0）。戻り値の int は確定した次元数
func PrepareDocuments(ctx context.Context, docs []Document, embedder mo.Option[llm.Embedder], dimension int) ([]Document, int, error) {
	if len(docs) == 0 {
		return nil, 0, fmt.Errorf("%w: no documents to add", ErrValidation)
	}

	seen := make(map[string]struct{}, len(docs))
	withEmbedding := 0
	for i, d := range docs {
		if d.ID == "" {
			return nil, 0, fmt.Errorf("%w: document %d has empty id", ErrValidation, i)
		}
		if _, ok := seen[d.ID]; ok {
			return nil, 0, fmt.Errorf("%w: duplicate id %q", ErrValidation, d.ID)
		}
		seen[d.ID] = struct{}{}
		if len(d.Embedding) > 0 {
			withEmbedding++
		}
	}

	prepared := make([]Document, len(docs))
	copy(prepared, docs)

	switch withEmbedding {
	case len(docs):
	case 0:
		e, ok := embedder.Get()
		if !ok {
			return nil, 0, fmt.Errorf("%w: embeddings are required", ErrConfiguration)
		}
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		vectors, err := e.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vectors) != len(docs) {
			return nil, 0, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
		}
		for i := range prepared {
			prepared[i].Embedding = vectors[i]
		}
	default:
		return nil, 0, fmt.Errorf("%w: %d of %d documents have embeddings", ErrValidation, withEmbedding, len(docs))
	}

	dim := dimension
	for _, d := range prepared {
		if len(d.Embedding) == 0 {
			return nil, 0, fmt.Errorf("%w: document %q has an empty embedding", ErrValidation, d.ID)
		}
		if dim == 0 {
			dim = len(d.Embedding)
		}
		if len(d.Embedding) != dim {
			return nil, 0, fmt.Errorf("%w: document %q has %d dimensions, expected %d", ErrDimensionMismatch, d.ID, len(d.Embedding), dim)
		}
	}

	return prepared, dim, nil
}

// ResolveQueryVector はクエリを検証し、検索に使うベクトルを返す
func ResolveQueryVector(ctx context.Context, q Query, embedder mo.Option[llm.Embedder], dimension int) ([]float32, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive (got %d)", ErrValidation, q.K)
	}

	var vector []float32
	if v, ok := q.Embedding.Get(); ok {
		vector = v
	} else if text, ok := q.Text.Get(); ok {
		e, ok := embedder.Get()
		if !ok {
			return nil, fmt.Errorf("%w: cannot query by text", ErrConfiguration)
		}
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		vector = v
	} else {
		return nil, fmt.Errorf("%w: query needs text or embedding", ErrValidation)
	}

	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", ErrValidation)
	}
	if dimension > 0 && len(vector) != dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", ErrDimensionMismatch, len(vector), dimension)
	}
	return vector, nil
}
