package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
	"github.com/jinford/minirag/internal/platform/database"
)

// Collection は postgres ストアのコレクションハンドル
type Collection struct {
	store    *Store
	name     string
	embedder mo.Option[llm.Embedder]
}

var _ vectorstore.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.name }

// Add はドキュメントを1トランザクションで追加する
func (c *Collection) Add(ctx context.Context, docs []vectorstore.Document) error {
	dimension, err := collectionDimension(ctx, c.store.db.Pool, c.name, false)
	if err != nil {
		return err
	}

	// Embedding生成はトランザクション外で行う
	prepared, dim, err := vectorstore.PrepareDocuments(ctx, docs, c.embedder, dimension)
	if err != nil {
		return err
	}

	_, err = database.Transact(ctx, c.store.txp, func(tx pgx.Tx) (struct{}, error) {
		current, err := collectionDimension(ctx, tx, c.name, true)
		if err != nil {
			return struct{}{}, err
		}
		if current != 0 && current != dim {
			return struct{}{}, fmt.Errorf("%w: collection has %d dimensions, got %d", vectorstore.ErrDimensionMismatch, current, dim)
		}

		ids := make([]string, len(prepared))
		for i, d := range prepared {
			ids[i] = d.ID
		}
		var existing string
		err = tx.QueryRow(ctx,
			`SELECT id FROM rag_documents WHERE collection = $1 AND id = ANY($2) LIMIT 1`,
			c.name, ids,
		).Scan(&existing)
		if err == nil {
			return struct{}{}, fmt.Errorf("%w: id %q already exists in %s", vectorstore.ErrValidation, existing, c.name)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return struct{}{}, fmt.Errorf("failed to check document ids: %w", err)
		}

		batch := &pgx.Batch{}
		for _, d := range prepared {
			batch.Queue(
				`INSERT INTO rag_documents (collection, id, content, embedding) VALUES ($1, $2, $3, $4::vector)`,
				c.name, d.ID, d.Text, pgvector.NewVector(d.Embedding),
			)
		}
		if current == 0 {
			batch.Queue(`UPDATE rag_collections SET dimension = $1 WHERE name = $2`, dim, c.name)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return struct{}{}, fmt.Errorf("failed to insert documents: %w", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	c.store.logger.Debug("documents added", "collection", c.name, "count", len(prepared))
	return nil
}

// Query は pgvector のコサイン距離演算子で近い順に返す
func (c *Collection) Query(ctx context.Context, q vectorstore.Query) (*vectorstore.QueryResult, error) {
	dimension, err := collectionDimension(ctx, c.store.db.Pool, c.name, false)
	if err != nil {
		return nil, err
	}

	vector, err := vectorstore.ResolveQueryVector(ctx, q, c.embedder, dimension)
	if err != nil {
		return nil, err
	}
	if dimension == 0 {
		// 空のコレクション
		return &vectorstore.QueryResult{}, nil
	}

	rows, err := c.store.db.Pool.Query(ctx, `
		SELECT id, content, embedding, embedding <=> $2::vector AS distance
		FROM rag_documents
		WHERE collection = $1
		ORDER BY distance, seq
		LIMIT $3`,
		c.name, pgvector.NewVector(vector), q.K,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows, true)
	if err != nil {
		return nil, err
	}
	return &vectorstore.QueryResult{Documents: docs}, nil
}

// Peek は挿入順に最大limit件を返す
func (c *Collection) Peek(ctx context.Context, limit int) ([]vectorstore.Document, error) {
	if limit < 0 {
		count, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		limit = count
	}

	rows, err := c.store.db.Pool.Query(ctx, `
		SELECT id, content, embedding
		FROM rag_documents
		WHERE collection = $1
		ORDER BY seq
		LIMIT $2`,
		c.name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to peek documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows, false)
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int64
	if err := c.store.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rag_documents WHERE collection = $1`, c.name,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

func scanDocuments(rows pgx.Rows, withDistance bool) ([]vectorstore.Document, error) {
	var docs []vectorstore.Document
	for rows.Next() {
		var d vectorstore.Document
		var embedding pgvector.Vector

		dest := []any{&d.ID, &d.Text, &embedding}
		if withDistance {
			dest = append(dest, &d.Distance)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Embedding = embedding.Slice()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}
