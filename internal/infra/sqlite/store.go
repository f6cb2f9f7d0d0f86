package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/mo"
	_ "modernc.org/sqlite"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

//go:embed schema.sql
var schema string

// Store はローカルファイルに永続化するベクトルストア
// 検索は保存済みベクトルに対する総当たりのコサイン距離で行う
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Option は Store のオプション設定
type Option func(*Store)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open はデータベースファイルを開き、スキーマを作成する
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", vectorstore.ErrValidation)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data directory: %w", vectorstore.ErrUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", vectorstore.ErrUnavailable, err)
	}
	// 書き込みの競合を避けるため接続は1本に絞る
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", vectorstore.ErrUnavailable, err)
	}

	s := &Store{
		db:     db,
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("sqlite store opened", "path", path)
	return s, nil
}

var _ vectorstore.Store = (*Store)(nil)

func (s *Store) Kind() string { return "sqlite" }

// CreateCollection はコレクションを作成する。同名が存在する場合は ErrAlreadyExists
func (s *Store) CreateCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (vectorstore.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", vectorstore.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := collectionExists(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrAlreadyExists, name)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO rag_collections (name) VALUES (?)`, name); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("collection created", "store", s.Kind(), "collection", name)
	return &Collection{store: s, name: name, embedder: embedder}, nil
}

// GetCollection は既存のコレクションを返す
func (s *Store) GetCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (vectorstore.Collection, error) {
	exists, err := collectionExists(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrNotFound, name)
	}
	return &Collection{store: s, name: name, embedder: embedder}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func collectionExists(ctx context.Context, q querier, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM rag_collections WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up collection: %w", err)
	}
	return true, nil
}

func collectionDimension(ctx context.Context, q querier, name string) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, `SELECT dimension FROM rag_collections WHERE name = ?`, name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", vectorstore.ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection dimension: %w", err)
	}
	return dim, nil
}

// Collection は sqlite ストアのコレクションハンドル
type Collection struct {
	store    *Store
	name     string
	embedder mo.Option[llm.Embedder]
}

var _ vectorstore.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.name }

// Add はドキュメントを1トランザクションで追加する
func (c *Collection) Add(ctx context.Context, docs []vectorstore.Document) error {
	dimension, err := collectionDimension(ctx, c.store.db, c.name)
	if err != nil {
		return err
	}

	prepared, dim, err := vectorstore.PrepareDocuments(ctx, docs, c.embedder, dimension)
	if err != nil {
		return err
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := collectionDimension(ctx, tx, c.name)
	if err != nil {
		return err
	}
	if current != 0 && current != dim {
		return fmt.Errorf("%w: collection has %d dimensions, got %d", vectorstore.ErrDimensionMismatch, current, dim)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM rag_documents WHERE collection = ?`, c.name,
	).Scan(&seq); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}

	for _, d := range prepared {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM rag_documents WHERE collection = ? AND id = ?`, c.name, d.ID,
		).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: id %q already exists in %s", vectorstore.ErrValidation, d.ID, c.name)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check document id: %w", err)
		}

		seq++
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rag_documents (collection, id, seq, content, embedding) VALUES (?, ?, ?, ?, ?)`,
			c.name, d.ID, seq, d.Text, encodeEmbedding(d.Embedding),
		); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if current == 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE rag_collections SET dimension = ? WHERE name = ?`, dim, c.name,
		); err != nil {
			return fmt.Errorf("failed to update collection dimension: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query は全ドキュメントを読み出して近い順に返す
func (c *Collection) Query(ctx context.Context, q vectorstore.Query) (*vectorstore.QueryResult, error) {
	dimension, err := collectionDimension(ctx, c.store.db, c.name)
	if err != nil {
		return nil, err
	}

	vector, err := vectorstore.ResolveQueryVector(ctx, q, c.embedder, dimension)
	if err != nil {
		return nil, err
	}

	docs, err := c.list(ctx, -1)
	if err != nil {
		return nil, err
	}
	return &vectorstore.QueryResult{Documents: vectorstore.Nearest(docs, vector, q.K)}, nil
}

// Peek は挿入順に最大limit件を返す
func (c *Collection) Peek(ctx context.Context, limit int) ([]vectorstore.Document, error) {
	return c.list(ctx, limit)
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rag_documents WHERE collection = ?`, c.name,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// list は挿入順にドキュメントを返す。limit が負なら全件
func (c *Collection) list(ctx context.Context, limit int) ([]vectorstore.Document, error) {
	rows, err := c.store.db.QueryContext(ctx,
		`SELECT id, content, embedding FROM rag_documents WHERE collection = ? ORDER BY seq LIMIT ?`,
		c.name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []vectorstore.Document
	for rows.Next() {
		var d vectorstore.Document
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if d.Embedding, err = decodeEmbedding(blob); err != nil {
			return nil, fmt.Errorf("document %q: %w", d.ID, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}
