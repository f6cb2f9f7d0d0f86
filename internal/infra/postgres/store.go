package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
	"github.com/jinford/minirag/internal/platform/database"
)

//go:embed schema.sql
var schema string

// Store は PostgreSQL + pgvector 上の永続ベクトルストア
type Store struct {
	db     *database.DB
	txp    *database.TransactionProvider
	logger *slog.Logger
	owned  bool // Close でプールを閉じるか
}

// Option は Store のオプション設定
type Option func(*Store)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open はデータベースに接続してストアを作成する。接続できない場合は ErrUnavailable
func Open(ctx context.Context, params database.ConnectionParams, opts ...Option) (*Store, error) {
	db, err := database.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", vectorstore.ErrUnavailable, params.Host, params.Port, err)
	}

	s, err := NewStore(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewStore は既存の接続からストアを作成し、スキーマを適用する
func NewStore(ctx context.Context, db *database.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		txp:    database.NewTransactionProvider(db.Pool),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

var _ vectorstore.Store = (*Store)(nil)

func (s *Store) Kind() string { return "postgres" }

// CreateCollection はコレクションを作成する。同名が存在する場合は ErrAlreadyExists
func (s *Store) CreateCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (vectorstore.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", vectorstore.ErrValidation)
	}

	tag, err := s.db.Pool.Exec(ctx,
		`INSERT INTO rag_collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrAlreadyExists, name)
	}

	s.logger.Debug("collection created", "store", s.Kind(), "collection", name)
	return &Collection{store: s, name: name, embedder: embedder}, nil
}

// GetCollection は既存のコレクションを返す
func (s *Store) GetCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (vectorstore.Collection, error) {
	if _, err := collectionDimension(ctx, s.db.Pool, name, false); err != nil {
		return nil, err
	}
	return &Collection{store: s, name: name, embedder: embedder}, nil
}

// Close は Open で作成した接続プールを閉じる
func (s *Store) Close() error {
	if s.owned {
		s.db.Close()
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func collectionDimension(ctx context.Context, q rowQuerier, name string, forUpdate bool) (int, error) {
	query := `SELECT dimension FROM rag_collections WHERE name = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var dim int32
	err := q.QueryRow(ctx, query, name).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", vectorstore.ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection: %w", err)
	}
	return int(dim), nil
}
