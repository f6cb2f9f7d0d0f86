package vectorstore

import (
	"context"

	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/llm"
)

// Store は名前付きコレクションを管理するベクトルストア
type Store interface {
	// Kind はストア種別を返す（"memory", "postgres", "sqlite"）
	Kind() string

	// CreateCollection はコレクションを作成する
	// embedder を指定すると、コレクションがテキストのEmbeddingを自前で行う
	CreateCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (Collection, error)

	// GetCollection は既存のコレクションを取得する
	GetCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (Collection, error)

	// Close はストアが保持するリソースを解放する
	Close() error
}

// Collection はドキュメントの集合とその近傍検索
type Collection interface {
	Name() string

	// Add はドキュメントを追加する
	// Embedding を省略した場合は紐付いたEmbedderでテキストから生成する
	Add(ctx context.Context, docs []Document) error

	// Query は近い順に最大K件を返す
	Query(ctx context.Context, q Query) (*QueryResult, error)

	// Peek は挿入順に最大limit件を返す
	Peek(ctx context.Context, limit int) ([]Document, error)

	// Count は格納件数を返す
	Count(ctx context.Context) (int, error)
}
