package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

// Store はプロセス内だけで生きるベクトルストア
// 同じプロセス内での CreateCollection は既存のコレクションをそのまま返す
type Store struct {
	mu          sync.RWMutex
	collections map[string]*data
}

// data はコレクションの中身。ハンドル間で共有される
type data struct {
	mu        sync.RWMutex
	dimension int
	docs      []vectorstore.Document // 挿入順
	ids       map[string]struct{}
}

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{collections: make(map[string]*data)}
}

var _ vectorstore.Store = (*Store)(nil)

func (s *Store) Kind() string { return "memory" }

// CreateCollection はコレクションを作成する。既にあればそれを返す
func (s *Store) CreateCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (vectorstore.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", vectorstore.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.collections[name]
	if !ok {
		d = &data{ids: make(map[string]struct{})}
		s.collections[name] = d
	}
	return &Collection{name: name, data: d, embedder: embedder}, nil
}

// GetCollection はこのプロセスで作成済みのコレクションを返す
func (s *Store) GetCollection(ctx context.Context, name string, embedder mo.Option[llm.Embedder]) (vectorstore.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrNotFound, name)
	}
	return &Collection{name: name, data: d, embedder: embedder}, nil
}

// Close は何もしない
func (s *Store) Close() error {
	return nil
}

// Collection は memory ストアのコレクションハンドル
type Collection struct {
	name     string
	data     *data
	embedder mo.Option[llm.Embedder]
}

var _ vectorstore.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.name }

// Add はドキュメントを追加する。1件でも不正なら何も追加しない
func (c *Collection) Add(ctx context.Context, docs []vectorstore.Document) error {
	c.data.mu.RLock()
	dimension := c.data.dimension
	c.data.mu.RUnlock()

	// Embedding生成はロック外で行う
	prepared, dim, err := vectorstore.PrepareDocuments(ctx, docs, c.embedder, dimension)
	if err != nil {
		return err
	}

	c.data.mu.Lock()
	defer c.data.mu.Unlock()

	if c.data.dimension != 0 && c.data.dimension != dim {
		return fmt.Errorf("%w: collection has %d dimensions, got %d", vectorstore.ErrDimensionMismatch, c.data.dimension, dim)
	}
	for _, d := range prepared {
		if _, ok := c.data.ids[d.ID]; ok {
			return fmt.Errorf("%w: id %q already exists in %s", vectorstore.ErrValidation, d.ID, c.name)
		}
	}

	c.data.dimension = dim
	for _, d := range prepared {
		c.data.ids[d.ID] = struct{}{}
		c.data.docs = append(c.data.docs, d)
	}
	return nil
}

// Query は総当たりのコサイン距離で近い順に返す
func (c *Collection) Query(ctx context.Context, q vectorstore.Query) (*vectorstore.QueryResult, error) {
	c.data.mu.RLock()
	dimension := c.data.dimension
	c.data.mu.RUnlock()

	vector, err := vectorstore.ResolveQueryVector(ctx, q, c.embedder, dimension)
	if err != nil {
		return nil, err
	}

	c.data.mu.RLock()
	defer c.data.mu.RUnlock()

	return &vectorstore.QueryResult{Documents: vectorstore.Nearest(c.data.docs, vector, q.K)}, nil
}

// Peek は挿入順に最大limit件を返す
func (c *Collection) Peek(ctx context.Context, limit int) ([]vectorstore.Document, error) {
	c.data.mu.RLock()
	defer c.data.mu.RUnlock()

	if limit < 0 || limit > len(c.data.docs) {
		limit = len(c.data.docs)
	}
	out := make([]vectorstore.Document, limit)
	copy(out, c.data.docs[:limit])
	return out, nil
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	c.data.mu.RLock()
	defer c.data.mu.RUnlock()
	return len(c.data.docs), nil
}
