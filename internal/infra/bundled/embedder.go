package bundled

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/jinford/minirag/internal/core/llm"
)

const (
	// DefaultDimension は組み込みEmbedderの既定次元数
	DefaultDimension = 384

	bigramWeight = 0.5
)

// Embedder は外部サービスを使わずにプロセス内でEmbeddingを計算する
// 単語のユニグラムとバイグラムを符号付きハッシュでバケットに割り当て、L2正規化する
type Embedder struct {
	dimension    int
	requested    Backend
	backend      Backend
	workers      int
	goos, goarch string
	logger       *slog.Logger
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}

	// onVectorize はテストで並列度を観測するためのフック
	onVectorize func()
}

// Option は Embedder のオプション設定
type Option func(*Embedder)

// WithDimension は次元数を設定する
func WithDimension(dim int) Option {
	return func(e *Embedder) {
		e.dimension = dim
	}
}

// WithBackend は実行バックエンドを設定する
func WithBackend(b Backend) Option {
	return func(e *Embedder) {
		e.requested = b
	}
}

// WithWorkers は default バックエンドでバッチを処理する並列数を設定する
// cpu バックエンドでは常に1になる
func WithWorkers(n int) Option {
	return func(e *Embedder) {
		e.workers = n
	}
}

// WithPlatform はバックエンド選択に使うプラットフォームを上書きする
func WithPlatform(goos, goarch string) Option {
	return func(e *Embedder) {
		e.goos = goos
		e.goarch = goarch
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		e.logger = logger
	}
}

// NewEmbedder は新しい組み込みEmbedderを作成する
func NewEmbedder(opts ...Option) (*Embedder, error) {
	e := &Embedder{
		dimension:    DefaultDimension,
		requested:    BackendAuto,
		goos:         runtime.GOOS,
		goarch:       runtime.GOARCH,
		logger:       slog.Default(),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
		stopwords:    defaultStopwords(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dimension <= 0 {
		return nil, fmt.Errorf("bundled embedding dimension must be positive (got %d)", e.dimension)
	}

	backend, err := SelectBackend(e.requested, e.goos, e.goarch)
	if err != nil {
		return nil, err
	}
	e.backend = backend
	switch {
	case backend == BackendCPU:
		e.workers = 1
	case e.workers <= 0:
		e.workers = runtime.GOMAXPROCS(0)
	}
	if backend != e.requested {
		e.logger.Info("bundled embedder backend selected", "requested", e.requested, "backend", backend, "platform", e.goos+"/"+e.goarch)
	}

	return e, nil
}

var _ llm.Embedder = (*Embedder)(nil)

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return fmt.Sprintf("minirag-hash-%d", e.dimension)
}

// Dimension は次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Backend は実際に使われているバックエンドを返す
func (e *Embedder) Backend() Backend {
	return e.backend
}

// Workers はバッチ処理の並列数を返す
func (e *Embedder) Workers() int {
	return e.workers
}

// Embed は単一テキストのEmbeddingを生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vectorize(text), nil
}

// BatchEmbed は入力順にEmbeddingを生成する
// default バックエンドは複数のゴルーチンで並列に、cpu バックエンドは1件ずつ順番に処理する
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.workers <= 1 || len(texts) <= 1 {
		return e.batchSequential(ctx, texts)
	}
	return e.batchParallel(ctx, texts)
}

func (e *Embedder) batchSequential(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vectorize(text)
	}
	return out, nil
}

func (e *Embedder) batchParallel(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = e.vectorize(text)
		}(i, text)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// vectorize はバックエンドに関わらず同じ結果を返す
func (e *Embedder) vectorize(text string) []float32 {
	if e.onVectorize != nil {
		e.onVectorize()
	}
	acc := make([]float64, e.dimension)

	tokens := e.tokenize(text)
	for i, tok := range tokens {
		e.addFeature(acc, tok, 1)
		if i > 0 {
			e.addFeature(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *Embedder) addFeature(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := sum % uint64(len(acc))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "he", "in", "is", "it", "its", "of", "on", "or", "that",
		"the", "this", "to", "was", "were", "will", "with",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
