package ollama

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

// Embedder は Ollama の /api/embed でEmbeddingを生成する
type Embedder struct {
	client    *Client
	model     string
	dimension int
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*Embedder)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(e *Embedder) {
		if model != "" {
			e.model = model
		}
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(client *Client, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		client: client,
		model:  DefaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ llm.Embedder = (*Embedder)(nil)

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// BatchEmbed は入力順に Embedding を生成する
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts provided", vectorstore.ErrValidation)
	}

	resp, err := e.client.api.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, wrapError("embed", e.model, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, llm.NewProviderError(providerName, "embed",
			fmt.Errorf("%w: got %d embeddings for %d inputs", llm.ErrRemote, len(resp.Embeddings), len(texts)))
	}

	if e.dimension == 0 {
		e.dimension = len(resp.Embeddings[0])
	}
	return resp.Embeddings, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension は最初の応答で判明した次元数を返す（それまでは0）
func (e *Embedder) Dimension() int {
	return e.dimension
}
