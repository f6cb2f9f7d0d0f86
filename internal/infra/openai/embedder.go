package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

// Embedder は OpenAI 互換 API を使用してテキストをベクトルに変換する
type Embedder struct {
	client    *Client
	model     string
	requested int // APIに要求する次元数（0ならモデル既定）
	dimension int
}

type embedderOptions struct {
	model     string
	dimension int
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithEmbeddingDimension はベクトル次元を指定する（0ならモデル既定）
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(client *Client, opts ...EmbedderOption) *Embedder {
	options := embedderOptions{
		model: client.provider.DefaultEmbeddingModel(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Embedder{
		client:    client,
		model:     options.model,
		requested: options.dimension,
		dimension: options.dimension,
	}
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return embeddings[0], nil
}

// BatchEmbed は入力順に Embedding を生成する。MaxBatchSize 件ごとにリクエストを分ける
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts provided", vectorstore.ErrValidation)
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}

	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}

	if e.requested > 0 {
		params.Dimensions = openai.Int(int64(e.requested))
	}

	resp, err := e.client.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, e.client.wrapError("embed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, llm.NewProviderError(string(e.client.provider), "embed",
			fmt.Errorf("%w: got %d embeddings for %d inputs", llm.ErrRemote, len(resp.Data), len(texts)))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		embeddings[data.Index] = vector
	}

	if e.dimension == 0 && len(embeddings[0]) > 0 {
		e.dimension = len(embeddings[0])
	}

	return embeddings, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す（モデル既定の場合は最初の応答まで0）
func (e *Embedder) Dimension() int {
	return e.dimension
}

// インターフェース実装の確認
var _ llm.Embedder = (*Embedder)(nil)
