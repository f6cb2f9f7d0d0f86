package llm

import "context"

// Embedder はテキストをベクトル表現に変換するインターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed は複数テキストのEmbeddingを入力順に生成する
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName はモデル名を返す
	ModelName() string

	// Dimension はEmbeddingベクトルの次元数を返す（未確定の場合は0）
	Dimension() int
}

// Generator はプロンプトから回答テキストを生成するインターフェース
type Generator interface {
	// Generate はプロンプトに対する回答を生成する
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName はモデル名を返す
	ModelName() string
}
