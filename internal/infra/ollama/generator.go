package ollama

import (
	"context"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/jinford/minirag/internal/core/llm"
)

// Generator は Ollama の /api/generate で回答を生成する
type Generator struct {
	client *Client
	model  string
}

// GeneratorOption は Generator のオプション設定
type GeneratorOption func(*Generator)

// WithGenerationModel はモデル名を上書きする
func WithGenerationModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// NewGenerator は新しい Generator を作成する
func NewGenerator(client *Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client: client,
		model:  DefaultGenerationModel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ llm.Generator = (*Generator)(nil)

// ModelName はモデル名を返す
func (g *Generator) ModelName() string {
	return g.model
}

// Generate はストリーミングなしで回答全体を返す
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	var sb strings.Builder

	err := g.client.api.Generate(ctx, &api.GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", wrapError("generate", g.model, err)
	}

	return sb.String(), nil
}
