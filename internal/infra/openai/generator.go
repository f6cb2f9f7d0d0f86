package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/minirag/internal/core/llm"
)

// Generator は Chat Completions API で回答を生成する
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
		model:  client.provider.DefaultGenerationModel(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ModelName はモデル名を返す
func (g *Generator) ModelName() string {
	return g.model
}

// Generate はプロンプトを単一のユーザーメッセージとして送り、回答を返す
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.client.timeout)
	defer cancel()

	completion, err := g.client.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", g.client.wrapError("generate", err)
	}

	if len(completion.Choices) == 0 {
		return "", llm.NewProviderError(string(g.client.provider), "generate",
			fmt.Errorf("%w: no completion choices returned", llm.ErrRemote))
	}

	return completion.Choices[0].Message.Content, nil
}

// インターフェース実装の確認
var _ llm.Generator = (*Generator)(nil)
