package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

// ErrNoGenerator は生成モデルが設定されていない場合のエラー
var ErrNoGenerator = errors.New("no generator configured")

// AskResult は1つの質問に対する検索・生成の結果
type AskResult struct {
	Question string
	Results  *vectorstore.QueryResult
	Prompt   mo.Option[string]
	Answer   mo.Option[string]
}

// Answerer はコレクションを検索し、必要なら生成モデルで回答する
type Answerer struct {
	collection vectorstore.Collection
	k          int
	embedder   mo.Option[llm.Embedder] // 指定時はクエリを自前でEmbeddingする
	generator  mo.Option[llm.Generator]
	template   PromptTemplate
	logger     *slog.Logger
}

// AnswererOption は Answerer のオプション設定
type AnswererOption func(*Answerer)

// WithQueryEmbedder はクエリのEmbeddingを呼び出し側で行うようにする
// 指定しない場合はコレクションに紐付いたEmbedderでテキスト検索する
func WithQueryEmbedder(embedder llm.Embedder) AnswererOption {
	return func(a *Answerer) {
		a.embedder = mo.Some(embedder)
	}
}

// WithGenerator は生成モデルを設定する
func WithGenerator(generator mo.Option[llm.Generator]) AnswererOption {
	return func(a *Answerer) {
		a.generator = generator
	}
}

// WithTemplate はプロンプトテンプレートを設定する
func WithTemplate(template PromptTemplate) AnswererOption {
	return func(a *Answerer) {
		a.template = template
	}
}

// WithAnswererLogger はロガーを設定する
func WithAnswererLogger(logger *slog.Logger) AnswererOption {
	return func(a *Answerer) {
		a.logger = logger
	}
}

// NewAnswerer は新しい Answerer を作成する
func NewAnswerer(collection vectorstore.Collection, k int, opts ...AnswererOption) *Answerer {
	a := &Answerer{
		collection: collection,
		k:          k,
		embedder:   mo.None[llm.Embedder](),
		generator:  mo.None[llm.Generator](),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// HasGenerator は生成モデルが設定されているかを返す
func (a *Answerer) HasGenerator() bool {
	return a.generator.IsPresent()
}

// BuildQuery は質問から検索条件を作る
func (a *Answerer) BuildQuery(ctx context.Context, question string) (vectorstore.Query, error) {
	if question == "" {
		return vectorstore.Query{}, fmt.Errorf("%w: question is required", vectorstore.ErrValidation)
	}

	embedder, ok := a.embedder.Get()
	if !ok {
		return vectorstore.QueryByText(question, a.k), nil
	}

	vector, err := embedder.Embed(ctx, question)
	if err != nil {
		return vectorstore.Query{}, fmt.Errorf("failed to embed question: %w", err)
	}
	return vectorstore.QueryByEmbedding(vector, a.k), nil
}

// Retrieve はコレクションを検索する
func (a *Answerer) Retrieve(ctx context.Context, q vectorstore.Query) (*vectorstore.QueryResult, error) {
	a.logger.Debug("querying collection", "collection", a.collection.Name(), "k", q.K)

	res, err := a.collection.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	a.logger.Debug("query completed", "results", len(res.Documents))
	return res, nil
}

// FormatPrompt は検索結果と質問からプロンプトを作る
func (a *Answerer) FormatPrompt(question string, res *vectorstore.QueryResult) string {
	return a.template.Format(question, res.Documents)
}

// Generate はプロンプトに対する回答を生成する
func (a *Answerer) Generate(ctx context.Context, prompt string) (string, error) {
	generator, ok := a.generator.Get()
	if !ok {
		return "", ErrNoGenerator
	}

	a.logger.Debug("generating answer", "model", generator.ModelName())
	answer, err := generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}

// Ask は検索から回答生成までを一度に行う。生成モデルがなければ検索結果だけを返す
func (a *Answerer) Ask(ctx context.Context, question string) (*AskResult, error) {
	q, err := a.BuildQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	res, err := a.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &AskResult{
		Question: question,
		Results:  res,
		Prompt:   mo.None[string](),
		Answer:   mo.None[string](),
	}
	if !a.HasGenerator() {
		return result, nil
	}

	prompt := a.FormatPrompt(question, res)
	result.Prompt = mo.Some(prompt)

	answer, err := a.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	result.Answer = mo.Some(answer)
	return result, nil
}
