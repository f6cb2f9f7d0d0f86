package metrics

import (
	"context"
	"time"

	"github.com/jinford/minirag/internal/core/llm"
)

type instrumentedEmbedder struct {
	llm.Embedder
	provider string
	metrics  *Metrics
}

// InstrumentEmbedder は呼び出し回数とレイテンシを記録する Embedder を返す
func (m *Metrics) InstrumentEmbedder(provider string, e llm.Embedder) llm.Embedder {
	return &instrumentedEmbedder{Embedder: e, provider: provider, metrics: m}
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := e.Embedder.Embed(ctx, text)
	e.metrics.observe(e.provider, e.ModelName(), "embed", start, err)
	return v, err
}

func (e *instrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	v, err := e.Embedder.BatchEmbed(ctx, texts)
	e.metrics.observe(e.provider, e.ModelName(), "batch_embed", start, err)
	return v, err
}

type instrumentedGenerator struct {
	llm.Generator
	provider string
	metrics  *Metrics
}

// InstrumentGenerator は呼び出し回数とレイテンシを記録する Generator を返す
func (m *Metrics) InstrumentGenerator(provider string, g llm.Generator) llm.Generator {
	return &instrumentedGenerator{Generator: g, provider: provider, metrics: m}
}

func (g *instrumentedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	answer, err := g.Generator.Generate(ctx, prompt)
	g.metrics.observe(g.provider, g.ModelName(), "generate", start, err)
	return answer, err
}
