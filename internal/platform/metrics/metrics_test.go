package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/pipeline"
)

type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0}, nil
}

func (e *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (e *stubEmbedder) ModelName() string { return "stub-embed" }
func (e *stubEmbedder) Dimension() int    { return 2 }

type stubGenerator struct {
	err error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "ok", g.err
}

func (g *stubGenerator) ModelName() string { return "stub-gen" }

func TestInstrumentEmbedder_CountsSuccessAndFailure(t *testing.T) {
	m := New()
	ctx := context.Background()

	ok := m.InstrumentEmbedder("bundled", &stubEmbedder{})
	_, err := ok.Embed(ctx, "a")
	require.NoError(t, err)
	_, err = ok.BatchEmbed(ctx, []string{"a", "b"})
	require.NoError(t, err)

	failing := m.InstrumentEmbedder("cloud", &stubEmbedder{
		err: llm.NewProviderError("gemini", "embed", llm.ErrAuth),
	})
	_, err = failing.Embed(ctx, "a")
	assert.ErrorIs(t, err, llm.ErrAuth)

	assert.Equal(t, 2, ok.Dimension())
	assert.InDelta(t, 1, testutil.ToFloat64(m.providerRequests.WithLabelValues("bundled", "stub-embed", "embed", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.providerRequests.WithLabelValues("bundled", "stub-embed", "batch_embed", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.providerRequests.WithLabelValues("cloud", "stub-embed", "embed", "auth")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.providerLatency))
}

func TestInstrumentGenerator(t *testing.T) {
	m := New()

	g := m.InstrumentGenerator("ollama", &stubGenerator{err: llm.ErrConnection})
	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, llm.ErrConnection)

	assert.InDelta(t, 1, testutil.ToFloat64(m.providerRequests.WithLabelValues("ollama", "stub-gen", "generate", "connection")), 0)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, "rate_limit", errorStatus(llm.ErrRateLimit))
	assert.Equal(t, "model_not_found", errorStatus(llm.ErrModelNotFound))
	assert.Equal(t, "canceled", errorStatus(context.Canceled))
	assert.Equal(t, "error", errorStatus(errors.New("boom")))
}

func TestObserveTransition(t *testing.T) {
	m := New()

	m.ObserveTransition(pipeline.StateAwaitQuery, pipeline.StateEmbedQuery)
	m.ObserveTransition(pipeline.StateEmbedQuery, pipeline.StateRetrieve)
	m.ObserveTransition(pipeline.StateAwaitQuery, pipeline.StateEmbedQuery)
	m.ObserveTransition(pipeline.StateEmbedQuery, pipeline.StateRetrieve)

	assert.InDelta(t, 2, testutil.ToFloat64(m.retrievals), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.transitions.WithLabelValues("EMBED_QUERY")), 0)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveTransition(pipeline.StateInit, pipeline.StateLoadCorpus)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `minirag_pipeline_transitions_total{state="LOAD_CORPUS"} 1`)
}
