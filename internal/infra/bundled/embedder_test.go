package bundled

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbedder_DeterministicUnitVectors(t *testing.T) {
	e, err := NewEmbedder(WithPlatform("linux", "amd64"))
	require.NoError(t, err)

	ctx := context.Background()
	a, err := e.Embed(ctx, "This is a document about pineapple")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "This is a document about pineapple")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimension)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.Equal(t, "minirag-hash-384", e.ModelName())
	assert.Equal(t, DefaultDimension, e.Dimension())
}

func TestEmbedder_SimilarTextsAreCloser(t *testing.T) {
	e, err := NewEmbedder(WithDimension(256), WithPlatform("linux", "amd64"))
	require.NoError(t, err)

	vectors, err := e.BatchEmbed(context.Background(), []string{
		"Escondido was settled by farmers growing citrus",
		"Who settled Escondido?",
		"Store trash bins in the garage",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	near := vectorstore.CosineDistance(vectors[1], vectors[0])
	far := vectorstore.CosineDistance(vectors[1], vectors[2])
	assert.Less(t, near, far)
}

func TestEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e, err := NewEmbedder(WithDimension(8), WithPlatform("linux", "amd64"))
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "the a is")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestEmbedder_CanceledContext(t *testing.T) {
	e, err := NewEmbedder(WithPlatform("linux", "amd64"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.BatchEmbed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEmbedder_InvalidDimension(t *testing.T) {
	_, err := NewEmbedder(WithDimension(0))
	assert.Error(t, err)
}

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		name      string
		requested Backend
		goos      string
		goarch    string
		want      Backend
		wantErr   error
	}{
		{name: "auto on linux", requested: BackendAuto, goos: "linux", goarch: "amd64", want: BackendDefault},
		{name: "auto on apple silicon", requested: BackendAuto, goos: "darwin", goarch: "arm64", want: BackendDefault},
		{name: "auto on intel mac", requested: BackendAuto, goos: "darwin", goarch: "amd64", want: BackendCPU},
		{name: "cpu anywhere", requested: BackendCPU, goos: "linux", goarch: "arm64", want: BackendCPU},
		{name: "default on intel mac", requested: BackendDefault, goos: "darwin", goarch: "amd64", wantErr: llm.ErrUnsupportedPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectBackend(tt.requested, tt.goos, tt.goarch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewEmbedder_BackendsProduceSameVectors(t *testing.T) {
	def, err := NewEmbedder(WithBackend(BackendDefault), WithPlatform("linux", "amd64"))
	require.NoError(t, err)
	cpu, err := NewEmbedder(WithBackend(BackendAuto), WithPlatform("darwin", "amd64"))
	require.NoError(t, err)
	assert.Equal(t, BackendCPU, cpu.Backend())

	a, err := def.Embed(context.Background(), "oranges")
	require.NoError(t, err)
	b, err := cpu.Embed(context.Background(), "oranges")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = NewEmbedder(WithBackend(BackendDefault), WithPlatform("darwin", "amd64"))
	assert.ErrorIs(t, err, llm.ErrUnsupportedPlatform)
}

// peakConcurrency は BatchEmbed 中に同時に実行された vectorize の最大数を返す
func peakConcurrency(t *testing.T, e *Embedder, texts []string) int {
	t.Helper()

	var inFlight, peak atomic.Int32
	e.onVectorize = func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	}
	t.Cleanup(func() { e.onVectorize = nil })

	vecs, err := e.BatchEmbed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	return int(peak.Load())
}

func TestEmbedder_BackendControlsBatchExecution(t *testing.T) {
	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("passage number %d about citrus groves", i)
	}

	def, err := NewEmbedder(WithBackend(BackendDefault), WithWorkers(4), WithPlatform("linux", "amd64"))
	require.NoError(t, err)
	assert.Equal(t, 4, def.Workers())

	cpu, err := NewEmbedder(WithBackend(BackendAuto), WithWorkers(4), WithPlatform("darwin", "amd64"))
	require.NoError(t, err)
	assert.Equal(t, BackendCPU, cpu.Backend())
	assert.Equal(t, 1, cpu.Workers())

	assert.Greater(t, peakConcurrency(t, def, texts), 1)
	assert.Equal(t, 1, peakConcurrency(t, cpu, texts))

	// 実行方法が違っても結果は同じ
	a, err := def.BatchEmbed(context.Background(), texts)
	require.NoError(t, err)
	b, err := cpu.BatchEmbed(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewEmbedder_DefaultWorkers(t *testing.T) {
	e, err := NewEmbedder(WithBackend(BackendDefault), WithPlatform("linux", "amd64"))
	require.NoError(t, err)
	assert.Equal(t, runtime.GOMAXPROCS(0), e.Workers())
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendAuto, b)

	b, err = ParseBackend("cpu")
	require.NoError(t, err)
	assert.Equal(t, BackendCPU, b)

	_, err = ParseBackend("gpu")
	assert.Error(t, err)
}
