package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
}

func TestNearest_OrdersByDistanceAndKeepsTies(t *testing.T) {
	docs := []Document{
		{ID: "far", Embedding: []float32{0, 1}},
		{ID: "tie-1", Embedding: []float32{1, 1}},
		{ID: "near", Embedding: []float32{1, 0}},
		{ID: "tie-2", Embedding: []float32{2, 2}},
	}

	got := Nearest(docs, []float32{1, 0}, 3)

	assert.Equal(t, []string{"near", "tie-1", "tie-2"}, (&QueryResult{Documents: got}).IDs())
	assert.InDelta(t, 0.0, got[0].Distance, 1e-9)
	assert.LessOrEqual(t, got[1].Distance, got[2].Distance)
	// 元のスライスは変更しない
	assert.Zero(t, docs[2].Distance)
}

func TestNearest_KLargerThanCollection(t *testing.T) {
	docs := []Document{{ID: "a", Embedding: []float32{1, 0}}}

	got := Nearest(docs, []float32{1, 0}, 5)
	assert.Len(t, got, 1)
}
