package vectorstore

import (
	"math"
	"sort"
)

// CosineDistance は 1 - コサイン類似度 を返す。どちらかがゼロベクトルの場合は1
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Nearest は挿入順に並んだdocsからqueryに近い順に最大k件を返す
// 距離が同じ場合は挿入順を保つ
func Nearest(docs []Document, query []float32, k int) []Document {
	ranked := make([]Document, len(docs))
	for i, d := range docs {
		ranked[i] = d
		ranked[i].Distance = CosineDistance(query, d.Embedding)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
