package vectorstore

import "github.com/samber/mo"

// Document はコレクションに格納される1件のドキュメント
type Document struct {
	ID        string
	Text      string
	Embedding []float32

	// Distance は検索結果でのみ設定される（小さいほど近い）
	Distance float64
}

// Query は近傍検索の条件
// Text と Embedding のどちらか一方を指定する。Text はコレクションにEmbedderが紐付いている場合のみ使える
type Query struct {
	Text      mo.Option[string]
	Embedding mo.Option[[]float32]
	K         int
}

// QueryByText はテキストで検索するQueryを作成する
func QueryByText(text string, k int) Query {
	return Query{
		Text:      mo.Some(text),
		Embedding: mo.None[[]float32](),
		K:         k,
	}
}

// QueryByEmbedding はベクトルで検索するQueryを作成する
func QueryByEmbedding(embedding []float32, k int) Query {
	return Query{
		Text:      mo.None[string](),
		Embedding: mo.Some(embedding),
		K:         k,
	}
}

// QueryResult は近い順に並んだ検索結果
type QueryResult struct {
	Documents []Document
}

// IDs は結果のID一覧を返す
func (r *QueryResult) IDs() []string {
	ids := make([]string, len(r.Documents))
	for i, d := range r.Documents {
		ids[i] = d.ID
	}
	return ids
}

// Texts は結果のテキスト一覧を返す
func (r *QueryResult) Texts() []string {
	texts := make([]string, len(r.Documents))
	for i, d := range r.Documents {
		texts[i] = d.Text
	}
	return texts
}
