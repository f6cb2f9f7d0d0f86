package corpus

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrIO はコーパスファイルが存在しない・読めない場合のエラー
	ErrIO = errors.New("corpus io error")

	// ErrBinaryContent はテキストとして扱えないファイルの場合のエラー
	ErrBinaryContent = errors.New("corpus file is not text")
)

// Passage はIDとテキストの組を表す
type Passage struct {
	ID   string
	Text string
}

// Source はコーパスの取得元を表すインターフェース
// インライン文字列、テキストファイル、PDFなどを同じ形で扱うための拡張ポイント
type Source interface {
	// Kind はソース種別を返す（"inline", "file", "pdf"）
	Kind() string

	// Load はパッセージ一覧を読み込む
	Load(ctx context.Context) ([]Passage, error)
}

// InlineSource は呼び出し側で宣言された固定パッセージを返す
type InlineSource struct {
	passages []Passage
}

// Inline は新しいInlineSourceを作成する
func Inline(passages ...Passage) *InlineSource {
	return &InlineSource{passages: passages}
}

// DefaultInline はインラインモードの既定コーパスを返す
func DefaultInline() *InlineSource {
	return Inline(
		Passage{ID: "id-pineapple", Text: "This is a document about pineapple"},
		Passage{ID: "id-oranges", Text: "This is a document about oranges"},
	)
}

func (s *InlineSource) Kind() string { return "inline" }

// Load はI/Oを伴わないため失敗しない
func (s *InlineSource) Load(ctx context.Context) ([]Passage, error) {
	out := make([]Passage, len(s.passages))
	copy(out, s.passages)
	return out, nil
}

// Preview は連結したテキストの先頭n文字を返す
func Preview(passages []Passage, n int) string {
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	runes := []rune(sb.String())
	if n < 0 || len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
