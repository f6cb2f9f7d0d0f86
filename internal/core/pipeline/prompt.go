package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jinford/minirag/internal/core/vectorstore"
)

// DefaultPromptTemplate は検索結果だけを根拠に答えさせるテンプレート
const DefaultPromptTemplate = `Answer the question based only on the following context:

{context}

---

Answer the question based on the above context: {question}
`

const (
	contextPlaceholder  = "{context}"
	questionPlaceholder = "{question}"
)

// ErrInvalidTemplate はテンプレートにプレースホルダがない場合のエラー
var ErrInvalidTemplate = errors.New("invalid prompt template")

// PromptTemplate は {context} と {question} を置換するテンプレート
type PromptTemplate struct {
	text string
}

// NewPromptTemplate はテンプレートを検証して作成する。空文字列なら既定のテンプレート
func NewPromptTemplate(text string) (PromptTemplate, error) {
	if text == "" {
		text = DefaultPromptTemplate
	}
	for _, p := range []string{contextPlaceholder, questionPlaceholder} {
		if !strings.Contains(text, p) {
			return PromptTemplate{}, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, p)
		}
	}
	return PromptTemplate{text: text}, nil
}

// Format は検索結果のテキストを空行区切りで連結してcontextに埋め込む
func (t PromptTemplate) Format(question string, docs []vectorstore.Document) string {
	text := t.text
	if text == "" {
		text = DefaultPromptTemplate
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	r := strings.NewReplacer(
		contextPlaceholder, strings.Join(texts, "\n\n"),
		questionPlaceholder, question,
	)
	return r.Replace(text)
}
