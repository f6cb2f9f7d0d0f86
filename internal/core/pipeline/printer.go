package pipeline

import (
	"github.com/jinford/minirag/internal/core/corpus"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

// Printer はパイプラインの途中経過と結果を出力する
type Printer interface {
	// CorpusLoaded はコーパス読み込み直後に呼ばれる
	CorpusLoaded(kind string, passages []corpus.Passage)

	// Chunked は分割後のチャンク数を受け取る
	Chunked(count int)

	// CollectionReady はインデックス作成・接続後のコレクションの概要を受け取る
	// peek は count を超えないように切り詰め済み
	CollectionReady(name string, count int, peek []vectorstore.Document)

	// Results は検索結果を受け取る
	Results(question string, result *vectorstore.QueryResult)

	// Prompt は生成モデルに渡すプロンプトを受け取る
	Prompt(prompt string)

	// Answer は生成された回答を受け取る
	Answer(answer string)
}

// NopPrinter は何も出力しない Printer
type NopPrinter struct{}

func (NopPrinter) CorpusLoaded(string, []corpus.Passage) {}
func (NopPrinter) Chunked(int) {}
func (NopPrinter) CollectionReady(string, int, []vectorstore.Document) {}
func (NopPrinter) Results(string, *vectorstore.QueryResult) {}
func (NopPrinter) Prompt(string) {}
func (NopPrinter) Answer(string) {}

var _ Printer = NopPrinter{}

// ClampPeek は peek の件数を count 以下に切り詰める
// ストアによっては Peek が Count より多くを返すことがある
func ClampPeek(peek []vectorstore.Document, count int) []vectorstore.Document {
	if count < 0 {
		count = 0
	}
	if len(peek) > count {
		return peek[:count]
	}
	return peek
}
