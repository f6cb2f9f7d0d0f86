package config

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPreset は存在しないプリセット名が指定された場合のエラー
var ErrUnknownPreset = errors.New("unknown preset")

// Preset は名前付きのパイプライン構成
type Preset struct {
	Name        string
	Description string
	Settings    Settings
}

const (
	escondidoPath = "data/escondido.txt"
	hoaPDFPath    = "data/hoa_canopy_grove.pdf"
	persistName   = "5_gemini"
	escondidoQ    = DefaultPersistentQuestion
)

// DefaultPersistentQuestion は永続コレクションに質問する際の既定の質問文
const DefaultPersistentQuestion = "Who settled Escondido?"

var presets = map[string]Preset{
	"builtin-inline": {
		Description: "インラインコーパスを組み込みEmbedder付きのメモリストアで検索",
		Settings:    DefaultSettings(),
	},
	"ollama-inline": {
		Description: "インラインコーパスをOllamaでEmbeddingして検索",
		Settings: with(func(s *Settings) {
			s.Embedder = "ollama"
			s.BindEmbedder = false
			s.Question = "This is a query about spikey hawaiian fruit"
		}),
	},
	"builtin-file-ollama": {
		Description: "テキストファイルをチャンク化して検索し、Ollamaで回答",
		Settings: with(func(s *Settings) {
			s.Corpus = "file"
			s.Path = escondidoPath
			s.Chunk = true
			s.Generator = "ollama"
			s.K = 4
			s.Question = escondidoQ
		}),
	},
	"cloud-inline": {
		Description: "インラインコーパスをクラウドAPIでEmbeddingして検索",
		Settings: with(func(s *Settings) {
			s.Embedder = "cloud"
			s.BindEmbedder = false
			s.Question = "This is a query about popular florida orchard"
		}),
	},
	"cloud-file-persist": {
		Description: "テキストファイルを永続コレクションに登録し、クラウドAPIで回答",
		Settings: with(func(s *Settings) {
			s.Corpus = "file"
			s.Path = escondidoPath
			s.Chunk = true
			s.Embedder = "cloud"
			s.BindEmbedder = false
			s.Generator = "cloud"
			s.Store = "postgres"
			s.Collection = persistName
			s.IDScheme = "uuid"
			s.K = 4
			s.Question = escondidoQ
		}),
	},
	"cloud-query-persist": {
		Description: "既存の永続コレクションに接続し、クラウドAPIで回答",
		Settings: with(func(s *Settings) {
			s.Mode = "attach"
			s.Embedder = "cloud"
			s.BindEmbedder = false
			s.Generator = "cloud"
			s.Store = "postgres"
			s.Collection = persistName
			s.K = 4
			s.Question = escondidoQ
		}),
	},
	"builtin-pdf-ollama": {
		Description: "PDFをチャンク化して組み込みEmbedderで検索し、Ollamaで回答",
		Settings: with(func(s *Settings) {
			s.Corpus = "pdf"
			s.Path = hoaPDFPath
			s.Chunk = true
			s.Generator = "ollama"
			s.K = 4
			s.Question = "Where should I store my trash and recycle bins?"
		}),
	},
}

func with(fn func(*Settings)) Settings {
	s := DefaultSettings()
	fn(&s)
	return s
}

// LookupPreset は名前からプリセットを返す
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	p.Name = name
	return p, nil
}

// Presets は全プリセットを名前順に返す
func Presets() []Preset {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Preset, 0, len(names))
	for _, name := range names {
		p, _ := LookupPreset(name)
		out = append(out, p)
	}
	return out
}
