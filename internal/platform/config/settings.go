package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jinford/minirag/internal/core/pipeline"
)

// ErrInvalidSettings はパイプライン設定の値が不正な場合のエラー
var ErrInvalidSettings = errors.New("invalid pipeline settings")

// Settings は1回の実行で組み立てるパイプラインの構成
// プリセット、YAMLファイル、コマンドラインフラグの順に上書きされる
type Settings struct {
	Mode            string // "full", "index-only" or "attach"
	Corpus          string // "inline", "file" or "pdf"
	Path            string
	Embedder        string // "bundled", "ollama" or "cloud"
	EmbeddingModel  string // 空なら各プロバイダの既定
	BindEmbedder    bool
	Generator       string // "none", "ollama" or "cloud"
	GenerationModel string // 空なら各プロバイダの既定
	Store           string // "memory", "postgres" or "sqlite"
	Collection      string
	K               int
	Chunk           bool
	ChunkSize       int
	ChunkOverlap    int
	TokenChunks     bool
	IDScheme        string
	Question        string
	PromptTemplate  string
}

// DefaultSettings は何も指定しない場合の構成（組み込みEmbedder + インラインコーパス）
func DefaultSettings() Settings {
	return Settings{
		Mode:         pipeline.ModeFull.String(),
		Corpus:       "inline",
		Embedder:     "bundled",
		BindEmbedder: true,
		Generator:    "none",
		Store:        "memory",
		Collection:   pipeline.DefaultCollection,
		K:            2,
		ChunkSize:    500,
		ChunkOverlap: 100,
		IDScheme:     string(pipeline.IDSequential),
		Question:     "A question about most florida juice",
	}
}

// Persistent は永続ストアを使う構成かどうか
func (s Settings) Persistent() bool {
	return s.Store == "postgres" || s.Store == "sqlite"
}

// Validate は設定値を検証する
func (s Settings) Validate() error {
	if _, err := pipeline.ParseMode(s.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := oneOf("corpus", s.Corpus, "inline", "file", "pdf"); err != nil {
		return err
	}
	if err := oneOf("embedder", s.Embedder, "bundled", "ollama", "cloud"); err != nil {
		return err
	}
	if err := oneOf("generator", s.Generator, "none", "ollama", "cloud"); err != nil {
		return err
	}
	if err := oneOf("store", s.Store, "memory", "postgres", "sqlite"); err != nil {
		return err
	}
	if _, err := pipeline.ParseIDScheme(s.IDScheme); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if s.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidSettings)
	}
	if s.K <= 0 {
		return fmt.Errorf("%w: k must be positive (got %d)", ErrInvalidSettings, s.K)
	}
	if s.Chunk && (s.ChunkSize <= 0 || s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize) {
		return fmt.Errorf("%w: chunk overlap must be in [0, size) (size=%d overlap=%d)", ErrInvalidSettings, s.ChunkSize, s.ChunkOverlap)
	}
	if s.Corpus != "inline" && s.Path == "" && s.Mode != pipeline.ModeAttach.String() {
		return fmt.Errorf("%w: %s corpus requires a path", ErrInvalidSettings, s.Corpus)
	}
	if s.Mode != pipeline.ModeFull.String() && !s.Persistent() {
		return fmt.Errorf("%w: %s mode requires a persistent store", ErrInvalidSettings, s.Mode)
	}
	if _, err := pipeline.NewPromptTemplate(s.PromptTemplate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

func oneOf(name, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: unknown %s %q (%v)", ErrInvalidSettings, name, value, allowed)
}

// PipelineFile は --config で渡すYAMLファイルの内容
// 省略したフィールドは元の値を保つ
type PipelineFile struct {
	Collection     *string `yaml:"collection"`
	K              *int    `yaml:"k"`
	IDScheme       *string `yaml:"id_scheme"`
	Question       *string `yaml:"question"`
	PromptTemplate *string `yaml:"prompt_template"`
	Chunk          struct {
		Enabled *bool   `yaml:"enabled"`
		Size    *int    `yaml:"size"`
		Overlap *int    `yaml:"overlap"`
		Unit    *string `yaml:"unit"` // "chars" or "tokens"
	} `yaml:"chunk"`
}

// LoadPipelineFile はYAMLのパイプライン設定ファイルを読み込みます
func LoadPipelineFile(path string) (*PipelineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	var f PipelineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse pipeline file %s: %w", ErrInvalidSettings, path, err)
	}
	if f.Chunk.Unit != nil && *f.Chunk.Unit != "chars" && *f.Chunk.Unit != "tokens" {
		return nil, fmt.Errorf("%w: unknown chunk unit %q (chars|tokens)", ErrInvalidSettings, *f.Chunk.Unit)
	}
	return &f, nil
}

// Apply はファイルに書かれた値だけを s に上書きする
func (f *PipelineFile) Apply(s *Settings) {
	if f.Collection != nil {
		s.Collection = *f.Collection
	}
	if f.K != nil {
		s.K = *f.K
	}
	if f.IDScheme != nil {
		s.IDScheme = *f.IDScheme
	}
	if f.Question != nil {
		s.Question = *f.Question
	}
	if f.PromptTemplate != nil {
		s.PromptTemplate = *f.PromptTemplate
	}
	if f.Chunk.Enabled != nil {
		s.Chunk = *f.Chunk.Enabled
	}
	if f.Chunk.Size != nil {
		s.ChunkSize = *f.Chunk.Size
	}
	if f.Chunk.Overlap != nil {
		s.ChunkOverlap = *f.Chunk.Overlap
	}
	if f.Chunk.Unit != nil {
		s.TokenChunks = *f.Chunk.Unit == "tokens"
	}
}
