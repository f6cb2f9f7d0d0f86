package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/chunk"
	"github.com/jinford/minirag/internal/core/corpus"
	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/pipeline"
	"github.com/jinford/minirag/internal/core/vectorstore"
	"github.com/jinford/minirag/internal/infra/bundled"
	"github.com/jinford/minirag/internal/infra/memory"
	"github.com/jinford/minirag/internal/infra/ollama"
	"github.com/jinford/minirag/internal/infra/openai"
	"github.com/jinford/minirag/internal/infra/pdf"
	"github.com/jinford/minirag/internal/infra/postgres"
	"github.com/jinford/minirag/internal/infra/sqlite"
	"github.com/jinford/minirag/internal/platform/config"
	"github.com/jinford/minirag/internal/platform/database"
	"github.com/jinford/minirag/internal/platform/metrics"
)

// ServiceContainer は設定から組み立てたパイプラインの依存関係を保持する
type ServiceContainer struct {
	Source    corpus.Source // ModeAttach では nil
	Splitter  *chunk.Splitter
	Embedder  llm.Embedder
	Generator mo.Option[llm.Generator]
	Store     vectorstore.Store

	settings config.Settings
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type containerOptions struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	embedder    llm.Embedder
	generator   llm.Generator
	store       vectorstore.Store
	tokenLength chunk.LengthFunc
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerMetrics はプロバイダ呼び出しを計測する
func WithContainerMetrics(m *metrics.Metrics) ContainerOption {
	return func(opts *containerOptions) {
		opts.metrics = m
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder llm.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerGenerator はカスタム Generator を注入する
func WithContainerGenerator(generator llm.Generator) ContainerOption {
	return func(opts *containerOptions) {
		opts.generator = generator
	}
}

// WithContainerStore はカスタム Store を注入する
func WithContainerStore(store vectorstore.Store) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// WithContainerTokenLength はトークン数で測る長さ関数を差し替える
func WithContainerTokenLength(fn chunk.LengthFunc) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenLength = fn
	}
}

// NewContainer は設定からコンテナを生成する。
// コーパスファイル、Embedder、Generator、ストアの順に用意するので、
// ファイルの不在やAPIキー未設定はストアに接続する前に失敗する。
func NewContainer(ctx context.Context, cfg *config.Config, s config.Settings, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	c := &ServiceContainer{
		Generator: mo.None[llm.Generator](),
		settings:  s,
		logger:    options.logger,
		metrics:   options.metrics,
	}

	if s.Mode != pipeline.ModeAttach.String() {
		source, err := NewSource(s.Corpus, s.Path, options.logger)
		if err != nil {
			return nil, err
		}
		c.Source = source

		if s.Chunk {
			splitter, err := newSplitter(s, options.tokenLength)
			if err != nil {
				return nil, err
			}
			c.Splitter = splitter
		}
	}

	// Embedder
	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = newEmbedder(cfg, s, options.logger)
		if err != nil {
			return nil, fmt.Errorf("Embedderの初期化に失敗しました: %w", err)
		}
	}
	if c.metrics != nil {
		embedder = c.metrics.InstrumentEmbedder(s.Embedder, embedder)
	}
	c.Embedder = embedder

	// Generator
	generator := options.generator
	if generator == nil && s.Generator != "none" {
		var err error
		generator, err = newGenerator(cfg, s)
		if err != nil {
			return nil, fmt.Errorf("Generatorの初期化に失敗しました: %w", err)
		}
	}
	if generator != nil {
		if c.metrics != nil {
			generator = c.metrics.InstrumentGenerator(s.Generator, generator)
		}
		c.Generator = mo.Some(generator)
	}

	// Vector Store
	store := options.store
	if store == nil {
		var err error
		store, err = NewStore(ctx, cfg, s.Store, options.logger)
		if err != nil {
			return nil, fmt.Errorf("ストアの初期化に失敗しました: %w", err)
		}
	}
	c.Store = store

	c.logger.Debug("container ready",
		"corpus", s.Corpus,
		"embedder", c.Embedder.ModelName(),
		"generator", s.Generator,
		"store", c.Store.Kind(),
	)
	return c, nil
}

// NewSource はコーパス種別からソースを作成する
// ファイルを使う種別では、この時点で存在を確認する
func NewSource(kind, path string, logger *slog.Logger) (corpus.Source, error) {
	switch kind {
	case "inline":
		return corpus.DefaultInline(), nil
	case "file", "pdf":
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: corpus file %s: %w", corpus.ErrIO, path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: corpus path %s is a directory", corpus.ErrIO, path)
		}
		if kind == "pdf" {
			return pdf.NewSource(path, pdf.WithLogger(logger)), nil
		}
		return corpus.NewTextFile(path), nil
	default:
		return nil, fmt.Errorf("unknown corpus kind %q", kind)
	}
}

func newSplitter(s config.Settings, tokenLength chunk.LengthFunc) (*chunk.Splitter, error) {
	var opts []chunk.Option
	if s.TokenChunks {
		if tokenLength == nil {
			var err error
			tokenLength, err = chunk.NewTokenLength(chunk.DefaultEncoding)
			if err != nil {
				return nil, err
			}
		}
		opts = append(opts, chunk.WithLengthFunc(tokenLength))
	}
	return chunk.NewSplitter(s.ChunkSize, s.ChunkOverlap, opts...)
}

func newEmbedder(cfg *config.Config, s config.Settings, logger *slog.Logger) (llm.Embedder, error) {
	switch s.Embedder {
	case "bundled":
		backend, err := bundled.ParseBackend(cfg.Bundled.Backend)
		if err != nil {
			return nil, err
		}
		return bundled.NewEmbedder(
			bundled.WithDimension(cfg.Bundled.Dimension),
			bundled.WithBackend(backend),
			bundled.WithLogger(logger),
		)
	case "ollama":
		client, err := ollama.NewClient(cfg.Ollama.Host, nil)
		if err != nil {
			return nil, err
		}
		return ollama.NewEmbedder(client,
			ollama.WithEmbeddingModel(cfg.Ollama.EmbeddingModel),
			ollama.WithEmbeddingModel(s.EmbeddingModel),
		), nil
	case "cloud":
		client, err := newCloudClient(cfg)
		if err != nil {
			return nil, err
		}
		return openai.NewEmbedder(client,
			openai.WithEmbeddingModel(cfg.Cloud.EmbeddingModel),
			openai.WithEmbeddingModel(s.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.Cloud.EmbeddingDimension),
		), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", s.Embedder)
	}
}

func newGenerator(cfg *config.Config, s config.Settings) (llm.Generator, error) {
	switch s.Generator {
	case "ollama":
		client, err := ollama.NewClient(cfg.Ollama.Host, nil)
		if err != nil {
			return nil, err
		}
		return ollama.NewGenerator(client,
			ollama.WithGenerationModel(cfg.Ollama.GenerationModel),
			ollama.WithGenerationModel(s.GenerationModel),
		), nil
	case "cloud":
		client, err := newCloudClient(cfg)
		if err != nil {
			return nil, err
		}
		return openai.NewGenerator(client,
			openai.WithGenerationModel(cfg.Cloud.GenerationModel),
			openai.WithGenerationModel(s.GenerationModel),
		), nil
	default:
		return nil, fmt.Errorf("unknown generator %q", s.Generator)
	}
}

func newCloudClient(cfg *config.Config) (*openai.Client, error) {
	provider, err := openai.ParseProvider(cfg.Cloud.Provider)
	if err != nil {
		return nil, err
	}

	opts := []openai.ClientOption{openai.WithTimeout(cfg.Cloud.Timeout)}
	if cfg.Cloud.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Cloud.BaseURL))
	}
	return openai.NewClient(provider, cfg.Cloud.APIKey, opts...)
}

// NewStore は種別に応じたベクトルストアを開く
func NewStore(ctx context.Context, cfg *config.Config, kind string, logger *slog.Logger) (vectorstore.Store, error) {
	switch kind {
	case "memory":
		return memory.NewStore(), nil
	case "postgres":
		return postgres.Open(ctx, database.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: int32(cfg.Database.MaxConns),
		}, postgres.WithLogger(logger))
	case "sqlite":
		return sqlite.Open(ctx, cfg.SQLite.Path, sqlite.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

// DriverConfig は設定からパイプラインの設定を作る
func (c *ServiceContainer) DriverConfig() (pipeline.Config, error) {
	s := c.settings

	mode, err := pipeline.ParseMode(s.Mode)
	if err != nil {
		return pipeline.Config{}, err
	}
	idScheme, err := pipeline.ParseIDScheme(s.IDScheme)
	if err != nil {
		return pipeline.Config{}, err
	}
	template, err := pipeline.NewPromptTemplate(s.PromptTemplate)
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.DefaultConfig()
	cfg.Mode = mode
	cfg.Collection = s.Collection
	cfg.K = s.K
	cfg.BindEmbedder = s.BindEmbedder
	cfg.IDScheme = idScheme
	cfg.Template = template
	return cfg, nil
}

// Settings はコンテナを組み立てた設定を返す
func (c *ServiceContainer) Settings() config.Settings {
	return c.settings
}

// Dependencies はパイプラインの依存関係を返す
func (c *ServiceContainer) Dependencies(input pipeline.InputSource, printer pipeline.Printer) pipeline.Dependencies {
	return pipeline.Dependencies{
		Source:    c.Source,
		Splitter:  c.Splitter,
		Embedder:  c.Embedder,
		Store:     c.Store,
		Generator: c.Generator,
		Input:     input,
		Printer:   printer,
	}
}

// Metrics は計測が有効なら Metrics を返す
func (c *ServiceContainer) Metrics() mo.Option[*metrics.Metrics] {
	if c.metrics == nil {
		return mo.None[*metrics.Metrics]()
	}
	return mo.Some(c.metrics)
}

// Close はコンテナが保持するリソースを解放する
func (c *ServiceContainer) Close() {
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.logger.Warn("failed to close store", "error", err)
		}
	}
}

// Logger はコンテナのロガーを返す
func (c *ServiceContainer) Logger() *slog.Logger {
	return c.logger
}
