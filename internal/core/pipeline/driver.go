package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/minirag/internal/core/chunk"
	"github.com/jinford/minirag/internal/core/corpus"
	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

// ErrInvalidConfig はパイプラインの設定や依存関係が不足している場合のエラー
var ErrInvalidConfig = errors.New("invalid pipeline config")

const (
	// DefaultCollection は既定のコレクション名
	DefaultCollection = "my_collection"
	// DefaultPreviewChars はコーパス読み込み後に表示する文字数
	DefaultPreviewChars = 200
	// DefaultPeekLimit はインデックス後に表示するドキュメント数
	DefaultPeekLimit = 10
)

// Config はパイプライン1回分の設定
type Config struct {
	Mode       Mode
	Collection string
	K          int

	// BindEmbedder が true の場合、Embedderをコレクションに紐付けてテキストのまま追加・検索する
	BindEmbedder bool

	IDScheme  IDScheme
	PeekLimit int
	Template  PromptTemplate
}

// DefaultConfig は既定の設定を返す
func DefaultConfig() Config {
	return Config{
		Mode:       ModeFull,
		Collection: DefaultCollection,
		K:          2,
		IDScheme:   IDSequential,
		PeekLimit:  DefaultPeekLimit,
	}
}

// Dependencies はパイプラインが使うコンポーネント
type Dependencies struct {
	Source    corpus.Source   // ModeAttach では不要
	Splitter  *chunk.Splitter // nil ならチャンク分割しない
	Embedder  llm.Embedder
	Store     vectorstore.Store
	Generator mo.Option[llm.Generator]
	Input     InputSource // ModeIndexOnly では不要
	Printer   Printer
}

// Report は実行結果の集計
type Report struct {
	Collection string
	Mode       Mode
	Indexed    int
	Queries    int
	Answers    int
}

// Driver はコーパス読み込みから回答表示までを状態機械として実行する
type Driver struct {
	cfg      Config
	deps     Dependencies
	logger   *slog.Logger
	observer func(from, to State)
	newID    func() string
	state    State
}

// Option は Driver のオプション設定
type Option func(*Driver)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithStateObserver は状態遷移のたびに呼ばれる関数を設定する
func WithStateObserver(fn func(from, to State)) Option {
	return func(d *Driver) {
		d.observer = fn
	}
}

// WithIDGenerator は uuid 方式で使うID生成関数を差し替える
func WithIDGenerator(fn func() string) Option {
	return func(d *Driver) {
		d.newID = fn
	}
}

// NewDriver は設定と依存関係を検証して Driver を作成する
func NewDriver(cfg Config, deps Dependencies, opts ...Option) (*Driver, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", ErrInvalidConfig)
	}
	if cfg.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive (got %d)", ErrInvalidConfig, cfg.K)
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if cfg.Mode != ModeAttach && deps.Source == nil {
		return nil, fmt.Errorf("%w: corpus source is required", ErrInvalidConfig)
	}
	if cfg.Mode != ModeIndexOnly && deps.Input == nil {
		return nil, fmt.Errorf("%w: input source is required", ErrInvalidConfig)
	}
	if cfg.IDScheme == "" {
		cfg.IDScheme = IDSequential
	}
	if cfg.PeekLimit < 0 {
		cfg.PeekLimit = 0
	}
	if deps.Printer == nil {
		deps.Printer = NopPrinter{}
	}

	d := &Driver{
		cfg:    cfg,
		deps:   deps,
		logger: slog.Default(),
		newID:  uuid.NewString,
		state:  StateInit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// State は現在の状態を返す
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) transition(to State) {
	from := d.state
	d.state = to
	d.logger.Debug("pipeline state", "from", from.String(), "to", to.String())
	if d.observer != nil {
		d.observer(from, to)
	}
}

func (d *Driver) boundEmbedder() mo.Option[llm.Embedder] {
	if d.cfg.BindEmbedder {
		return mo.Some(d.deps.Embedder)
	}
	return mo.None[llm.Embedder]()
}

// Run はパイプラインを最後まで実行する
// エラーはその場で実行を打ち切って返す。再試行はしない
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	d.state = StateInit
	report := &Report{Collection: d.cfg.Collection, Mode: d.cfg.Mode}

	var collection vectorstore.Collection
	var err error
	if d.cfg.Mode == ModeAttach {
		collection, err = d.attach(ctx)
	} else {
		collection, err = d.ingest(ctx, report)
	}
	if err != nil {
		return report, err
	}

	if d.cfg.Mode == ModeIndexOnly {
		d.transition(StateDone)
		return report, nil
	}

	answerer := d.newAnswerer(collection)
	for {
		d.transition(StateAwaitQuery)
		question, ok, err := d.deps.Input.Next(ctx)
		if err != nil {
			return report, err
		}
		if !ok || IsQuit(question) {
			break
		}

		if err := d.answer(ctx, answerer, question, report); err != nil {
			return report, err
		}
	}

	d.transition(StateDone)
	d.logger.Info("pipeline finished",
		"collection", report.Collection,
		"indexed", report.Indexed,
		"queries", report.Queries,
		"answers", report.Answers,
	)
	return report, nil
}

func (d *Driver) ingest(ctx context.Context, report *Report) (vectorstore.Collection, error) {
	d.transition(StateLoadCorpus)
	passages, err := d.deps.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	d.logger.Info("corpus loaded", "kind", d.deps.Source.Kind(), "passages", len(passages))
	d.deps.Printer.CorpusLoaded(d.deps.Source.Kind(), passages)

	if d.deps.Splitter != nil {
		d.transition(StateChunk)
		passages = d.deps.Splitter.SplitPassages(passages)
		d.logger.Info("corpus chunked", "chunks", len(passages))
		d.deps.Printer.Chunked(len(passages))
	}

	d.transition(StateIndex)
	// Embeddingに失敗した場合に空のコレクションを残さないよう、作成より先に計算する
	docs, err := d.buildDocuments(ctx, passages)
	if err != nil {
		return nil, err
	}

	collection, err := d.deps.Store.CreateCollection(ctx, d.cfg.Collection, d.boundEmbedder())
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", d.cfg.Collection, err)
	}
	if len(docs) == 0 {
		d.logger.Warn("corpus is empty, nothing to index", "collection", d.cfg.Collection)
	} else if err := collection.Add(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to add documents to %s: %w", d.cfg.Collection, err)
	}
	report.Indexed = len(docs)
	d.logger.Info("collection indexed", "collection", d.cfg.Collection, "documents", len(docs))

	if err := d.summarize(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// buildDocuments はID方式を適用し、明示的Embeddingの場合はベクトルを付与する
func (d *Driver) buildDocuments(ctx context.Context, passages []corpus.Passage) ([]vectorstore.Document, error) {
	docs := make([]vectorstore.Document, len(passages))
	texts := make([]string, len(passages))
	for i, p := range passages {
		id := p.ID
		if d.cfg.IDScheme == IDUUID {
			id = d.newID()
		}
		docs[i] = vectorstore.Document{ID: id, Text: p.Text}
		texts[i] = p.Text
	}

	if d.cfg.BindEmbedder || len(docs) == 0 {
		return docs, nil
	}

	vectors, err := d.deps.Embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}
	return docs, nil
}

func (d *Driver) attach(ctx context.Context) (vectorstore.Collection, error) {
	collection, err := d.deps.Store.GetCollection(ctx, d.cfg.Collection, d.boundEmbedder())
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", d.cfg.Collection, err)
	}
	d.logger.Info("attached to collection", "store", d.deps.Store.Kind(), "collection", d.cfg.Collection)

	if err := d.summarize(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// summarize は件数と先頭のドキュメントを出力する
func (d *Driver) summarize(ctx context.Context, collection vectorstore.Collection) error {
	count, err := collection.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	peek, err := collection.Peek(ctx, d.cfg.PeekLimit)
	if err != nil {
		return fmt.Errorf("failed to peek documents: %w", err)
	}
	d.deps.Printer.CollectionReady(collection.Name(), count, ClampPeek(peek, count))
	return nil
}

func (d *Driver) newAnswerer(collection vectorstore.Collection) *Answerer {
	opts := []AnswererOption{
		WithGenerator(d.deps.Generator),
		WithTemplate(d.cfg.Template),
		WithAnswererLogger(d.logger),
	}
	if !d.cfg.BindEmbedder {
		opts = append(opts, WithQueryEmbedder(d.deps.Embedder))
	}
	return NewAnswerer(collection, d.cfg.K, opts...)
}

func (d *Driver) answer(ctx context.Context, answerer *Answerer, question string, report *Report) error {
	d.transition(StateEmbedQuery)
	q, err := answerer.BuildQuery(ctx, question)
	if err != nil {
		return err
	}

	d.transition(StateRetrieve)
	res, err := answerer.Retrieve(ctx, q)
	if err != nil {
		return err
	}

	var prompt, answer string
	generated := answerer.HasGenerator()
	if generated {
		d.transition(StateFormatPrompt)
		prompt = answerer.FormatPrompt(question, res)

		d.transition(StateGenerate)
		answer, err = answerer.Generate(ctx, prompt)
		if err != nil {
			return err
		}
	}

	d.transition(StatePrint)
	d.deps.Printer.Results(question, res)
	if generated {
		d.deps.Printer.Prompt(prompt)
		d.deps.Printer.Answer(answer)
		report.Answers++
	}
	report.Queries++
	return nil
}
