package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/pipeline"
	"github.com/jinford/minirag/internal/core/vectorstore"
	"github.com/jinford/minirag/internal/platform/config"
	"github.com/jinford/minirag/internal/platform/container"
	"github.com/jinford/minirag/internal/platform/logger"
)

// PeekAction は永続コレクションの件数と先頭のドキュメントを表示するコマンドのアクション
func PeekAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	appLogger := logger.New(logger.Config{Level: level, Format: cfg.Log.Format})

	store, err := container.NewStore(ctx, cfg, cmd.String("store"), appLogger)
	if err != nil {
		return fmt.Errorf("ストアの初期化に失敗しました: %w", err)
	}
	defer store.Close()

	return peekCollection(ctx, store, cmd.String("collection"), int(cmd.Int("limit")), os.Stdout)
}

func peekCollection(ctx context.Context, store vectorstore.Store, name string, limit int, out io.Writer) error {
	collection, err := store.GetCollection(ctx, name, mo.None[llm.Embedder]())
	if err != nil {
		return fmt.Errorf("コレクションの取得に失敗: %w", err)
	}

	count, err := collection.Count(ctx)
	if err != nil {
		return fmt.Errorf("件数の取得に失敗: %w", err)
	}
	peek, err := collection.Peek(ctx, limit)
	if err != nil {
		return fmt.Errorf("ドキュメントの取得に失敗: %w", err)
	}

	NewTablePrinter(out).CollectionReady(collection.Name(), count, pipeline.ClampPeek(peek, count))
	return nil
}

// PresetsAction は組み込みプリセットの一覧を表示するコマンドのアクション
func PresetsAction(ctx context.Context, cmd *cli.Command) error {
	writePresets(os.Stdout)
	return nil
}

func writePresets(out io.Writer) {
	table := tablewriter.NewWriter(out)
	table.Header("Preset", "Corpus", "Embedder", "Generator", "Store", "Description")
	for _, p := range config.Presets() {
		s := p.Settings
		corpus := s.Corpus
		if s.Mode == pipeline.ModeAttach.String() {
			corpus = "(attach)"
		} else if s.Path != "" {
			corpus = s.Corpus + ":" + s.Path
		}
		table.Append(p.Name, corpus, s.Embedder, s.Generator, s.Store+"/"+s.Collection, p.Description)
	}
	table.Render()
}
