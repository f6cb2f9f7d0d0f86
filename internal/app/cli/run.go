package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/minirag/internal/core/pipeline"
	"github.com/jinford/minirag/internal/platform/config"
)

// ErrNoQuestion は質問文がない場合のエラー
var ErrNoQuestion = errors.New("質問文を指定してください")

// RunAction はコーパスの読み込みから回答までを実行するコマンドのアクション
func RunAction(ctx context.Context, cmd *cli.Command) error {
	s, err := resolveSettings(cmd, config.DefaultSettings())
	if err != nil {
		return err
	}
	return runPipeline(ctx, cmd, s)
}

// IndexAction はコーパスを永続コレクションに登録するだけのコマンドのアクション
func IndexAction(ctx context.Context, cmd *cli.Command) error {
	base := config.DefaultSettings()
	base.Mode = pipeline.ModeIndexOnly.String()
	base.Corpus = "file"
	base.Embedder = "cloud"
	base.BindEmbedder = false
	base.Store = "postgres"
	base.IDScheme = string(pipeline.IDUUID)
	base.Chunk = true
	base.Question = ""

	s, err := resolveSettings(cmd, base)
	if err != nil {
		return err
	}
	return runPipeline(ctx, cmd, s)
}

// AskAction は既存の永続コレクションに接続して質問に答えるコマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	s, err := resolveSettings(cmd, askSettings(cmd.Args().First()))
	if err != nil {
		return err
	}
	return runPipeline(ctx, cmd, s)
}

// askSettings は ask コマンドの既定の設定を返す
// 引数で質問文が与えられた場合だけ既定の質問を置き換える
func askSettings(question string) config.Settings {
	base := config.DefaultSettings()
	base.Mode = pipeline.ModeAttach.String()
	base.Embedder = "cloud"
	base.BindEmbedder = false
	base.Generator = "cloud"
	base.Store = "postgres"
	base.K = 4
	base.Question = config.DefaultPersistentQuestion
	if question != "" {
		base.Question = question
	}
	return base
}

func runPipeline(ctx context.Context, cmd *cli.Command, s config.Settings) error {
	interactive := cmd.Bool("interactive")
	if err := checkQuestion(s, interactive); err != nil {
		return err
	}

	slog.Info("パイプラインを開始",
		"mode", s.Mode,
		"corpus", s.Corpus,
		"embedder", s.Embedder,
		"generator", s.Generator,
		"store", s.Store,
		"collection", s.Collection,
	)

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, cmd.String("env"), s)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	report, err := execute(ctx, appCtx, interactive)
	if err != nil {
		appCtx.Logger().Error("パイプラインの実行に失敗しました", "error", err)
		return err
	}

	appCtx.Logger().Info("パイプラインが完了しました",
		"collection", report.Collection,
		"indexed", report.Indexed,
		"queries", report.Queries,
		"answers", report.Answers,
	)
	return nil
}

// checkQuestion は対話モードでなければ質問文が必要であることを確認する
func checkQuestion(s config.Settings, interactive bool) error {
	if interactive || s.Mode == pipeline.ModeIndexOnly.String() || s.Question != "" {
		return nil
	}
	return ErrNoQuestion
}

// execute はコンテナの依存関係でパイプラインを1回実行する
func execute(ctx context.Context, appCtx *AppContext, interactive bool) (*pipeline.Report, error) {
	cont := appCtx.Container

	driverCfg, err := cont.DriverConfig()
	if err != nil {
		return nil, fmt.Errorf("パイプライン設定の作成に失敗: %w", err)
	}

	input := newInputSource(interactive, cont.Settings().Question, appCtx.In, appCtx.Out)
	opts := []pipeline.Option{pipeline.WithLogger(appCtx.Logger())}
	if m, ok := cont.Metrics().Get(); ok {
		opts = append(opts, pipeline.WithStateObserver(m.ObserveTransition))
	}

	driver, err := pipeline.NewDriver(driverCfg, cont.Dependencies(input, NewTablePrinter(appCtx.Out)), opts...)
	if err != nil {
		return nil, err
	}
	return driver.Run(ctx)
}
