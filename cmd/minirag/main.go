package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/minirag/internal/app/cli"
	"github.com/jinford/minirag/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定（設定ファイル読み込み後に各コマンドで上書きされる）
	logger.New(logger.DefaultConfig())

	app := &cli.Command{
		Name:  "minirag",
		Usage: "テキストコーパスを検索し、生成モデルで質問に答える小さな RAG パイプライン",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "コーパスの読み込みからインデックス作成、検索、回答までを実行",
				Flags:  appcli.RunFlags(),
				Action: appcli.RunAction,
			},
			{
				Name:   "index",
				Usage:  "コーパスを永続コレクションに登録する",
				Flags:  appcli.IndexFlags(),
				Action: appcli.IndexAction,
			},
			{
				Name:      "ask",
				Usage:     "既存の永続コレクションに接続して質問に答える",
				ArgsUsage: "[質問文]",
				Flags:     appcli.AskFlags(),
				Action:    appcli.AskAction,
			},
			{
				Name:   "peek",
				Usage:  "永続コレクションの件数と先頭のドキュメントを表示",
				Flags:  appcli.PeekFlags(),
				Action: appcli.PeekAction,
			},
			{
				Name:   "presets",
				Usage:  "組み込みプリセットの一覧を表示",
				Action: appcli.PresetsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("コマンドの実行に失敗しました", "error", err)
		os.Exit(1)
	}
}
