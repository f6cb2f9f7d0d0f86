package cli

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/minirag/internal/platform/config"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "config",
		Usage: "パイプライン設定ファイル（YAML）",
	}
}

func corpusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "corpus", Usage: "コーパスの種類 (inline|file|pdf)"},
		&cli.StringFlag{Name: "path", Usage: "コーパスファイルのパス"},
		&cli.BoolFlag{Name: "chunk", Usage: "コーパスをチャンクに分割する"},
		&cli.IntFlag{Name: "chunk-size", Usage: "チャンクの最大長"},
		&cli.IntFlag{Name: "chunk-overlap", Usage: "隣接チャンクの重なり"},
		&cli.BoolFlag{Name: "token-chunks", Usage: "チャンク長を文字数ではなくトークン数で測る"},
		&cli.StringFlag{Name: "id-scheme", Usage: "ドキュメントIDの付与方式 (sequential|uuid)"},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "embedder", Usage: "Embeddingプロバイダ (bundled|ollama|cloud)"},
		&cli.StringFlag{Name: "embedding-model", Usage: "Embeddingモデル名"},
		&cli.BoolFlag{Name: "bind-embedder", Usage: "Embedderをコレクションに紐付け、テキストのまま追加・検索する"},
		&cli.StringFlag{Name: "store", Usage: "ベクトルストア (memory|postgres|sqlite)"},
		&cli.StringFlag{Name: "collection", Usage: "コレクション名"},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "generator", Usage: "回答生成プロバイダ (none|ollama|cloud)"},
		&cli.StringFlag{Name: "model", Usage: "回答生成モデル名"},
		&cli.IntFlag{Name: "k", Usage: "検索するドキュメント数"},
		&cli.StringFlag{Name: "question", Usage: "質問文"},
		&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "質問を対話的に入力する（q で終了）"},
	}
}

// RunFlags は run コマンドのフラグ
func RunFlags() []cli.Flag {
	flags := []cli.Flag{
		envFlag(),
		configFlag(),
		&cli.StringFlag{Name: "preset", Usage: "プリセット名（presets コマンドで一覧表示）"},
	}
	flags = append(flags, corpusFlags()...)
	flags = append(flags, storeFlags()...)
	return append(flags, queryFlags()...)
}

// IndexFlags は index コマンドのフラグ
func IndexFlags() []cli.Flag {
	flags := []cli.Flag{envFlag(), configFlag()}
	flags = append(flags, corpusFlags()...)
	return append(flags, storeFlags()...)
}

// AskFlags は ask コマンドのフラグ
func AskFlags() []cli.Flag {
	flags := []cli.Flag{envFlag(), configFlag()}
	flags = append(flags, storeFlags()...)
	return append(flags, queryFlags()...)
}

// PeekFlags は peek コマンドのフラグ
func PeekFlags() []cli.Flag {
	return []cli.Flag{
		envFlag(),
		&cli.StringFlag{Name: "store", Usage: "ベクトルストア (postgres|sqlite)", Value: "postgres"},
		&cli.StringFlag{Name: "collection", Usage: "コレクション名", Value: "my_collection"},
		&cli.IntFlag{Name: "limit", Usage: "表示するドキュメント数", Value: 10},
	}
}

// resolveSettings は base にプリセット、設定ファイル、フラグの順で上書きする
func resolveSettings(cmd *cli.Command, base config.Settings) (config.Settings, error) {
	s := base

	if name := cmd.String("preset"); name != "" {
		p, err := config.LookupPreset(name)
		if err != nil {
			return s, err
		}
		s = p.Settings
	}

	if path := cmd.String("config"); path != "" {
		f, err := config.LoadPipelineFile(path)
		if err != nil {
			return s, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		f.Apply(&s)
	}

	stringFlags := map[string]*string{
		"corpus":          &s.Corpus,
		"path":            &s.Path,
		"id-scheme":       &s.IDScheme,
		"embedder":        &s.Embedder,
		"embedding-model": &s.EmbeddingModel,
		"store":           &s.Store,
		"collection":      &s.Collection,
		"generator":       &s.Generator,
		"model":           &s.GenerationModel,
		"question":        &s.Question,
	}
	for name, dst := range stringFlags {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}

	boolFlags := map[string]*bool{
		"chunk":         &s.Chunk,
		"token-chunks":  &s.TokenChunks,
		"bind-embedder": &s.BindEmbedder,
	}
	for name, dst := range boolFlags {
		if cmd.IsSet(name) {
			*dst = cmd.Bool(name)
		}
	}

	intFlags := map[string]*int{
		"chunk-size":    &s.ChunkSize,
		"chunk-overlap": &s.ChunkOverlap,
		"k":             &s.K,
	}
	for name, dst := range intFlags {
		if cmd.IsSet(name) {
			*dst = int(cmd.Int(name))
		}
	}

	// --path だけ指定された場合はファイルとして扱う
	if cmd.IsSet("path") && !cmd.IsSet("corpus") && s.Corpus == "inline" {
		s.Corpus = "file"
	}

	return s, nil
}
