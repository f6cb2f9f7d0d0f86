package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jinford/minirag/internal/platform/config"
	"github.com/jinford/minirag/internal/platform/container"
	"github.com/jinford/minirag/internal/platform/logger"
	"github.com/jinford/minirag/internal/platform/metrics"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer

	In  io.Reader
	Out io.Writer

	logger      *slog.Logger
	stopMetrics context.CancelFunc
}

// NewAppContext は設定ファイルを読み込み、パイプラインの依存関係を組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, envFile string, s config.Settings, opts ...container.ContainerOption) (*AppContext, error) {
	// 設定の読み込み（platform層を使用）
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	// ロガーの初期化（platform層を使用）
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	appLogger := logger.New(logger.Config{Level: level, Format: cfg.Log.Format})

	appCtx := &AppContext{
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
		logger: appLogger,
	}

	opts = append([]container.ContainerOption{container.WithContainerLogger(appLogger)}, opts...)
	if cfg.MetricsAddr != "" {
		m := metrics.New()
		appCtx.startMetrics(ctx, m, cfg.MetricsAddr)
		opts = append(opts, container.WithContainerMetrics(m))
	}

	// コンテナの初期化（platform層を使用）
	cont, err := container.NewContainer(ctx, cfg, s, opts...)
	if err != nil {
		appCtx.Close()
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}
	appCtx.Container = cont

	return appCtx, nil
}

// startMetrics はコマンドの実行中だけ /metrics を公開する
func (ac *AppContext) startMetrics(ctx context.Context, m *metrics.Metrics, addr string) {
	metricsCtx, cancel := context.WithCancel(ctx)
	ac.stopMetrics = cancel

	go func() {
		if err := m.Serve(metricsCtx, addr, ac.logger); err != nil && !errors.Is(err, context.Canceled) {
			ac.logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
	if ac.stopMetrics != nil {
		ac.stopMetrics()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.logger != nil {
		return ac.logger
	}
	return slog.Default()
}
