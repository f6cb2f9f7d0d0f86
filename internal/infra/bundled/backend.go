package bundled

import (
	"fmt"

	"github.com/jinford/minirag/internal/core/llm"
)

// Backend は組み込みEmbedderの実行バックエンド
type Backend string

const (
	// BackendAuto は実行環境に応じてバックエンドを選ぶ
	BackendAuto Backend = "auto"
	// BackendDefault は通常の実行バックエンド
	BackendDefault Backend = "default"
	// BackendCPU はCPUのみで動く代替バックエンド
	BackendCPU Backend = "cpu"
)

// ParseBackend は文字列をBackendに変換する
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendAuto, BackendDefault, BackendCPU:
		return Backend(s), nil
	case "":
		return BackendAuto, nil
	default:
		return "", fmt.Errorf("unknown bundled embedding backend %q (auto|default|cpu)", s)
	}
}

// requiresCPU は既定バックエンドが動かないプラットフォームかどうか
func requiresCPU(goos, goarch string) bool {
	return goos == "darwin" && goarch == "amd64"
}

// SelectBackend は要求とプラットフォームから実際に使うバックエンドを決める
// Intel Mac では既定バックエンドが使えないため auto は cpu になり、default の明示指定はエラーになる
func SelectBackend(requested Backend, goos, goarch string) (Backend, error) {
	switch requested {
	case BackendAuto, "":
		if requiresCPU(goos, goarch) {
			return BackendCPU, nil
		}
		return BackendDefault, nil
	case BackendDefault:
		if requiresCPU(goos, goarch) {
			return "", llm.NewProviderError("bundled", "select backend",
				fmt.Errorf("%w: default backend is not available on %s/%s, use cpu", llm.ErrUnsupportedPlatform, goos, goarch))
		}
		return BackendDefault, nil
	case BackendCPU:
		return BackendCPU, nil
	default:
		return "", fmt.Errorf("unknown bundled embedding backend %q", requested)
	}
}
