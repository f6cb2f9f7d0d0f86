package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth はAPIキーが未設定または無効な場合のエラー
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimit はプロバイダ側でレート制限された場合のエラー
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrRemote はプロバイダ側の失敗を表すエラー
	ErrRemote = errors.New("remote provider error")

	// ErrConnection はモデルサーバ等に接続できない場合のエラー
	ErrConnection = errors.New("provider unreachable")

	// ErrModelNotFound は指定モデルがインストールされていない場合のエラー
	ErrModelNotFound = errors.New("model not found")

	// ErrUnsupportedPlatform は実行バックエンドが現在のプラットフォームで使えない場合のエラー
	ErrUnsupportedPlatform = errors.New("unsupported platform for execution backend")
)

// ProviderError はどのプロバイダのどの操作で失敗したかを保持する
type ProviderError struct {
	Provider string // "bundled", "ollama", "openai", "gemini" など
	Op       string // "embed", "generate" など
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError は新しいProviderErrorを作成する
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Err:      err,
	}
}
