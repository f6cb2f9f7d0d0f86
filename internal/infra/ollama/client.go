package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/jinford/minirag/internal/core/llm"
)

const (
	// DefaultHost はローカルのOllamaサーバー
	DefaultHost = "http://localhost:11434"

	// DefaultEmbeddingModel は既定のEmbeddingモデル
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultGenerationModel は既定の生成モデル
	DefaultGenerationModel = "deepseek-r1:8b"

	providerName = "ollama"
)

// Client は Embedder と Generator が共有する Ollama クライアント
type Client struct {
	api  *api.Client
	host string
}

// NewClient は host に接続する Client を作成する
// 接続確認は行わず、到達できない場合は最初のリクエストで llm.ErrConnection になる
func NewClient(host string, httpClient *http.Client) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		api:  api.NewClient(u, httpClient),
		host: host,
	}, nil
}

// Host は接続先を返す
func (c *Client) Host() string {
	return c.host
}

// wrapError はクライアントのエラーを llm のエラー分類に変換する
func wrapError(op, model string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var sentinel error
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			sentinel = llm.ErrModelNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			sentinel = llm.ErrAuth
		case http.StatusTooManyRequests:
			sentinel = llm.ErrRateLimit
		default:
			sentinel = llm.ErrRemote
		}
	} else {
		sentinel = llm.ErrConnection
	}

	return llm.NewProviderError(providerName, op, fmt.Errorf("%w: model %s: %v", sentinel, model, err))
}
