package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/minirag/internal/core/llm"
)

// Provider はOpenAI互換APIの提供元
type Provider string

const (
	// ProviderOpenAI は OpenAI API
	ProviderOpenAI Provider = "openai"
	// ProviderGemini は Gemini の OpenAI 互換エンドポイント
	ProviderGemini Provider = "gemini"
)

const (
	// GeminiBaseURL は Gemini の OpenAI 互換エンドポイント
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxBatchSize は1リクエストで送るEmbedding入力の最大件数
	MaxBatchSize = 100
)

// ParseProvider は文字列をProviderに変換する
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenAI, ProviderGemini:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("unknown cloud provider %q (gemini|openai)", s)
	}
}

// APIKeyEnv はプロバイダのAPIキーを読む環境変数名を返す
func (p Provider) APIKeyEnv() string {
	if p == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// DefaultEmbeddingModel はプロバイダごとの既定Embeddingモデル
func (p Provider) DefaultEmbeddingModel() string {
	if p == ProviderGemini {
		return "text-embedding-004"
	}
	return "text-embedding-3-small"
}

// DefaultGenerationModel はプロバイダごとの既定生成モデル
func (p Provider) DefaultGenerationModel() string {
	if p == ProviderGemini {
		return "gemini-2.0-flash"
	}
	return "gpt-4o-mini"
}

// Client は Embedder と Generator が共有する API クライアント
type Client struct {
	client   openai.Client
	provider Provider
	timeout  time.Duration
}

type clientOptions struct {
	baseURL string
	timeout time.Duration
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithBaseURL はエンドポイントを上書きする
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithTimeout は生成リクエストのタイムアウトを設定する
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// NewClient は新しい Client を作成する
// APIキーが空の場合はリクエストを送らずに llm.ErrAuth を返す
func NewClient(provider Provider, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, llm.NewProviderError(string(provider), "init",
			fmt.Errorf("%w: API key not set: please set %s environment variable", llm.ErrAuth, provider.APIKeyEnv()))
	}

	options := clientOptions{timeout: DefaultTimeout}
	if provider == ProviderGemini {
		options.baseURL = GeminiBaseURL
	}
	for _, opt := range opts {
		opt(&options)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// 失敗はそのまま呼び出し元に返す
		option.WithMaxRetries(0),
	}
	if options.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(options.baseURL))
	}

	return &Client{
		client:   openai.NewClient(requestOpts...),
		provider: provider,
		timeout:  options.timeout,
	}, nil
}

// Provider はプロバイダを返す
func (c *Client) Provider() Provider {
	return c.provider
}

// wrapError はSDKのエラーを llm のエラー分類に変換する
func (c *Client) wrapError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var sentinel error
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			sentinel = llm.ErrAuth
		case 404:
			sentinel = llm.ErrModelNotFound
		case 429:
			sentinel = llm.ErrRateLimit
		default:
			sentinel = llm.ErrRemote
		}
	} else {
		sentinel = llm.ErrConnection
	}

	return llm.NewProviderError(string(c.provider), op, fmt.Errorf("%w: %v", sentinel, err))
}
