package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding はトークン数計測に使うエンコーディング（OpenAIのEmbeddingモデルと互換）
const DefaultEncoding = "cl100k_base"

// NewTokenLength はtiktokenでトークン数を数えるLengthFuncを作成します
func NewTokenLength(encoding string) (LengthFunc, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return func(text string) int {
		return len(encoder.Encode(text, nil, nil))
	}, nil
}
