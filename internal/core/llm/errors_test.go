package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_UnwrapsToSentinel(t *testing.T) {
	err := NewProviderError("ollama", "embed", fmt.Errorf("%w: dial tcp", ErrConnection))

	assert.True(t, errors.Is(err, ErrConnection))
	assert.False(t, errors.Is(err, ErrAuth))
	assert.Equal(t, "ollama: embed: provider unreachable: dial tcp", err.Error())

	var perr *ProviderError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &perr))
	assert.Equal(t, "ollama", perr.Provider)
}
