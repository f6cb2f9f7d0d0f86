package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/minirag/internal/core/corpus"
)

func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	return strings.Join(words, " ")
}

// sharedEdge は a の末尾と b の先頭で一致する最長の文字数を返す
func sharedEdge(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for k := max; k > 0; k-- {
		if a[len(a)-k:] == b[:k] {
			return k
		}
	}
	return 0
}

func TestNewSplitter_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "zero size", size: 0, overlap: 0},
		{name: "negative size", size: -1, overlap: 0},
		{name: "negative overlap", size: 10, overlap: -1},
		{name: "overlap equals size", size: 10, overlap: 10},
		{name: "overlap exceeds size", size: 10, overlap: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	s, err := NewSplitter(100, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"hello world"}, s.Split("  hello world \n"))
}

func TestSplit_EmptyTextHasNoChunks(t *testing.T) {
	s, err := NewSplitter(100, 10)
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split(" \n\n "))
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	s, err := NewSplitter(40, 5)
	require.NoError(t, err)

	p1 := "The first paragraph talks about fruit."
	p2 := "The second one is about the weather."
	chunks := s.Split(p1 + "\n\n" + p2)

	assert.Equal(t, []string{p1, p2}, chunks)
}

func TestSplit_SizeAndOverlapBounds(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	chunks := s.Split(wordText(100))
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50, "chunk %d too long", i)
	}
	for i := 1; i < len(chunks); i++ {
		shared := sharedEdge(chunks[i-1], chunks[i])
		assert.LessOrEqual(t, shared, 10, "chunks %d and %d overlap too much", i-1, i)
		assert.Positive(t, shared, "chunks %d and %d should overlap", i-1, i)
	}

	// 単語は途中で切られない
	for _, c := range chunks {
		for _, w := range strings.Fields(c) {
			assert.Len(t, w, 4)
		}
	}
}

func TestSplit_FallsBackToCharacters(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 12)
	chunks := s.Split(text)

	assert.Equal(t, []string{text[0:50], text[40:90], text[80:120]}, chunks)
}

func TestSplit_WithLengthFunc(t *testing.T) {
	words := func(s string) int { return len(strings.Fields(s)) }
	s, err := NewSplitter(3, 1, WithLengthFunc(words))
	require.NoError(t, err)

	chunks := s.Split("a b c d e f")

	assert.Equal(t, []string{"a b c", "c d e", "e f"}, chunks)
}

func TestSplit_WithSeparators(t *testing.T) {
	s, err := NewSplitter(5, 0, WithSeparators("|", ""))
	require.NoError(t, err)

	chunks := s.Split("abc|def|gh")

	assert.Equal(t, []string{"abc|", "def|", "gh"}, chunks)
}

func TestSplitPassages_AssignsSequentialIDs(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	passages := []corpus.Passage{
		{ID: "a", Text: wordText(30)},
		{ID: "b", Text: "short passage"},
	}

	chunks := s.SplitPassages(passages)
	require.Greater(t, len(chunks), 2)

	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("%d", i+1), c.ID)
		assert.NotEmpty(t, c.Text)
	}
	assert.Equal(t, "short passage", chunks[len(chunks)-1].Text)
}

func TestNewTokenLength(t *testing.T) {
	length, err := NewTokenLength("")
	if err != nil {
		// エンコーディング定義の取得にネットワークが必要
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	assert.Equal(t, 0, length(""))
	assert.Positive(t, length("hello world"))
	assert.Greater(t, length(wordText(50)), length("hello world"))
}
