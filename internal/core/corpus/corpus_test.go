package corpus

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultInline(t *testing.T) {
	passages, err := DefaultInline().Load(context.Background())
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "id-pineapple", passages[0].ID)
	assert.Equal(t, "id-oranges", passages[1].ID)
}

func TestInline_LoadReturnsCopy(t *testing.T) {
	src := Inline(Passage{ID: "a", Text: "alpha"})

	first, err := src.Load(context.Background())
	require.NoError(t, err)
	first[0].Text = "changed"

	second, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", second[0].Text)
}

func TestTextFile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escondido.txt")
	require.NoError(t, os.WriteFile(path, []byte("Escondido was settled in 1886.\n\nIt grew quickly."), 0o644))

	passages, err := NewTextFile(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "1", passages[0].ID)
	assert.Contains(t, passages[0].Text, "settled in 1886")
}

func TestTextFile_MissingFile(t *testing.T) {
	_, err := NewTextFile(filepath.Join(t.TempDir(), "missing.txt")).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestTextFile_BinaryContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x00, 0xff, 0x00}, 0o644))

	_, err := NewTextFile(path).Load(context.Background())
	assert.ErrorIs(t, err, ErrBinaryContent)
}

func TestPreview(t *testing.T) {
	passages := []Passage{{ID: "1", Text: "héllo"}, {ID: "2", Text: "world"}}

	assert.Equal(t, "hél", Preview(passages, 3))
	assert.Equal(t, "héllo\nworld", Preview(passages, 100))
	assert.Equal(t, "héllo\nworld", Preview(passages, -1))
}
