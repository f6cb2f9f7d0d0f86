package pdf

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/minirag/internal/core/corpus"
)

func TestSource_MissingFile(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "hoa_canopy_grove.pdf"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := src.Load(context.Background())

	assert.ErrorIs(t, err, corpus.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "pdf", src.Kind())
}

func TestSource_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o644))

	_, err := NewSource(path).Load(context.Background())

	assert.ErrorIs(t, err, corpus.ErrIO)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}
