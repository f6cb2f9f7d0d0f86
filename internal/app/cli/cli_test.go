package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/jinford/minirag/internal/core/llm"
	"github.com/jinford/minirag/internal/core/pipeline"
	"github.com/jinford/minirag/internal/core/vectorstore"
	"github.com/jinford/minirag/internal/infra/memory"
	"github.com/jinford/minirag/internal/platform/config"
	"github.com/jinford/minirag/internal/platform/container"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// resolveWith は flags を持つコマンドを args で実行し、解決された設定を返す
func resolveWith(t *testing.T, flags []cli.Flag, base config.Settings, args ...string) (config.Settings, error) {
	t.Helper()

	var got config.Settings
	var resolveErr error
	cmd := &cli.Command{
		Name:  "test",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			got, resolveErr = resolveSettings(cmd, base)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	return got, resolveErr
}

func TestResolveSettings_PresetThenFlags(t *testing.T) {
	s, err := resolveWith(t, RunFlags(), config.DefaultSettings(),
		"--preset", "builtin-file-ollama", "--k", "6", "--store", "sqlite", "-i")
	require.NoError(t, err)

	assert.Equal(t, "file", s.Corpus)
	assert.Equal(t, "data/escondido.txt", s.Path)
	assert.Equal(t, "ollama", s.Generator)
	assert.Equal(t, 6, s.K)
	assert.Equal(t, "sqlite", s.Store)
	assert.True(t, s.Chunk)
}

func TestResolveSettings_PathImpliesFileCorpus(t *testing.T) {
	s, err := resolveWith(t, RunFlags(), config.DefaultSettings(), "--path", "notes.txt", "--bind-embedder=false")
	require.NoError(t, err)

	assert.Equal(t, "file", s.Corpus)
	assert.Equal(t, "notes.txt", s.Path)
	assert.False(t, s.BindEmbedder)
}

func TestResolveSettings_ConfigFileBeforeFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("k: 3\ncollection: from-file\n"), 0o600))

	s, err := resolveWith(t, RunFlags(), config.DefaultSettings(), "--config", path, "--collection", "from-flag")
	require.NoError(t, err)

	assert.Equal(t, 3, s.K)
	assert.Equal(t, "from-flag", s.Collection)
}

func TestResolveSettings_UnknownPreset(t *testing.T) {
	_, err := resolveWith(t, RunFlags(), config.DefaultSettings(), "--preset", "chroma-http")
	assert.ErrorIs(t, err, config.ErrUnknownPreset)
}

func TestAskSettings_DefaultQuestion(t *testing.T) {
	s, err := resolveWith(t, AskFlags(), askSettings(""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultPersistentQuestion, s.Question)
	assert.Equal(t, pipeline.ModeAttach.String(), s.Mode)
	assert.NoError(t, checkQuestion(s, false))

	s, err = resolveWith(t, AskFlags(), askSettings("What does the HOA cover?"))
	require.NoError(t, err)
	assert.Equal(t, "What does the HOA cover?", s.Question)

	s, err = resolveWith(t, AskFlags(), askSettings("ignored"), "--question", "from-flag")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", s.Question)
}

func TestCheckQuestion(t *testing.T) {
	s := config.DefaultSettings()
	s.Question = ""

	assert.ErrorIs(t, checkQuestion(s, false), ErrNoQuestion)
	assert.NoError(t, checkQuestion(s, true))

	s.Mode = pipeline.ModeIndexOnly.String()
	assert.NoError(t, checkQuestion(s, false))
}

func newTestAppContext(t *testing.T, s config.Settings, in io.Reader, out io.Writer) *AppContext {
	t.Helper()

	cfg := &config.Config{Bundled: config.BundledConfig{Dimension: 128, Backend: "auto"}}
	cont, err := container.NewContainer(context.Background(), cfg, s, container.WithContainerLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(cont.Close)

	return &AppContext{Config: cfg, Container: cont, In: in, Out: out, logger: discardLogger()}
}

func TestExecute_InlineFixedQuestion(t *testing.T) {
	var out bytes.Buffer
	s := config.DefaultSettings()
	s.Question = "pineapple"

	report, err := execute(context.Background(), newTestAppContext(t, s, strings.NewReader(""), &out), false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 1, report.Queries)
	assert.Equal(t, 0, report.Answers)

	text := out.String()
	assert.Contains(t, text, "Loaded 2 passage(s) from inline corpus")
	assert.Contains(t, text, "Found 2 embeddings in my_collection. Showing first 2")
	assert.Contains(t, text, "Results for: pineapple")
	assert.Contains(t, text, "id-pineapple")
	assert.NotContains(t, text, "ANSWER")
}

func TestExecute_InteractiveLines(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("pineapple\n\noranges\nQUIT\nnever asked\n")

	report, err := execute(context.Background(), newTestAppContext(t, config.DefaultSettings(), in, &out), true)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Queries)
	assert.Equal(t, 4, strings.Count(out.String(), pipeline.DefaultLinePrompt))
	assert.NotContains(t, out.String(), "never asked")
}

func TestPeekCollection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	col, err := store.CreateCollection(ctx, "fruit", mo.None[llm.Embedder]())
	require.NoError(t, err)
	require.NoError(t, col.Add(ctx, []vectorstore.Document{
		{ID: "a", Text: "apple\npie", Embedding: []float32{1, 0}},
		{ID: "b", Text: "banana bread", Embedding: []float32{0, 1}},
	}))

	var out bytes.Buffer
	require.NoError(t, peekCollection(ctx, store, "fruit", 1, &out))
	assert.Contains(t, out.String(), "Found 2 embeddings in fruit. Showing first 1")
	assert.Contains(t, out.String(), "apple pie")
	assert.NotContains(t, out.String(), "banana")

	err = peekCollection(ctx, store, "missing", 1, &out)
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestWritePresets(t *testing.T) {
	var out bytes.Buffer
	writePresets(&out)

	for _, p := range config.Presets() {
		assert.Contains(t, out.String(), p.Name)
	}
	assert.Contains(t, out.String(), "(attach)")
}

func TestTablePrinter_PromptAndAnswer(t *testing.T) {
	var out bytes.Buffer
	p := NewTablePrinter(&out)

	p.Chunked(12)
	p.Prompt("Answer the question")
	p.Answer("Escondido was settled by ...")

	text := out.String()
	assert.Contains(t, text, "Split into 12 chunk(s)")
	assert.Contains(t, text, "PROMPT")
	assert.Contains(t, text, "ANSWER")
	assert.Less(t, strings.Index(text, "PROMPT"), strings.Index(text, "ANSWER"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b", truncate("a\n\nb", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
