package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/jinford/minirag/internal/core/corpus"
	"github.com/jinford/minirag/internal/core/pipeline"
	"github.com/jinford/minirag/internal/core/vectorstore"
)

const cellWidth = 80

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	answerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TablePrinter はパイプラインの出力を表形式で書き出す
type TablePrinter struct {
	out          io.Writer
	previewChars int
}

// NewTablePrinter は新しい TablePrinter を作成する
func NewTablePrinter(out io.Writer) *TablePrinter {
	return &TablePrinter{out: out, previewChars: pipeline.DefaultPreviewChars}
}

var _ pipeline.Printer = (*TablePrinter)(nil)

func (p *TablePrinter) CorpusLoaded(kind string, passages []corpus.Passage) {
	fmt.Fprintln(p.out, headingStyle.Render(fmt.Sprintf("Loaded %d passage(s) from %s corpus", len(passages), kind)))
	if preview := corpus.Preview(passages, p.previewChars); preview != "" {
		fmt.Fprintln(p.out, dimStyle.Render(preview))
	}
}

func (p *TablePrinter) Chunked(count int) {
	fmt.Fprintf(p.out, "Split into %d chunk(s)\n", count)
}

func (p *TablePrinter) CollectionReady(name string, count int, peek []vectorstore.Document) {
	fmt.Fprintln(p.out, headingStyle.Render(fmt.Sprintf("Found %d embeddings in %s. Showing first %d", count, name, len(peek))))
	if len(peek) == 0 {
		return
	}

	table := tablewriter.NewWriter(p.out)
	table.Header("#", "ID", "Document")
	for i, d := range peek {
		table.Append(fmt.Sprintf("%d", i), d.ID, truncate(d.Text, cellWidth))
	}
	table.Render()
}

func (p *TablePrinter) Results(question string, result *vectorstore.QueryResult) {
	fmt.Fprintln(p.out, headingStyle.Render("Results for: "+question))

	table := tablewriter.NewWriter(p.out)
	table.Header("Rank", "ID", "Distance", "Document")
	for i, d := range result.Documents {
		table.Append(fmt.Sprintf("%d", i+1), d.ID, fmt.Sprintf("%.4f", d.Distance), truncate(d.Text, cellWidth))
	}
	table.Render()
}

func (p *TablePrinter) Prompt(prompt string) {
	fmt.Fprintln(p.out, headingStyle.Render("PROMPT"))
	fmt.Fprintln(p.out, prompt)
}

func (p *TablePrinter) Answer(answer string) {
	fmt.Fprintln(p.out, answerStyle.Render("ANSWER"))
	fmt.Fprintln(p.out, answer)
}

// truncate は改行を空白に置き換え、n文字を超える部分を省略する
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
