package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"

	"github.com/jinford/minirag/internal/core/pipeline"
)

// promptSource は端末で promptui を使って質問を読む
type promptSource struct {
	label string
}

func (s *promptSource) Next(ctx context.Context) (string, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		prompt := promptui.Prompt{Label: s.label}
		question, err := prompt.Run()
		if errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrInterrupt) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		if strings.TrimSpace(question) == "" {
			continue
		}
		return question, true, nil
	}
}

// isTerminal は in と out がどちらも端末かどうかを返す
func isTerminal(in io.Reader, out io.Writer) bool {
	fin, ok := in.(*os.File)
	if !ok {
		return false
	}
	fout, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(fin.Fd()) && isatty.IsTerminal(fout.Fd())
}

// newInputSource は対話モードかどうかと入出力に応じて質問の取得元を選ぶ
func newInputSource(interactive bool, question string, in io.Reader, out io.Writer) pipeline.InputSource {
	if !interactive {
		return pipeline.NewFixedQuery(question)
	}
	if isTerminal(in, out) {
		return &promptSource{label: "Question (q to quit)"}
	}
	return pipeline.NewLineSource(in, out, pipeline.DefaultLinePrompt)
}
