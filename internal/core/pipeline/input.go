package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// InputSource は質問の取得元
// ok が false の場合は入力の終わりを表す
type InputSource interface {
	Next(ctx context.Context) (question string, ok bool, err error)
}

// IsQuit は対話を終了する入力かどうかを判定する（q / quit、大文字小文字を区別しない）
func IsQuit(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	return s == "q" || s == "quit"
}

// FixedQuery は1つの質問だけを返す
type FixedQuery struct {
	question string
	used     bool
}

// NewFixedQuery は新しい FixedQuery を作成する
func NewFixedQuery(question string) *FixedQuery {
	return &FixedQuery{question: question}
}

func (f *FixedQuery) Next(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if f.used {
		return "", false, nil
	}
	f.used = true
	return f.question, true, nil
}

// DefaultLinePrompt は行入力で表示するプロンプト
const DefaultLinePrompt = "Enter your question (q to quit): "

// LineSource は Reader から1行ずつ質問を読む。空行は読み飛ばす
type LineSource struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

// NewLineSource は新しい LineSource を作成する。out が nil ならプロンプトを表示しない
func NewLineSource(r io.Reader, out io.Writer, prompt string) *LineSource {
	return &LineSource{
		scanner: bufio.NewScanner(r),
		out:     out,
		prompt:  prompt,
	}
}

func (l *LineSource) Next(ctx context.Context) (string, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		if l.out != nil {
			fmt.Fprint(l.out, l.prompt)
		}
		if !l.scanner.Scan() {
			if err := l.scanner.Err(); err != nil {
				return "", false, fmt.Errorf("failed to read question: %w", err)
			}
			return "", false, nil
		}
		line := strings.TrimSpace(l.scanner.Text())
		if line == "" {
			continue
		}
		return line, true, nil
	}
}
