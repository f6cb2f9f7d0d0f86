package corpus

import (
	"context"
	"fmt"
	"os"

	"github.com/go-enry/go-enry/v2"
)

// TextFile はローカルのテキストファイル全体を1つのパッセージとして読み込む
type TextFile struct {
	Path string
}

// NewTextFile は新しいTextFileを作成する
func NewTextFile(path string) *TextFile {
	return &TextFile{Path: path}
}

func (f *TextFile) Kind() string { return "file" }

// Load はファイル全体をメモリに読み込む
func (f *TextFile) Load(ctx context.Context) ([]Passage, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	if enry.IsBinary(data) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryContent, f.Path)
	}

	return []Passage{{ID: "1", Text: string(data)}}, nil
}
