package chunk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jinford/minirag/internal/core/corpus"
)

// ErrInvalidConfig は分割設定が不正な場合に返されます
var ErrInvalidConfig = errors.New("invalid chunker config")

// DefaultSeparators は段落→行→文→単語→文字の順に試す区切り文字
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// LengthFunc はテキストの長さ（文字数やトークン数）を返す
type LengthFunc func(string) int

// RuneLength は文字数を返すデフォルトのLengthFunc
func RuneLength(s string) int {
	return utf8.RuneCountInString(s)
}

// Splitter は長いテキストをオーバーラップ付きのチャンクに再帰的に分割します
type Splitter struct {
	size       int // チャンクの最大長
	overlap    int // 連続チャンク間で共有する最大長
	separators []string
	length     LengthFunc
}

// Option は Splitter のオプション設定
type Option func(*Splitter)

// WithLengthFunc は長さの計測方法を差し替える
func WithLengthFunc(fn LengthFunc) Option {
	return func(s *Splitter) {
		s.length = fn
	}
}

// WithSeparators は区切り文字の優先順を差し替える
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		s.separators = separators
	}
}

// NewSplitter は新しいSplitterを作成します
func NewSplitter(size, overlap int, opts ...Option) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive (got %d)", ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d) (got %d)", ErrInvalidConfig, size, overlap)
	}

	s := &Splitter{
		size:       size,
		overlap:    overlap,
		separators: DefaultSeparators,
		length:     RuneLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.separators) == 0 {
		return nil, fmt.Errorf("%w: at least one separator is required", ErrInvalidConfig)
	}
	if s.length == nil {
		s.length = RuneLength
	}
	return s, nil
}

// Size はチャンクの最大長を返す
func (s *Splitter) Size() int { return s.size }

// Overlap はオーバーラップ長を返す
func (s *Splitter) Overlap() int { return s.overlap }

// Split はテキストをチャンクに分割します
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

// SplitPassages は各パッセージを分割し、入力順に "1", "2", ... のIDを振り直します
func (s *Splitter) SplitPassages(passages []corpus.Passage) []corpus.Passage {
	var out []corpus.Passage
	for _, p := range passages {
		for _, text := range s.Split(p.Text) {
			out = append(out, corpus.Passage{
				ID:   strconv.Itoa(len(out) + 1),
				Text: text,
			})
		}
	}
	return out
}

// split はテキストに含まれる最初の区切り文字で分割し、大きすぎる断片は次の区切り文字で再帰的に分割する
func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			separator = candidate
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if s.length(piece) < s.size {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}

		if len(rest) == 0 {
			// これ以上分割できない単位はそのまま1チャンクにする
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}

	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge は小さな断片をsize以内にまとめ、末尾のoverlap分を次のチャンクへ持ち越す
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		l := s.length(piece)

		if total+l > s.size && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for len(window) > 0 && (total > s.overlap || total+l > s.size) {
				total -= s.length(window[0])
				window = window[1:]
			}
		}

		window = append(window, piece)
		total += l
	}

	if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepingSeparator は区切り文字を直前の断片に残したまま分割する
func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	raw := strings.SplitAfter(text, separator)
	pieces := raw[:0]
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}
