package vectorstore

import "errors"

var (
	// ErrNotFound はコレクションが存在しない場合のエラー
	ErrNotFound = errors.New("collection not found")

	// ErrAlreadyExists は同名のコレクションが既に存在する場合のエラー
	ErrAlreadyExists = errors.New("collection already exists")

	// ErrDimensionMismatch はベクトルの次元数がコレクションと一致しない場合のエラー
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrValidation は入力ドキュメントやクエリが不正な場合のエラー
	ErrValidation = errors.New("invalid input")

	// ErrConfiguration はEmbeddingが必要なのにEmbedderが紐付いていない場合のエラー
	ErrConfiguration = errors.New("collection has no embedder")

	// ErrUnavailable はストアのバックエンドに接続できない場合のエラー
	ErrUnavailable = errors.New("vector store unavailable")
)
