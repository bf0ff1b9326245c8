package rag

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrSummarization   = errors.New("summarization failed")
	ErrEmbedding       = errors.New("embedding failed")
	ErrNoContent       = errors.New("organization has no ingested content")
	ErrAlreadyIngested = errors.New("file already ingested")
)
