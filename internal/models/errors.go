package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrIngestionEmpty      = errors.New("ingestion produced no data")
	ErrEmbeddingService    = errors.New("embedding service error")
	ErrModelQuota          = errors.New("model quota exceeded")
	ErrModelCall           = errors.New("model call failed")
	ErrStoreNotInitialized = errors.New("vector store not initialized")
	ErrInvalidChunkConfig  = errors.New("invalid chunk configuration")
)

// SectionError records a section that was skipped during ingestion.
type SectionError struct {
	Label string
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %q: %v", e.Label, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }
