package recordio

import (
	"context"
)

// FileSink persists record snapshots to a CSV file with atomic replace.
type FileSink[T any] struct {
	Path string
}

// NewFileSink creates a FileSink writing to path.
func NewFileSink[T any](path string) *FileSink[T] {
	return &FileSink[T]{Path: path}
}

// Save overwrites the sink file with records.
func (s *FileSink[T]) Save(_ context.Context, records []T) error {
	return WriteFileAtomic(s.Path, records)
}
