// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

// DefaultBatchSize is the number of records sent to the store per flush.
const DefaultBatchSize = 100

// BatchWriter writes records to one store class in fixed-size batches.
type BatchWriter struct {
	store     storage.VectorStore
	className string
	capacity  int
	logger    *slog.Logger
}

// BatchWriterOption configures a BatchWriter.
type BatchWriterOption func(*BatchWriter) error

// WithCapacity sets the number of records per batch.
func WithCapacity(n int) BatchWriterOption {
	return func(w *BatchWriter) error {
		if n < 1 {
			return ErrInvalidBatchSize
		}
		w.capacity = n
		return nil
	}
}

// WithBatchLogger sets the logger of the writer.
func WithBatchLogger(logger *slog.Logger) BatchWriterOption {
	return func(w *BatchWriter) error {
		if logger != nil {
			w.logger = logger
		}
		return nil
	}
}

// NewBatchWriter creates a writer for className. An empty className selects
// storage.DefaultClassName.
func NewBatchWriter(store storage.VectorStore, className string, opts ...BatchWriterOption) (*BatchWriter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if className == "" {
		className = storage.DefaultClassName
	}
	w := &BatchWriter{
		store:     store,
		className: className,
		capacity:  DefaultBatchSize,
		logger:    slog.Default().With("component", "batch-writer"),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ClassName returns the class records are written to.
func (w *BatchWriter) ClassName() string {
	return w.className
}

// Write adds records to the class in order and returns the number of
// non-empty batches flushed.
//
// A batch is flushed each time it reaches capacity; the remainder is flushed
// after the last record. Any store error stops the write and is returned
// wrapped in ErrBatchWrite. Batches flushed before the error stay written.
func (w *BatchWriter) Write(ctx context.Context, records []*core.DocumentVectorRecord) (int, error) {
	batch := w.store.NewBatch(w.className)
	batchNo := 1
	flushed := 0
	counter := 0

	flush := func() error {
		size := batch.Len()
		if err := batch.Flush(ctx); err != nil {
			w.logger.Error("batch flush failed", "class", w.className, "batch", batchNo, "size", size, "err", err)
			return fmt.Errorf("%w: class %s batch %d: %w", ErrBatchWrite, w.className, batchNo, err)
		}
		if size > 0 {
			w.logger.Debug("batch flushed", "class", w.className, "batch", batchNo, "size", size)
			flushed++
		}
		return nil
	}

	for _, rec := range records {
		if err := batch.Add(rec); err != nil {
			w.logger.Error("failed to add record to batch", "class", w.className, "batch", batchNo, "err", err)
			return flushed, fmt.Errorf("%w: class %s batch %d: %w", ErrBatchWrite, w.className, batchNo, err)
		}
		counter++
		if counter == w.capacity {
			if err := flush(); err != nil {
				return flushed, err
			}
			counter = 0
			batchNo++
			batch = w.store.NewBatch(w.className)
		}
	}

	// the remainder may be empty; the store treats that as a no-op
	if err := flush(); err != nil {
		return flushed, err
	}
	return flushed, nil
}
