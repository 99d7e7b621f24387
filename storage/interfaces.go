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

package storage

import (
	"context"

	"github.com/poiesic/docembed/core"
)

// DefaultClassName is the class documents are stored in unless configured otherwise.
const DefaultClassName = "DocumentVectors"

// Batch accumulates records for one class and writes them on Flush.
type Batch interface {
	// Add validates record, assigns its key and appends it to the batch.
	// Nothing is written until Flush.
	Add(record *core.DocumentVectorRecord) error

	// Len returns the number of records waiting to be flushed.
	Len() int

	// Flush writes the accumulated records and empties the batch.
	// Flushing an empty batch is a no-op.
	Flush(ctx context.Context) error
}

// VectorStore persists document vector records grouped by class.
type VectorStore interface {
	// NewBatch returns an empty batch builder for className.
	NewBatch(className string) Batch

	// BatchInsert writes records to className as a single batch.
	BatchInsert(ctx context.Context, className string, records ...*core.DocumentVectorRecord) error

	// GetRecord retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetRecord(ctx context.Context, className string, id core.ID) (*core.DocumentVectorRecord, error)

	// FileRecords returns the records stored for file, ordered by chunk index.
	FileRecords(ctx context.Context, className, file string) ([]*core.DocumentVectorRecord, error)

	// FindSimilar finds records whose cosine similarity with vector is at
	// least minSimilarity, best first, up to limit results.
	FindSimilar(ctx context.Context, className string, vector []float32, minSimilarity float32, limit int) ([]core.VectorMatch, error)

	// DeleteFile removes every record of file and returns how many were removed.
	DeleteFile(ctx context.Context, className, file string) (int, error)

	// CountRecords returns the number of records in className.
	CountRecords(ctx context.Context, className string) (int, error)

	// Close closes the store and releases resources.
	Close() error
}
