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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

// VectorStore implements storage.VectorStore using BadgerDB.
type VectorStore struct {
	backend   *Backend
	ownsStore bool
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewVectorStore opens (or creates) a store at path.
//
// Returns storage.VectorStore interface (not *VectorStore) to enforce abstraction.
func NewVectorStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newVectorStore(backend, true), nil
}

// NewVectorStoreWithBackend creates a store on an already opened backend.
// The caller keeps ownership of the backend.
func NewVectorStoreWithBackend(backend *Backend) (storage.VectorStore, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	return newVectorStore(backend, false), nil
}

func newVectorStore(backend *Backend, owns bool) *VectorStore {
	return &VectorStore{
		backend:   backend,
		ownsStore: owns,
		logger:    slog.Default().With("component", "vector-store"),
	}
}

func validateClass(className string) error {
	if className == "" || strings.ContainsRune(className, keySeparator) {
		return fmt.Errorf("%w: %q", storage.ErrInvalidClass, className)
	}
	return nil
}

func (s *VectorStore) checkOpen() error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// NewBatch returns an empty batch builder for className.
func (s *VectorStore) NewBatch(className string) storage.Batch {
	return &Batch{store: s, className: className}
}

// BatchInsert writes records to className as a single batch.
func (s *VectorStore) BatchInsert(ctx context.Context, className string, records ...*core.DocumentVectorRecord) error {
	batch := s.NewBatch(className)
	for _, r := range records {
		if err := batch.Add(r); err != nil {
			return err
		}
	}
	return batch.Flush(ctx)
}

// GetRecord retrieves a single record by ID.
func (s *VectorStore) GetRecord(ctx context.Context, className string, id core.ID) (*core.DocumentVectorRecord, error) {
	if err := validateClass(className); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var record *core.DocumentVectorRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = readRecord(tx, makeRecordKey(className, id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func readRecord(tx *badger.Txn, key []byte) (*core.DocumentVectorRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var record *core.DocumentVectorRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalDocumentVectorRecord(val)
		return err
	})
	return record, err
}

// fileRecordIDs returns the IDs indexed for file.
func fileRecordIDs(tx *badger.Txn, className, file string) []core.ID {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = makeFilePrefix(className, file)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if id, ok := idFromKey(iter.Item().Key()); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// FileRecords returns the records stored for file, ordered by chunk index.
func (s *VectorStore) FileRecords(ctx context.Context, className, file string) ([]*core.DocumentVectorRecord, error) {
	if err := validateClass(className); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var records []*core.DocumentVectorRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range fileRecordIDs(tx, className, file) {
			record, err := readRecord(tx, makeRecordKey(className, id))
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b *core.DocumentVectorRecord) int {
		return a.ChunkIndex - b.ChunkIndex
	})
	return records, nil
}

// FindSimilar finds records of className similar to vector.
func (s *VectorStore) FindSimilar(ctx context.Context, className string, vector []float32, minSimilarity float32, limit int) ([]core.VectorMatch, error) {
	if err := validateClass(className); err != nil {
		return nil, err
	}
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var results []core.VectorMatch
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeClassPrefix(className)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.DocumentVectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalDocumentVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip records of another dimensionality
			if len(record.Vector) != len(vector) {
				continue
			}

			similarity := cosineSimilarity(vector, record.Vector)
			if similarity >= minSimilarity {
				results = append(results, core.VectorMatch{
					Record: record,
					Score:  similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b core.VectorMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteFile removes every record of file.
func (s *VectorStore) DeleteFile(ctx context.Context, className, file string) (int, error) {
	if err := validateClass(className); err != nil {
		return 0, err
	}
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var ids []core.ID
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		ids = fileRecordIDs(tx, className, file)
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	entries := make([]Entry, 0, 2*len(ids))
	for _, id := range ids {
		entries = append(entries,
			Entry{Key: makeRecordKey(className, id)},
			Entry{Key: makeFileIndexKey(className, file, id)},
		)
	}
	if err := s.backend.WriteBatch(entries); err != nil {
		return 0, err
	}
	s.logger.Debug("deleted file records", "class", className, "file", file, "count", len(ids))
	return len(ids), nil
}

// CountRecords returns the number of records in className.
func (s *VectorStore) CountRecords(ctx context.Context, className string) (int, error) {
	if err := validateClass(className); err != nil {
		return 0, err
	}
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeClassPrefix(className)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close closes the store. The backend is closed only if the store opened it.
func (s *VectorStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.ownsStore {
			err = s.backend.Close()
		}
	})
	return err
}

// Batch implements storage.Batch on a BadgerDB write batch.
type Batch struct {
	store     *VectorStore
	className string
	entries   []Entry
	count     int
}

// Add validates record, assigns its deterministic ID and queues it.
// Records are keyed by class, file and chunk index, so writing a record again
// replaces the stored row.
func (b *Batch) Add(record *core.DocumentVectorRecord) error {
	if err := validateClass(b.className); err != nil {
		return err
	}
	if err := core.ValidateVectorRecord(record, 0); err != nil {
		return err
	}

	record.Id = core.RecordID(b.className, record.File, record.ChunkIndex)
	if record.InsertedAt.IsZero() {
		record.InsertedAt = time.Now().UTC()
	}

	b.entries = append(b.entries,
		Entry{Key: makeRecordKey(b.className, record.Id), Value: storage.MarshalDocumentVectorRecord(record)},
		Entry{Key: makeFileIndexKey(b.className, record.File, record.Id), Value: []byte{}},
	)
	b.count++
	return nil
}

// Len returns the number of queued records.
func (b *Batch) Len() int {
	return b.count
}

// Flush writes the queued records. An empty batch is a no-op.
func (b *Batch) Flush(ctx context.Context) error {
	if b.count == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.store.checkOpen(); err != nil {
		return err
	}
	if err := b.store.backend.WriteBatch(b.entries); err != nil {
		return fmt.Errorf("flush %d records to class %s: %w", b.count, b.className, err)
	}
	b.store.logger.Debug("flushed batch", "class", b.className, "records", b.count)
	b.entries = nil
	b.count = 0
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
func cosineSimilarity(a, b []float32) float32 {
	dot := dotProduct(a, b)
	na := math.Sqrt(float64(dotProduct(a, a)))
	nb := math.Sqrt(float64(dotProduct(b, b)))
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(float64(dot) / (na * nb))
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

var (
	_ storage.VectorStore = (*VectorStore)(nil)
	_ storage.Batch       = (*Batch)(nil)
)
