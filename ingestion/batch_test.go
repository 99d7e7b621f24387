package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/storage/badger"
)

// recordingStore observes every flush the writer performs.
type recordingStore struct {
	storage.VectorStore

	mu         sync.Mutex
	flushSizes []int
	written    int
	failOn     int // 1-based flush call that fails; 0 never fails
}

func (s *recordingStore) NewBatch(className string) storage.Batch {
	return &recordingBatch{store: s}
}

func (s *recordingStore) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.flushSizes...)
}

type recordingBatch struct {
	store   *recordingStore
	records []*core.DocumentVectorRecord
}

func (b *recordingBatch) Add(rec *core.DocumentVectorRecord) error {
	if err := core.ValidateVectorRecord(rec, 0); err != nil {
		return err
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *recordingBatch) Len() int { return len(b.records) }

func (b *recordingBatch) Flush(ctx context.Context) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushSizes = append(s.flushSizes, len(b.records))
	if s.failOn == len(s.flushSizes) {
		return errors.New("disk full")
	}
	s.written += len(b.records)
	b.records = nil
	return nil
}

func makeRecords(n int, file string) []*core.DocumentVectorRecord {
	records := make([]*core.DocumentVectorRecord, n)
	for i := range records {
		chunk := core.DocumentChunk{Text: fmt.Sprintf("chunk %d", i), Index: i, Total: n, File: file}
		records[i] = core.NewDocumentVectorRecord(chunk, []float32{1, float32(i)})
	}
	return records
}

func TestBatchWriter_ExactCapacity(t *testing.T) {
	store := &recordingStore{}
	w, err := NewBatchWriter(store, "")
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultClassName, w.ClassName())

	batches, err := w.Write(context.Background(), makeRecords(DefaultBatchSize, "a.txt"))
	require.NoError(t, err)

	assert.Equal(t, 1, batches)
	// the remainder flush sees an empty batch and writes nothing
	assert.Equal(t, []int{DefaultBatchSize, 0}, store.sizes())
	assert.Equal(t, DefaultBatchSize, store.written)
}

func TestBatchWriter_CapacityPlusOne(t *testing.T) {
	store := &recordingStore{}
	w, err := NewBatchWriter(store, "docs")
	require.NoError(t, err)

	batches, err := w.Write(context.Background(), makeRecords(DefaultBatchSize+1, "a.txt"))
	require.NoError(t, err)

	assert.Equal(t, 2, batches)
	assert.Equal(t, []int{DefaultBatchSize, 1}, store.sizes())
	assert.Equal(t, DefaultBatchSize+1, store.written)
}

func TestBatchWriter_SmallCapacity(t *testing.T) {
	store := &recordingStore{}
	w, err := NewBatchWriter(store, "docs", WithCapacity(3))
	require.NoError(t, err)

	batches, err := w.Write(context.Background(), makeRecords(7, "a.txt"))
	require.NoError(t, err)

	assert.Equal(t, 3, batches)
	assert.Equal(t, []int{3, 3, 1}, store.sizes())
}

func TestBatchWriter_NoRecords(t *testing.T) {
	store := &recordingStore{}
	w, err := NewBatchWriter(store, "docs")
	require.NoError(t, err)

	batches, err := w.Write(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, batches)
	assert.Zero(t, store.written)
}

func TestBatchWriter_FlushFailure(t *testing.T) {
	store := &recordingStore{failOn: 2}
	w, err := NewBatchWriter(store, "docs", WithCapacity(2))
	require.NoError(t, err)

	batches, err := w.Write(context.Background(), makeRecords(5, "a.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchWrite)
	assert.Contains(t, err.Error(), "batch 2")

	// the first batch is not rolled back
	assert.Equal(t, 1, batches)
	assert.Equal(t, 2, store.written)
}

func TestBatchWriter_InvalidRecord(t *testing.T) {
	store := &recordingStore{}
	w, err := NewBatchWriter(store, "docs")
	require.NoError(t, err)

	records := makeRecords(2, "a.txt")
	records[1].Vector = nil

	_, err = w.Write(context.Background(), records)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchWrite)
	assert.ErrorIs(t, err, core.ErrEmptyVector)
	assert.Empty(t, store.sizes())
}

func TestBatchWriter_Options(t *testing.T) {
	_, err := NewBatchWriter(nil, "docs")
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewBatchWriter(&recordingStore{}, "docs", WithCapacity(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestBatchWriter_BadgerStore(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	w, err := NewBatchWriter(store, "docs", WithCapacity(40))
	require.NoError(t, err)

	ctx := context.Background()
	batches, err := w.Write(ctx, makeRecords(250, "big.txt"))
	require.NoError(t, err)
	assert.Equal(t, 7, batches)

	count, err := store.CountRecords(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 250, count)

	// writing the same chunks again replaces them
	_, err = w.Write(ctx, makeRecords(250, "big.txt"))
	require.NoError(t, err)
	count, err = store.CountRecords(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 250, count)
}
