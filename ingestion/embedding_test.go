package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/mock"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/document"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/storage/badger"
)

// seventeenSentences is a document of 17 four-word sentences.
func seventeenSentences() string {
	var b strings.Builder
	for i := 1; i <= 17; i++ {
		fmt.Fprintf(&b, "This is sentence %d. ", i)
	}
	return b.String()
}

type fixture struct {
	dir      string
	store    storage.VectorStore
	provider *mock.MockProvider
	settings *ai.ProviderSettings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := mock.NewMockProvider()
	p.Embedder.Dimensions = 16
	return &fixture{
		dir:      t.TempDir(),
		store:    store,
		provider: p,
		settings: ai.DefaultSettings(),
	}
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func (f *fixture) factory(settings *ai.ProviderSettings) (ai.Provider, error) {
	return f.provider, nil
}

func (f *fixture) embedding(t *testing.T, name string, opts ...Option) *DocumentEmbedding {
	t.Helper()
	opts = append([]Option{WithUploadsDir(f.dir), WithProviderFactory(f.factory)}, opts...)
	d, err := NewDocumentEmbedding(name, f.store, opts...)
	require.NoError(t, err)
	return d
}

func TestNewDocumentEmbedding_Preconditions(t *testing.T) {
	f := newFixture(t)

	_, err := NewDocumentEmbedding("", f.store, WithUploadsDir(f.dir))
	assert.ErrorIs(t, err, ErrFilenameRequired)

	_, err = NewDocumentEmbedding("missing.txt", f.store, WithUploadsDir(f.dir))
	assert.ErrorIs(t, err, document.ErrFileNotFound)

	f.write(t, "doc.txt", "Hello.")
	_, err = NewDocumentEmbedding("doc.txt", nil, WithUploadsDir(f.dir))
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewDocumentEmbedding("doc.txt", f.store, WithUploadsDir(f.dir), WithRetry(0, time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestEmbedAndPersistDocument_Success(t *testing.T) {
	f := newFixture(t)
	content := seventeenSentences()
	f.write(t, "notes.txt", content)

	d := f.embedding(t, "notes.txt")
	assert.Equal(t, StateCreated, d.State())

	summary := d.EmbedAndPersistDocument(context.Background(), "nomic-embed-text", f.settings)
	require.NotNil(t, summary)
	require.True(t, summary.Success, summary.ErrorMessage)

	assert.Equal(t, "nomic-embed-text", summary.EmbedModel)
	assert.Equal(t, 3, summary.NoOfChunks)
	assert.Equal(t, len(content), summary.TextCharacterCount)
	assert.Equal(t, 17*4, summary.TotalDocumentTokens)
	assert.Empty(t, summary.ErrorMessage)
	assert.Equal(t, StateCompleted, d.State())
	assert.Equal(t, 3, f.provider.Embedder.CallCount())

	records, err := f.store.FileRecords(context.Background(), storage.DefaultClassName, "notes.txt")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i, rec.ChunkIndex)
		assert.Equal(t, 3, rec.ChunkTotal)
		assert.Len(t, rec.Vector, 16)
		assert.True(t, rec.HasTokens)
	}
	assert.True(t, strings.HasPrefix(records[2].Text, "This is sentence 17."))
}

func TestEmbedAndPersistDocument_RunsOnce(t *testing.T) {
	f := newFixture(t)
	f.write(t, "doc.txt", "One. Two.")

	d := f.embedding(t, "doc.txt")
	require.True(t, d.EmbedAndPersistDocument(context.Background(), "m", f.settings).Success)

	again := d.EmbedAndPersistDocument(context.Background(), "m", f.settings)
	assert.False(t, again.Success)
	assert.Equal(t, 1, f.provider.Embedder.CallCount())
}

func TestEmbedAndPersistDocument_RerunDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())
	ctx := context.Background()

	for range 2 {
		summary := f.embedding(t, "notes.txt").EmbedAndPersistDocument(ctx, "m", f.settings)
		require.True(t, summary.Success, summary.ErrorMessage)
	}

	count, err := f.store.CountRecords(ctx, storage.DefaultClassName)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEmbedAndPersistDocument_TransportFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())
	f.provider.Embedder.EmbedFunc = func(ctx context.Context, text, model string, s *ai.ProviderSettings) (*ai.EmbedResult, error) {
		return nil, ai.NewError(ai.ErrorKindTransport, errors.New("connection refused"), "embedding request failed")
	}

	d := f.embedding(t, "notes.txt")
	summary := d.EmbedAndPersistDocument(context.Background(), "m", f.settings)

	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, "embedding request failed")
	assert.Zero(t, summary.NoOfChunks)
	assert.Zero(t, summary.TextCharacterCount)
	assert.Zero(t, summary.TotalDocumentTokens)
	assert.Equal(t, StateFailed, d.State())

	// all-or-nothing: nothing reached the store
	assert.Equal(t, 1, f.provider.Embedder.CallCount())
	count, err := f.store.CountRecords(context.Background(), storage.DefaultClassName)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEmbedAndPersistDocument_FailsOnLaterChunk(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())
	var calls atomic.Int32
	f.provider.Embedder.EmbedFunc = func(ctx context.Context, text, model string, s *ai.ProviderSettings) (*ai.EmbedResult, error) {
		if calls.Add(1) == 2 {
			return nil, ai.NewError(ai.ErrorKindStatus, nil, "model not loaded")
		}
		return &ai.EmbedResult{Vector: mock.GenerateDeterministicVector(text, 16)}, nil
	}

	summary := f.embedding(t, "notes.txt").EmbedAndPersistDocument(context.Background(), "m", f.settings)
	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, "chunk 2/3")
	assert.Equal(t, int32(2), calls.Load())

	count, err := f.store.CountRecords(context.Background(), storage.DefaultClassName)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEmbedAndPersistDocument_EmbeddingUnsupported(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())

	chatOnly := func(*ai.ProviderSettings) (ai.Provider, error) {
		return mock.ChatOnlyProvider{Provider: f.provider}, nil
	}
	d := f.embedding(t, "notes.txt", WithProviderFactory(chatOnly))
	summary := d.EmbedAndPersistDocument(context.Background(), "m", f.settings)

	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, ai.ErrEmbeddingUnsupported.Error())
	assert.Zero(t, f.provider.Embedder.CallCount())
	assert.Equal(t, StateFailed, d.State())

	disabled := ai.NewProviderSettings(ai.WithoutEmbedding())
	summary = f.embedding(t, "notes.txt").EmbedAndPersistDocument(context.Background(), "m", disabled)
	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, ai.ErrEmbeddingUnsupported.Error())
	assert.Zero(t, f.provider.Embedder.CallCount())
}

func TestEmbedAndPersistDocument_NoContent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "blank.txt", "  \n\n \t ")

	summary := f.embedding(t, "blank.txt").EmbedAndPersistDocument(context.Background(), "m", f.settings)
	assert.False(t, summary.Success)
	assert.Equal(t, "no content extracted", summary.ErrorMessage)
	assert.Zero(t, summary.NoOfChunks)
	assert.Zero(t, f.provider.Embedder.CallCount())
}

func TestEmbedAndPersistDocument_DimensionMismatch(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())
	f.settings.EmbeddingDimensions = 8

	summary := f.embedding(t, "notes.txt").EmbedAndPersistDocument(context.Background(), "m", f.settings)
	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, core.ErrDimensionMismatch.Error())
}

func TestEmbedAndPersistDocument_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := f.embedding(t, "notes.txt").EmbedAndPersistDocument(ctx, "m", f.settings)
	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, context.Canceled.Error())
	assert.Zero(t, f.provider.Embedder.CallCount())
}

func TestEmbedAndPersistDocument_Retry(t *testing.T) {
	f := newFixture(t)
	f.write(t, "doc.txt", "Only one sentence here.")
	var calls atomic.Int32
	f.provider.Embedder.EmbedFunc = func(ctx context.Context, text, model string, s *ai.ProviderSettings) (*ai.EmbedResult, error) {
		if calls.Add(1) == 1 {
			return nil, ai.NewError(ai.ErrorKindTransport, errors.New("reset by peer"), "embedding request failed")
		}
		return &ai.EmbedResult{Vector: []float32{0.6, 0.8}, TotalTokens: 4, HasTokens: true}, nil
	}

	summary := f.embedding(t, "doc.txt", WithRetry(3, time.Millisecond)).
		EmbedAndPersistDocument(context.Background(), "m", f.settings)
	require.True(t, summary.Success, summary.ErrorMessage)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 4, summary.TotalDocumentTokens)
}

func TestEmbedAndPersistDocument_BatchFailureKeepsCounts(t *testing.T) {
	f := newFixture(t)
	content := seventeenSentences()
	f.write(t, "notes.txt", content)

	store := &recordingStore{failOn: 1}
	d, err := NewDocumentEmbedding("notes.txt", store,
		WithUploadsDir(f.dir),
		WithProviderFactory(f.factory))
	require.NoError(t, err)

	summary := d.EmbedAndPersistDocument(context.Background(), "m", f.settings)
	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, ErrBatchWrite.Error())
	assert.Equal(t, 3, summary.NoOfChunks)
	assert.Equal(t, len(content), summary.TextCharacterCount)
	assert.Equal(t, 17*4, summary.TotalDocumentTokens)
}

func TestEmbedAndPersistDocument_ClassAndBatchSize(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())

	store := &recordingStore{}
	d, err := NewDocumentEmbedding("notes.txt", store,
		WithUploadsDir(f.dir),
		WithProviderFactory(f.factory),
		WithBatchSize(2),
		WithClassName("Handbooks"))
	require.NoError(t, err)

	summary := d.EmbedAndPersistDocument(context.Background(), "m", f.settings)
	require.True(t, summary.Success, summary.ErrorMessage)
	assert.Equal(t, []int{2, 1}, store.sizes())
}

func TestEmbedAndPersistDocument_Progress(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes.txt", seventeenSentences())

	var out strings.Builder
	tracker := NewProgressTracker(&out, "notes.txt", 1)
	summary := f.embedding(t, "notes.txt", WithProgress(tracker)).
		EmbedAndPersistDocument(context.Background(), "m", f.settings)
	require.True(t, summary.Success, summary.ErrorMessage)

	assert.Equal(t, 3, tracker.Current())
	assert.Contains(t, out.String(), "notes.txt: 3/3 chunks (100.0%)")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "batched", StateBatched.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", State(42).String())
}
