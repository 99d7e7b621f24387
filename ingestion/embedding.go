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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/providers"
	"github.com/poiesic/docembed/chunker"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/document"
	"github.com/poiesic/docembed/storage"
)

// ErrFilenameRequired is returned by NewDocumentEmbedding for an empty filename.
var ErrFilenameRequired = document.ErrFilenameRequired

// State is the lifecycle position of a DocumentEmbedding.
type State int

const (
	StateCreated State = iota
	StateContentRead
	StateChunked
	StateEmbedding
	StateBatched
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateContentRead:
		return "content-read"
	case StateChunked:
		return "chunked"
	case StateEmbedding:
		return "embedding"
	case StateBatched:
		return "batched"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Default retry settings for embed calls.
const (
	DefaultMaxAttempts = 1
	DefaultRetryDelay  = 500 * time.Millisecond
)

// DocumentEmbedding embeds one uploaded document into the vector store.
// It is single-use: EmbedAndPersistDocument runs once.
type DocumentEmbedding struct {
	filename   string
	path       string
	uploadsDir string
	store      storage.VectorStore
	reader     document.Reader
	splitter   chunker.Splitter
	factory    providers.Factory
	className  string
	batchSize  int

	maxAttempts int
	retryDelay  time.Duration

	progress  ProgressReporter
	writeLock sync.Locker
	logger    *slog.Logger

	mu    sync.Mutex
	state State
	ran   bool
}

// Option configures a DocumentEmbedding.
type Option func(*DocumentEmbedding) error

// WithLogger sets the logger for the run.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DocumentEmbedding) error {
		if logger != nil {
			d.logger = logger
		}
		return nil
	}
}

// WithReader replaces the file reader.
func WithReader(r document.Reader) Option {
	return func(d *DocumentEmbedding) error {
		if r != nil {
			d.reader = r
		}
		return nil
	}
}

// WithChunker replaces the default sentence window splitter.
func WithChunker(s chunker.Splitter) Option {
	return func(d *DocumentEmbedding) error {
		if s != nil {
			d.splitter = s
		}
		return nil
	}
}

// WithProviderFactory sets how the run constructs its provider.
func WithProviderFactory(f providers.Factory) Option {
	return func(d *DocumentEmbedding) error {
		if f == nil {
			return ErrProviderFactoryRequired
		}
		d.factory = f
		return nil
	}
}

// WithBatchSize sets the number of records per store batch.
func WithBatchSize(n int) Option {
	return func(d *DocumentEmbedding) error {
		if n < 1 {
			return ErrInvalidBatchSize
		}
		d.batchSize = n
		return nil
	}
}

// WithRetry sets how often each embed call is attempted and the initial backoff.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(d *DocumentEmbedding) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		d.maxAttempts = maxAttempts
		d.retryDelay = baseDelay
		return nil
	}
}

// WithProgress reports per-chunk embedding progress.
func WithProgress(p ProgressReporter) Option {
	return func(d *DocumentEmbedding) error {
		if p != nil {
			d.progress = p
		}
		return nil
	}
}

// WithClassName sets the store class records are written to.
func WithClassName(name string) Option {
	return func(d *DocumentEmbedding) error {
		if name != "" {
			d.className = name
		}
		return nil
	}
}

// WithUploadsDir sets the directory filenames are resolved against.
func WithUploadsDir(dir string) Option {
	return func(d *DocumentEmbedding) error {
		if dir != "" {
			d.uploadsDir = dir
		}
		return nil
	}
}

// WithWriteLock serializes the batch-writing phase with other runs holding the same lock.
func WithWriteLock(l sync.Locker) Option {
	return func(d *DocumentEmbedding) error {
		d.writeLock = l
		return nil
	}
}

// NewDocumentEmbedding prepares the run for filename, resolved inside the
// uploads directory. It fails with ErrFilenameRequired for an empty name and
// with document.ErrFileNotFound when the file is absent.
func NewDocumentEmbedding(filename string, store storage.VectorStore, opts ...Option) (*DocumentEmbedding, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	d := &DocumentEmbedding{
		filename:    filename,
		uploadsDir:  document.DefaultUploadsDir,
		store:       store,
		reader:      document.NewFileReader(),
		splitter:    chunker.Default(),
		factory:     providers.New,
		className:   storage.DefaultClassName,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		progress:    nopProgress{},
		logger:      slog.Default().With("component", "document-embedding"),
		state:       StateCreated,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	path, err := document.ResolvePath(d.uploadsDir, filename)
	if err != nil {
		return nil, err
	}
	d.path = path
	d.logger = d.logger.With("file", filename)
	return d, nil
}

// Filename returns the name the run was created for.
func (d *DocumentEmbedding) Filename() string {
	return d.filename
}

// State returns the current lifecycle state.
func (d *DocumentEmbedding) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *DocumentEmbedding) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// EmbedAndPersistDocument reads, chunks and embeds the document with
// embedModel, writes the records to the store and reports the outcome.
// It never returns nil and never panics on provider or store failures.
//
// Reading and embedding failures produce a summary with zero counts. When the
// store rejects a batch the counts of the embedded document are kept.
func (d *DocumentEmbedding) EmbedAndPersistDocument(ctx context.Context, embedModel string, settings *ai.ProviderSettings) *core.EmbeddingSummary {
	d.mu.Lock()
	if d.ran {
		d.mu.Unlock()
		return core.FailedSummary(embedModel, errors.New("document embedding already ran"))
	}
	d.ran = true
	d.mu.Unlock()

	started := time.Now()
	summary := d.run(ctx, embedModel, settings)
	if summary.Success {
		d.setState(StateCompleted)
		d.logger.Info("document embedded",
			"model", embedModel,
			"chunks", summary.NoOfChunks,
			"tokens", summary.TotalDocumentTokens,
			"elapsed", time.Since(started))
	} else {
		d.setState(StateFailed)
		d.logger.Error("document embedding failed", "model", embedModel, "err", summary.ErrorMessage)
	}
	return summary
}

func (d *DocumentEmbedding) run(ctx context.Context, embedModel string, settings *ai.ProviderSettings) *core.EmbeddingSummary {
	if settings == nil {
		return core.FailedSummary(embedModel, ErrSettingsRequired)
	}

	provider, err := d.factory(settings)
	if err != nil {
		return core.FailedSummary(embedModel, fmt.Errorf("create provider: %w", err))
	}
	embedder, err := ai.EmbedderFor(provider, settings)
	if err != nil {
		return core.FailedSummary(embedModel, fmt.Errorf("%s: %w", provider.ProviderID(), err))
	}

	content, err := d.reader.GetFileContent(ctx, d.path)
	if err != nil {
		return core.FailedSummary(embedModel, err)
	}
	d.setState(StateContentRead)

	chunks, err := chunker.Chunks(d.splitter, content, d.filename)
	if err != nil {
		return core.FailedSummary(embedModel, err)
	}
	d.setState(StateChunked)
	d.logger.Debug("document chunked", "chars", utf8.RuneCountInString(content), "chunks", len(chunks))

	d.setState(StateEmbedding)
	records, err := d.embedChunks(ctx, embedder, embedModel, settings, chunks)
	if err != nil {
		return core.FailedSummary(embedModel, err)
	}

	summary := &core.EmbeddingSummary{
		EmbedModel:          embedModel,
		TextCharacterCount:  utf8.RuneCountInString(content),
		NoOfChunks:          len(records),
		TotalDocumentTokens: core.SumTokens(records),
	}
	if len(records) == 0 {
		summary.ErrorMessage = ErrNoContent.Error()
		return summary
	}

	if err := d.writeRecords(ctx, records); err != nil {
		summary.ErrorMessage = err.Error()
		return summary
	}
	d.setState(StateBatched)

	summary.Success = true
	return summary
}

// embedChunks embeds chunks one at a time. The first failure aborts the run.
func (d *DocumentEmbedding) embedChunks(ctx context.Context, embedder ai.Embedder, model string, settings *ai.ProviderSettings, chunks []core.DocumentChunk) ([]*core.DocumentVectorRecord, error) {
	d.progress.Start(len(chunks))
	defer d.progress.Finish()

	dims := settings.EmbeddingDimensions
	records := make([]*core.DocumentVectorRecord, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var result *ai.EmbedResult
		err := RetryWithBackoff(ctx, d.logger, d.maxAttempts, d.retryDelay, func(ctx context.Context) error {
			var err error
			result, err = embedder.Embed(ctx, chunk.Text, model, settings)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d/%d: %w", chunk.Index+1, chunk.Total, err)
		}
		if result == nil {
			return nil, fmt.Errorf("embed chunk %d/%d: %w", chunk.Index+1, chunk.Total, ai.ErrEmptyEmbedding)
		}

		rec := core.NewDocumentVectorRecord(chunk, result.Vector)
		if result.HasTokens {
			rec.WithTokens(result.TotalTokens)
		}
		if dims == 0 {
			dims = len(result.Vector)
		}
		if err := core.ValidateVectorRecord(rec, dims); err != nil {
			return nil, fmt.Errorf("embed chunk %d/%d: %w", chunk.Index+1, chunk.Total, err)
		}
		records = append(records, rec)
		d.progress.Increment(1)
	}
	return records, nil
}

func (d *DocumentEmbedding) writeRecords(ctx context.Context, records []*core.DocumentVectorRecord) error {
	writer, err := NewBatchWriter(d.store, d.className,
		WithCapacity(d.batchSize),
		WithBatchLogger(d.logger))
	if err != nil {
		return err
	}

	if d.writeLock != nil {
		d.writeLock.Lock()
		defer d.writeLock.Unlock()
	}

	batches, err := writer.Write(ctx, records)
	if err != nil {
		return err
	}
	d.logger.Debug("records written", "class", d.className, "records", len(records), "batches", batches)
	return nil
}
