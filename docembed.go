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

// Package docembed embeds uploaded documents into a vector store through
// pluggable AI vendors and searches them by similarity.
package docembed

import (
	"context"
	"log/slog"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/providers"
	"github.com/poiesic/docembed/config"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/search"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/storage/badger"
)

// Database ties a vector store to the provider settings used to fill and query it.
type Database struct {
	backend   *badger.Backend
	store     storage.VectorStore
	settings  *ai.ProviderSettings
	factory   providers.Factory
	embedOpts []ingestion.Option
	searchMin *float32
	className string
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	settings   *ai.ProviderSettings
	factory    providers.Factory
	inMemory   bool
	className  string
	uploadsDir string
	embedOpts  []ingestion.Option
	searchMin  *float32
	logger     *slog.Logger
}

// WithProviderSettings sets the vendor service used for embedding and chat.
func WithProviderSettings(settings *ai.ProviderSettings) DatabaseOption {
	return func(o *databaseOptions) {
		if settings != nil {
			o.settings = settings
		}
	}
}

// WithProviderFactory replaces how provider instances are built.
func WithProviderFactory(f providers.Factory) DatabaseOption {
	return func(o *databaseOptions) {
		o.factory = f
	}
}

// WithInMemory keeps the store in memory; the file path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithClassName sets the store class documents are written to and searched in.
func WithClassName(name string) DatabaseOption {
	return func(o *databaseOptions) {
		o.className = name
	}
}

// WithUploadsDir sets the directory documents are read from.
func WithUploadsDir(dir string) DatabaseOption {
	return func(o *databaseOptions) {
		o.uploadsDir = dir
	}
}

// WithIngestionOptions adds options applied to every document embedding.
func WithIngestionOptions(opts ...ingestion.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedOpts = append(o.embedOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the vector store at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		settings:  ai.DefaultSettings(),
		className: storage.DefaultClassName,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.settings.Validate(); err != nil {
		return nil, err
	}
	settings := options.settings.Normalized()

	factory := options.factory
	if factory == nil {
		logger := options.logger
		factory = func(s *ai.ProviderSettings) (ai.Provider, error) {
			return providers.NewWithLogger(s, logger)
		}
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	store, err := badger.NewVectorStoreWithBackend(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	embedOpts := []ingestion.Option{
		ingestion.WithLogger(options.logger),
		ingestion.WithProviderFactory(factory),
		ingestion.WithClassName(options.className),
		ingestion.WithUploadsDir(options.uploadsDir),
	}
	embedOpts = append(embedOpts, options.embedOpts...)

	return &Database{
		backend:   backend,
		store:     store,
		settings:  settings,
		factory:   factory,
		embedOpts: embedOpts,
		searchMin: options.searchMin,
		className: options.className,
		logger:    options.logger,
	}, nil
}

// Open creates a Database from cfg using the service serviceID
// (the configured default when empty).
func Open(cfg *config.Config, serviceID string, opts ...DatabaseOption) (*Database, error) {
	settings, err := cfg.Provider(serviceID)
	if err != nil {
		return nil, err
	}
	splitter, err := cfg.Splitter()
	if err != nil {
		return nil, err
	}
	minSimilarity := cfg.Search.MinSimilarity

	base := []DatabaseOption{
		WithProviderSettings(settings),
		WithClassName(cfg.Storage.ClassName),
		WithUploadsDir(cfg.UploadsDir),
		WithIngestionOptions(
			ingestion.WithChunker(splitter),
			ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
			ingestion.WithRetry(cfg.Ingestion.RetryAttempts, cfg.Ingestion.GetRetryDelay()),
		),
		func(o *databaseOptions) { o.searchMin = &minSimilarity },
	}
	if cfg.Storage.InMemory {
		base = append(base, WithInMemory())
	}
	return NewDatabase(cfg.Storage.Path, append(base, opts...)...)
}

// Close closes the store and its backend.
func (db *Database) Close() error {
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing vector store", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Store returns the vector store.
func (db *Database) Store() storage.VectorStore {
	return db.store
}

// Settings returns the provider settings.
func (db *Database) Settings() *ai.ProviderSettings {
	return db.settings
}

// ClassName returns the store class in use.
func (db *Database) ClassName() string {
	return db.className
}

// NewProvider returns a fresh provider instance. Each chat conversation
// should use its own instance.
func (db *Database) NewProvider() (ai.Provider, error) {
	return db.factory(db.settings)
}

// NewDocumentEmbedding prepares the embedding of an uploaded document.
func (db *Database) NewDocumentEmbedding(filename string, opts ...ingestion.Option) (*ingestion.DocumentEmbedding, error) {
	return ingestion.NewDocumentEmbedding(filename, db.store, append(db.embedOpts[:len(db.embedOpts):len(db.embedOpts)], opts...)...)
}

// EmbedDocument embeds filename with model and reports the outcome.
// Precondition failures are reported in the summary.
func (db *Database) EmbedDocument(ctx context.Context, filename, model string, opts ...ingestion.Option) *core.EmbeddingSummary {
	d, err := db.NewDocumentEmbedding(filename, opts...)
	if err != nil {
		return core.FailedSummary(model, err)
	}
	return d.EmbedAndPersistDocument(ctx, model, db.settings)
}

// NewIngestionService returns a service embedding documents concurrently.
func (db *Database) NewIngestionService(opts ...ingestion.ServiceOption) (*ingestion.Service, error) {
	base := []ingestion.ServiceOption{
		ingestion.WithServiceLogger(db.logger),
		ingestion.WithEmbeddingOptions(db.embedOpts...),
	}
	return ingestion.NewService(db.store, append(base, opts...)...)
}

// NewSearcher returns a searcher over the store class.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	provider, err := db.NewProvider()
	if err != nil {
		return nil, err
	}
	base := []search.Option{
		search.WithLogger(db.logger),
		search.WithClassName(db.className),
	}
	if db.searchMin != nil {
		base = append(base, search.WithMinSimilarity(*db.searchMin))
	}
	return search.NewSearcher(db.store, provider, db.settings, append(base, opts...)...)
}

// DeleteDocument removes the stored chunks of filename.
func (db *Database) DeleteDocument(ctx context.Context, filename string) (int, error) {
	return db.store.DeleteFile(ctx, db.className, filename)
}
