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

package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

const (
	// DefaultMinSimilarity is the lowest cosine similarity a candidate may have.
	DefaultMinSimilarity float32 = 0.60

	// verbatimBoost is added to chunks containing every query word.
	verbatimBoost float32 = 0.3

	// candidateFactor widens the vector search so boosted chunks can move up.
	candidateFactor = 2
)

// Result is one ranked chunk.
type Result struct {
	Record     *core.DocumentVectorRecord
	Similarity float32 // cosine similarity with the query
	Verbatim   bool    // chunk contains every query word
	Score      float32
}

// Searcher runs similarity searches over one store class.
type Searcher struct {
	store         storage.VectorStore
	embedder      ai.Embedder
	settings      *ai.ProviderSettings
	className     string
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithClassName sets the class searched. Default is storage.DefaultClassName.
func WithClassName(name string) Option {
	return func(s *Searcher) error {
		if name != "" {
			s.className = name
		}
		return nil
	}
}

// WithMinSimilarity sets the similarity threshold of candidates.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		if min < -1 || min > 1 {
			return fmt.Errorf("min similarity must be within [-1, 1], got %v", min)
		}
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a searcher embedding queries through provider.
// The provider must support embeddings under settings.
func NewSearcher(store storage.VectorStore, provider ai.Provider, settings *ai.ProviderSettings, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	embedder, err := ai.EmbedderFor(provider, settings)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		store:         store,
		embedder:      embedder,
		settings:      settings,
		className:     storage.DefaultClassName,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches for chunks similar to query, embedded with model.
// Returns up to maxHits results, ranked by score.
func (s *Searcher) FindSimilar(ctx context.Context, query, model string, maxHits int) ([]*Result, error) {
	return s.FindSimilarWithMonitor(ctx, query, model, maxHits, nil)
}

// FindSimilarWithMonitor is FindSimilar reporting each stage to monitor.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query, model string, maxHits int, monitor SearchMonitor) ([]*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return []*Result{}, nil
	}

	monitor.Start(query)

	embedding, err := s.embedder.Embed(ctx, query, model, s.settings)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	if embedding == nil || len(embedding.Vector) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}
	monitor.AfterEmbedding(len(embedding.Vector))

	matches, err := s.store.FindSimilar(ctx, s.className, embedding.Vector, s.minSimilarity, maxHits*candidateFactor)
	if err != nil {
		s.logger.Error("error querying for similar records", "class", s.className, "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(matches)

	results := make([]*Result, 0, len(matches))
	for _, match := range matches {
		if match.Record == nil {
			continue
		}
		r := &Result{
			Record:     match.Record,
			Similarity: match.Score,
			Score:      match.Score,
		}
		if containsAllQueryWords(match.Record.Text, query) {
			r.Verbatim = true
			r.Score += verbatimBoost
			monitor.VerbatimHit(match.Record)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}
