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
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

// Job identifies one submitted document run.
type Job struct {
	ID       string
	Filename string
}

// JobResult is the outcome of a Job.
type JobResult struct {
	Job     Job
	Summary *core.EmbeddingSummary
}

// Service runs document embeddings on a worker pool.
type Service struct {
	store     storage.VectorStore
	pool      *ants.Pool
	embedOpts []Option
	logger    *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service) error

// WithPoolSize sets the number of documents embedded concurrently.
func WithPoolSize(size int) ServiceOption {
	return func(s *Service) error {
		if size < 1 {
			return fmt.Errorf("pool size must be at least 1, got %d", size)
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithServiceLogger sets the logger of the service and its runs.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithEmbeddingOptions sets options applied to every run.
func WithEmbeddingOptions(opts ...Option) ServiceOption {
	return func(s *Service) error {
		s.embedOpts = append(s.embedOpts, opts...)
		return nil
	}
}

// NewService creates a service writing to store.
// Release must be called when the service is no longer needed.
func NewService(store storage.VectorStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	s := &Service{
		store:  store,
		pool:   pool,
		logger: slog.Default().With("component", "ingestion-service"),
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	return s, nil
}

// Submit queues filename for embedding and returns its job.
// done, if not nil, is called from the worker with the result.
// Precondition failures such as a missing file are reported through done,
// not returned.
func (s *Service) Submit(ctx context.Context, filename, embedModel string, settings *ai.ProviderSettings, done func(JobResult)) (Job, error) {
	job := Job{ID: uuid.NewString(), Filename: filename}
	err := s.pool.Submit(func() {
		summary := s.runJob(ctx, job, embedModel, settings)
		if done != nil {
			done(JobResult{Job: job, Summary: summary})
		}
	})
	if err != nil {
		return job, fmt.Errorf("submit %s: %w", filename, err)
	}
	s.logger.Debug("job submitted", "job", job.ID, "file", filename)
	return job, nil
}

// EmbedFiles embeds filenames concurrently and waits for all of them.
// Results are in the order of filenames.
func (s *Service) EmbedFiles(ctx context.Context, embedModel string, settings *ai.ProviderSettings, filenames ...string) []JobResult {
	results := make([]JobResult, len(filenames))
	var wg sync.WaitGroup
	for i, name := range filenames {
		wg.Add(1)
		job, err := s.Submit(ctx, name, embedModel, settings, func(r JobResult) {
			results[i] = r
			wg.Done()
		})
		if err != nil {
			results[i] = JobResult{Job: job, Summary: core.FailedSummary(embedModel, err)}
			wg.Done()
		}
	}
	wg.Wait()
	return results
}

// Running returns the number of runs in progress.
func (s *Service) Running() int {
	return s.pool.Running()
}

// Release releases the worker pool. The service should not be used afterwards.
func (s *Service) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

func (s *Service) runJob(ctx context.Context, job Job, embedModel string, settings *ai.ProviderSettings) *core.EmbeddingSummary {
	logger := s.logger.With("job", job.ID)
	opts := make([]Option, 0, len(s.embedOpts)+1)
	opts = append(opts, WithLogger(logger))
	opts = append(opts, s.embedOpts...)

	d, err := NewDocumentEmbedding(job.Filename, s.store, opts...)
	if err != nil {
		logger.Error("job rejected", "file", job.Filename, "err", err)
		return core.FailedSummary(embedModel, err)
	}
	if d.writeLock == nil {
		d.writeLock = s.classLock(d.className)
	}
	return d.EmbedAndPersistDocument(ctx, embedModel, settings)
}

func (s *Service) classLock(className string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[className]
	if !ok {
		l = &sync.Mutex{}
		s.locks[className] = l
	}
	return l
}
