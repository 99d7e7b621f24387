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

// Package ingestion embeds uploaded documents into the vector store.
//
// A DocumentEmbedding run reads one document, splits it into sentence-window
// chunks, embeds every chunk sequentially through the configured provider
// and hands the resulting records to a BatchWriter, which flushes them to the
// store in fixed-size batches. Every run ends in an EmbeddingSummary; errors
// never escape a run.
//
// Embedding is all-or-nothing: a single failed chunk fails the run before
// anything is written. Batches already flushed when a later batch fails stay
// in the store, but record keys are derived from class, file and chunk index,
// so running the document again overwrites them.
//
// The Service type runs several documents concurrently on a worker pool.
// Each run gets its own provider instance, and batch writing is serialized
// per store class.
package ingestion
