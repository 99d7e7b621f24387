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

import "errors"

var (
	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrProviderFactoryRequired is returned when a provider factory is not provided.
	ErrProviderFactoryRequired = errors.New("provider factory required")

	// ErrNoContent is returned when a document produced no chunks.
	ErrNoContent = errors.New("no content extracted")

	// ErrBatchWrite is returned when the vector store rejected a batch.
	ErrBatchWrite = errors.New("batch write failed")

	// ErrInvalidBatchSize is returned for a batch capacity below one.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrSettingsRequired is returned when a run has no provider settings.
	ErrSettingsRequired = errors.New("provider settings required")
)
