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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidChatMessage indicates a ChatMessage failed validation.
	ErrInvalidChatMessage = errors.New("invalid chat message")

	// ErrInvalidChatRole indicates a role outside user, system and assistant.
	ErrInvalidChatRole = errors.New("invalid chat role")

	// ErrInvalidVectorRecord indicates a DocumentVectorRecord failed validation.
	ErrInvalidVectorRecord = errors.New("invalid vector record")

	// ErrEmptyVector indicates a record has no embedding.
	ErrEmptyVector = errors.New("embedding vector cannot be empty")

	// ErrDimensionMismatch indicates a vector length differs from the expected dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyFile indicates the owning filename is empty.
	ErrEmptyFile = errors.New("file name cannot be empty")

	// ErrInvalidChunkIndex indicates an index outside [0, total).
	ErrInvalidChunkIndex = errors.New("chunk index out of range")
)
