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

import (
	"fmt"
)

// ValidateChatMessage validates a ChatMessage according to domain rules.
//
// Validation rules:
//   - Role must be user, system or assistant
//
// Empty content is allowed; some vendors accept blank assistant turns.
func ValidateChatMessage(msg ChatMessage) error {
	if err := ValidateChatRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChatMessage, err)
	}
	return nil
}

// ValidateChatMessages validates every message of a conversation.
func ValidateChatMessages(messages []ChatMessage) error {
	for i, msg := range messages {
		if err := ValidateChatMessage(msg); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateChatRole validates that a ChatRole has a known value.
func ValidateChatRole(role ChatRole) error {
	switch role {
	case ChatRoleUser, ChatRoleSystem, ChatRoleAssistant:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidChatRole, string(role))
}

// ValidateVectorRecord validates a DocumentVectorRecord according to domain rules.
//
// Validation rules:
//   - File must not be empty
//   - ChunkIndex must be within [0, ChunkTotal)
//   - Vector must not be empty
//   - Vector length must equal dimensions when dimensions > 0
func ValidateVectorRecord(record *DocumentVectorRecord, dimensions int) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidVectorRecord)
	}

	if record.File == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyFile)
	}

	if record.ChunkIndex < 0 || record.ChunkIndex >= record.ChunkTotal {
		return fmt.Errorf("%w: %w: %d of %d", ErrInvalidVectorRecord, ErrInvalidChunkIndex,
			record.ChunkIndex, record.ChunkTotal)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyVector)
	}

	if dimensions > 0 && len(record.Vector) != dimensions {
		return fmt.Errorf("%w: %w: expected %d, got %d", ErrInvalidVectorRecord, ErrDimensionMismatch,
			dimensions, len(record.Vector))
	}

	return nil
}
