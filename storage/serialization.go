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

package storage

import (
	"fmt"

	"github.com/poiesic/docembed/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocumentVectorRecord serializes a DocumentVectorRecord to bytes.
func MarshalDocumentVectorRecord(record *core.DocumentVectorRecord) []byte {
	buf := make([]byte, core.DocumentVectorRecordMUS.Size(*record))
	core.DocumentVectorRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalDocumentVectorRecord deserializes a DocumentVectorRecord from bytes.
func UnmarshalDocumentVectorRecord(data []byte) (*core.DocumentVectorRecord, error) {
	record, _, err := core.DocumentVectorRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}
