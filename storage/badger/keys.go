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

package badger

import (
	"encoding/binary"

	"github.com/poiesic/docembed/core"
)

const (
	vectorRecordPrefix = "docvec"
	fileIndexPrefix    = "docfil"
	keySeparator       = 0x00
)

// makeClassPrefix generates the key prefix shared by all records of a class.
// Format: prefix:class\x00
func makeClassPrefix(className string) []byte {
	buf := make([]byte, 0, len(vectorRecordPrefix)+len(className)+2)
	buf = append(buf, vectorRecordPrefix...)
	buf = append(buf, ':')
	buf = append(buf, className...)
	return append(buf, keySeparator)
}

// makeRecordKey generates the key of a record.
// Format: prefix:class\x00id
func makeRecordKey(className string, id core.ID) []byte {
	prefix := makeClassPrefix(className)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeFilePrefix generates the index prefix of one file's records.
// Format: prefix:class\x00file\x00
func makeFilePrefix(className, file string) []byte {
	buf := make([]byte, 0, len(fileIndexPrefix)+len(className)+len(file)+3)
	buf = append(buf, fileIndexPrefix...)
	buf = append(buf, ':')
	buf = append(buf, className...)
	buf = append(buf, keySeparator)
	buf = append(buf, file...)
	return append(buf, keySeparator)
}

// makeFileIndexKey generates the index key linking a file to one of its records.
// Format: prefix:class\x00file\x00id
func makeFileIndexKey(className, file string, id core.ID) []byte {
	prefix := makeFilePrefix(className, file)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// idFromKey extracts the trailing ID of a record or index key.
func idFromKey(key []byte) (core.ID, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:])), true
}
