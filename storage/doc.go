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

// Package storage provides the vector store abstraction for docembed.
//
// This package defines the interfaces that decouple the ingestion pipeline
// from the concrete store. Records are grouped in classes; a class is the
// unit of search and of batch writing.
//
// # Constructor Return Type Pattern
//
// Public constructors of store implementations return the VectorStore
// interface:
//
//	store, err := badger.NewVectorStore(path)  // returns storage.VectorStore
//
// # Architecture
//
//   - VectorStore: batch builder, similarity search and maintenance per class
//   - Batch: accumulates records and sends them to the store on Flush
//
// Record keys are derived from class, file and chunk index (core.RecordID),
// so writing the same document twice overwrites its rows instead of
// duplicating them.
//
// # Usage
//
//	store, err := badger.NewVectorStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	batch := store.NewBatch("Documents")
//	for _, record := range records {
//	    if err := batch.Add(record); err != nil {
//	        return err
//	    }
//	}
//	err = batch.Flush(ctx)
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// VectorStore implementations must be safe for concurrent use. A Batch is
// not; it belongs to one writer, and only one batch per class should be
// flushing at a time.
package storage
