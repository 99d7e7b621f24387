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

// Package search finds stored document chunks similar to a text query.
//
// The Searcher embeds the query with the same provider and model the
// documents were embedded with, runs a cosine similarity search over one
// store class and re-ranks the candidates:
//   - the base score is the cosine similarity
//   - chunks containing every significant query word get a verbatim boost
//
// Stop words are ignored when checking for verbatim matches.
package search
