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

// Package transport performs outbound HTTP requests for vendor providers.
//
// Every request yields a Result holding either a response body stream or a
// structured *ai.Error. Network failures, vendor status errors and successful
// responses without a body are reported as distinct error kinds, so providers
// never hand an unusable stream to a consumer.
//
// The body of a successful response is bound to the request context: once the
// context is cancelled further reads return io.EOF instead of an error, which
// lets a cancelled chat stream end cleanly for its reader.
package transport
