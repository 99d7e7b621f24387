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

// Package ai provides the provider abstraction used by docembed.
//
// Vendors expose chat completion, embedding, image generation and model
// listing through very different APIs. This package defines one capability
// interface for all of them so the ingestion pipeline and the CLI can talk to
// any configured vendor without inspecting its concrete type.
//
// # Design Principles
//
// The package is designed around two interfaces:
//
//   - Provider: chat completions (streaming, cancellable), model listing,
//     image generation and stream event decoding
//   - Embedder: optional capability for providers that can embed text
//
// Provider operations never return raw lower-level errors. Chat completions
// return a CompletionResult that carries either a stream or a structured
// *Error, never both. Model listing degrades to an empty slice. Operations a
// vendor does not offer are reported through flags (ImageResponse.NotImplementedOrSupported)
// or, for embeddings, through ErrEmbeddingUnsupported from EmbedderFor, which
// callers invoke when they configure a run rather than midway through it.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible servers (LM Studio, LocalAI)
//   - ai/anthropic: Anthropic Messages API
//   - ai/ollama: Ollama native API
//   - ai/providers: selects an implementation from ProviderSettings
//   - ai/mock: test doubles
//
// # Cancellation
//
// When ChatCompletions is called with cancellation requested, the result
// carries a CallHandle. Cancelling the handle, or calling
// CancelChatCompletionStream on the provider, ends the stream: further reads
// return io.EOF. Both are idempotent.
//
// # Usage Example
//
//	settings := ai.NewProviderSettings(
//	    ai.WithServiceID(ai.VendorOllama),
//	    ai.WithURL("http://localhost:11434"),
//	    ai.WithEmbedding("/api/embed"),
//	)
//	provider, err := providers.New(settings)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result := provider.ChatCompletions(ctx, "llama3.2", messages, settings.URL, settings.APIKey, true)
//	if result.IsError() {
//	    log.Fatal(result.Err)
//	}
//	defer result.Stream.Close()
//	err = ai.ReadStream(result.Stream, provider.ConvertResponse, func(chunk *ai.ChatCompletionResponse) error {
//	    fmt.Print(chunk.Content())
//	    return nil
//	})
package ai
