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

package ai

import (
	"context"

	"github.com/poiesic/docembed/core"
)

// Provider normalizes one vendor API behind a common capability set.
// A Provider instance tracks at most one cancellable chat stream; use one
// instance per logical conversation.
type Provider interface {
	// ProviderID returns the vendor identifier, e.g. "ollama".
	ProviderID() string

	// ListModels queries the vendor for available models.
	// Failures are logged and produce an empty slice; model lists are advisory.
	// With embeddedOnly set only embedding-capable models are returned.
	ListModels(ctx context.Context, settings *ProviderSettings, embeddedOnly bool) []ModelDescriptor

	// ChatCompletions starts a streamed chat completion.
	// When withCancel is set a fresh CallHandle is created for this call and
	// becomes the tracked stream of the provider. Starting another call does
	// not cancel a previous one.
	ChatCompletions(ctx context.Context, model string, messages []core.ChatMessage, baseURL, apiKey string, withCancel bool) *CompletionResult

	// CancelChatCompletionStream cancels the tracked stream.
	// Cancelling twice, or with nothing in flight, is a no-op.
	CancelChatCompletionStream()

	// ConvertResponse decodes one stream event payload.
	// A payload that cannot be decoded is an error; it is never skipped.
	ConvertResponse(payload []byte) (*ChatCompletionResponse, error)

	// GenerateImage creates images from a prompt. Vendors without image
	// generation return a response flagged NotImplementedOrSupported.
	GenerateImage(ctx context.Context, req *ImageRequest, baseURL, apiKey string) *ImageResponse

	// TitleGenerationModel returns the model used to title conversations held with model.
	TitleGenerationModel(model string) string
}

// Embedder is implemented by providers able to embed text.
// Embed must only be called with settings accepted by EmbedderFor.
type Embedder interface {
	Embed(ctx context.Context, text, model string, settings *ProviderSettings) (*EmbedResult, error)
}

// EmbedderFor returns the embedding capability of p for settings.
// It returns ErrEmbeddingUnsupported when the settings do not enable
// embeddings or the provider does not implement Embedder, so the condition is
// found when a run is configured instead of on its first chunk.
func EmbedderFor(p Provider, settings *ProviderSettings) (Embedder, error) {
	if p == nil || settings == nil || !settings.HasEmbedding {
		return nil, ErrEmbeddingUnsupported
	}
	e, ok := p.(Embedder)
	if !ok {
		return nil, ErrEmbeddingUnsupported
	}
	return e, nil
}
