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

package mock

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
)

// MockProvider is a scriptable test double for ai.Provider and ai.Embedder.
type MockProvider struct {
	ai.StreamTracker

	// ID is returned by ProviderID.
	ID string

	// Embedder serves Embed.
	Embedder *MockEmbedder

	// Models is returned by ListModels.
	Models []ai.ModelDescriptor

	// ChatReply is streamed word by word by ChatCompletions.
	ChatReply string

	// ChatErr, when set, is returned by ChatCompletions instead of a stream.
	ChatErr *ai.Error

	// ImageResponse is returned by GenerateImage; not supported when nil.
	ImageResponse *ai.ImageResponse

	mu        sync.Mutex
	chatCalls int
	lastChat  []core.ChatMessage
}

// NewMockProvider creates a mock provider with default behavior.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ID:        "mock",
		Embedder:  NewMockEmbedder(),
		ChatReply: "mock reply",
	}
}

// ProviderID returns p.ID.
func (p *MockProvider) ProviderID() string {
	return p.ID
}

// ListModels returns p.Models.
func (p *MockProvider) ListModels(ctx context.Context, settings *ai.ProviderSettings, embeddedOnly bool) []ai.ModelDescriptor {
	models := append([]ai.ModelDescriptor{}, p.Models...)
	if embeddedOnly {
		return ai.FilterEmbedding(models)
	}
	return models
}

// ChatCompletions streams ChatReply as OpenAI-shaped events.
func (p *MockProvider) ChatCompletions(ctx context.Context, model string, messages []core.ChatMessage, baseURL, apiKey string, withCancel bool) *ai.CompletionResult {
	callCtx, handle := p.Begin(ctx, withCancel)

	p.mu.Lock()
	p.chatCalls++
	p.lastChat = append([]core.ChatMessage(nil), messages...)
	p.mu.Unlock()

	if p.ChatErr != nil {
		return p.Fail(handle, p.ChatErr)
	}

	var b strings.Builder
	for _, word := range strings.SplitAfter(p.ChatReply, " ") {
		frame, _ := ai.EncodeSSE(&ai.ChatCompletionResponse{
			ID:      "mock",
			Object:  "chat.completion.chunk",
			Model:   model,
			Choices: []ai.ChatChoice{{Delta: ai.ChatDelta{Role: "assistant", Content: word}}},
		})
		b.Write(frame)
	}
	b.Write(ai.DoneEvent)

	stream := io.NopCloser(strings.NewReader(b.String()))
	return &ai.CompletionResult{Stream: ai.NewContextStream(callCtx, stream), Handle: handle}
}

// ConvertResponse decodes one stream event.
func (p *MockProvider) ConvertResponse(payload []byte) (*ai.ChatCompletionResponse, error) {
	return ai.DecodeChatCompletion(payload)
}

// GenerateImage returns p.ImageResponse.
func (p *MockProvider) GenerateImage(ctx context.Context, req *ai.ImageRequest, baseURL, apiKey string) *ai.ImageResponse {
	if p.ImageResponse == nil {
		return ai.NotSupportedImageResponse()
	}
	if err := req.Validate(); err != nil {
		return ai.FailedImageResponse(err)
	}
	return p.ImageResponse
}

// TitleGenerationModel returns model.
func (p *MockProvider) TitleGenerationModel(model string) string {
	return model
}

// Embed delegates to p.Embedder.
func (p *MockProvider) Embed(ctx context.Context, text, model string, settings *ai.ProviderSettings) (*ai.EmbedResult, error) {
	return p.Embedder.Embed(ctx, text, model, settings)
}

// ChatCallCount returns the number of ChatCompletions calls.
func (p *MockProvider) ChatCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chatCalls
}

// LastChat returns the messages of the most recent ChatCompletions call.
func (p *MockProvider) LastChat() []core.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastChat
}

// ChatOnlyProvider wraps a MockProvider and hides its Embed method.
type ChatOnlyProvider struct {
	ai.Provider
}

var (
	_ ai.Provider = (*MockProvider)(nil)
	_ ai.Embedder = (*MockProvider)(nil)
)
