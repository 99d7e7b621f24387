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

// Package anthropic implements ai.Provider for the Anthropic Messages API.
//
// Chat goes through langchaingo's anthropic client and is re-framed as an
// OpenAI-shaped event stream by chatstream. Anthropic offers neither
// embeddings nor image generation.
package anthropic

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/chatstream"
	"github.com/poiesic/docembed/ai/transport"
	"github.com/poiesic/docembed/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

const (
	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	modelsPath = "/v1/models"

	// maxTokens is required by the Messages API.
	maxTokens = 4096
)

// Provider implements ai.Provider for Anthropic.
type Provider struct {
	ai.StreamTracker

	client  *transport.Client
	factory chatstream.ModelFactory
	logger  *slog.Logger
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithClient sets the transport client used for model listing.
func WithClient(c *transport.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithModelFactory replaces the langchaingo client constructor.
func WithModelFactory(f chatstream.ModelFactory) Option {
	return func(p *Provider) {
		if f != nil {
			p.factory = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates an Anthropic provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		factory: newModel,
		logger:  slog.Default().With("component", "anthropic-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = transport.New(transport.WithLogger(p.logger))
	}
	return p
}

func newModel(model, baseURL, apiKey string) (llms.Model, error) {
	return anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
		anthropic.WithBaseURL(ai.ValidURL(baseURL)+"/v1"),
	)
}

// ProviderID returns "anthropic".
func (p *Provider) ProviderID() string {
	return ai.VendorAnthropic
}

func authHeader(apiKey string) http.Header {
	h := http.Header{}
	h.Set("x-api-key", apiKey)
	h.Set("anthropic-version", APIVersion)
	return h
}

type modelList struct {
	Data []struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		DisplayName string    `json:"display_name"`
		CreatedAt   time.Time `json:"created_at"`
	} `json:"data"`
}

// ListModels returns the chat models of the account.
// Anthropic has no embedding models, so embeddedOnly always yields an empty list.
func (p *Provider) ListModels(ctx context.Context, settings *ai.ProviderSettings, embeddedOnly bool) []ai.ModelDescriptor {
	if embeddedOnly {
		return []ai.ModelDescriptor{}
	}

	var list modelList
	url := ai.ValidURL(settings.URL) + modelsPath
	if err := p.client.GetJSON(ctx, url, authHeader(settings.APIKey), &list); err != nil {
		p.logger.Warn("failed to list models", "url", url, "err", err)
		return []ai.ModelDescriptor{}
	}

	models := make([]ai.ModelDescriptor, 0, len(list.Data))
	for _, m := range list.Data {
		var created int64
		if !m.CreatedAt.IsZero() {
			created = m.CreatedAt.Unix()
		}
		models = append(models, ai.ModelDescriptor{
			ID:      m.ID,
			Object:  "model",
			Created: created,
			Type:    m.Type,
		})
	}
	return models
}

// ChatCompletions streams a Messages API completion as OpenAI-shaped events.
func (p *Provider) ChatCompletions(ctx context.Context, model string, messages []core.ChatMessage, baseURL, apiKey string, withCancel bool) *ai.CompletionResult {
	callCtx, handle := p.Begin(ctx, withCancel)

	llm, err := p.factory(model, baseURL, apiKey)
	if err != nil {
		p.logger.Error("failed to create anthropic client", "model", model, "err", err)
		return p.Fail(handle, ai.NewError(ai.ErrorKindRequest, err, "failed to create client: %v", err))
	}

	stream, perr := chatstream.Generate(callCtx, llm, model, messages, p.logger, llms.WithMaxTokens(maxTokens))
	if perr != nil {
		p.logger.Error("chat completion failed", "model", model, "kind", perr.Kind, "err", perr)
		return p.Fail(handle, perr)
	}
	return &ai.CompletionResult{Stream: stream, Handle: handle}
}

// ConvertResponse decodes one event of the stream returned by ChatCompletions.
func (p *Provider) ConvertResponse(payload []byte) (*ai.ChatCompletionResponse, error) {
	return ai.DecodeChatCompletion(payload)
}

// GenerateImage is not supported by Anthropic.
func (p *Provider) GenerateImage(ctx context.Context, req *ai.ImageRequest, baseURL, apiKey string) *ai.ImageResponse {
	return ai.NotSupportedImageResponse()
}

// TitleGenerationModel returns model.
func (p *Provider) TitleGenerationModel(model string) string {
	return model
}

var _ ai.Provider = (*Provider)(nil)
