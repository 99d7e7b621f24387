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

package openai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/transport"
	"github.com/poiesic/docembed/core"
)

const (
	modelsPath = "/v1/models"
	chatPath   = "/v1/chat/completions"
	imagesPath = "/v1/images/generations"
)

// Provider implements ai.Provider and ai.Embedder for OpenAI-compatible services.
type Provider struct {
	ai.StreamTracker

	vendor string
	client *transport.Client
	logger *slog.Logger
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithVendor sets the vendor id reported by ProviderID.
func WithVendor(id string) Option {
	return func(p *Provider) {
		if id != "" {
			p.vendor = id
		}
	}
}

// WithClient sets the transport client.
func WithClient(c *transport.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
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

// New creates an OpenAI-compatible provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		vendor: ai.VendorOpenAI,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default().With("component", "openai-provider", "vendor", p.vendor)
	}
	if p.client == nil {
		p.client = transport.New(transport.WithLogger(p.logger))
	}
	return p
}

// ProviderID returns the vendor id.
func (p *Provider) ProviderID() string {
	return p.vendor
}

type modelList struct {
	Data []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int64  `json:"created"`
		Type    string `json:"type"`
	} `json:"data"`
}

// ListModels returns the models served at settings.URL.
// Models whose id contains "embed" are flagged as embedding models.
func (p *Provider) ListModels(ctx context.Context, settings *ai.ProviderSettings, embeddedOnly bool) []ai.ModelDescriptor {
	var list modelList
	url := ai.ValidURL(settings.URL) + modelsPath
	if err := p.client.GetJSON(ctx, url, transport.BearerAuth(settings.APIKey), &list); err != nil {
		p.logger.Warn("failed to list models", "url", url, "err", err)
		return []ai.ModelDescriptor{}
	}

	models := make([]ai.ModelDescriptor, 0, len(list.Data))
	for _, m := range list.Data {
		object := m.Object
		if object == "" {
			object = "model"
		}
		models = append(models, ai.ModelDescriptor{
			ID:        m.ID,
			Object:    object,
			Created:   m.Created,
			Type:      m.Type,
			Embedding: isEmbeddingModel(m.ID, m.Type),
		})
	}
	if embeddedOnly {
		return ai.FilterEmbedding(models)
	}
	return models
}

func isEmbeddingModel(id, modelType string) bool {
	return strings.Contains(strings.ToLower(id), "embed") || modelType == "embeddings"
}

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []core.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
}

// ChatCompletions starts a streamed chat completion against baseURL.
func (p *Provider) ChatCompletions(ctx context.Context, model string, messages []core.ChatMessage, baseURL, apiKey string, withCancel bool) *ai.CompletionResult {
	callCtx, handle := p.Begin(ctx, withCancel)

	if err := core.ValidateChatMessages(messages); err != nil {
		return p.Fail(handle, ai.NewError(ai.ErrorKindRequest, err, "%v", err))
	}

	header := transport.BearerAuth(apiKey)
	header.Set("Accept", "text/event-stream")
	res := p.client.Do(callCtx, &transport.Request{
		Method: http.MethodPost,
		URL:    ai.ValidURL(baseURL) + chatPath,
		Header: header,
		Body:   chatRequest{Model: model, Messages: messages, Stream: true},
	})
	if res.Err != nil {
		p.logger.Error("chat completion failed", "model", model, "kind", res.Err.Kind, "err", res.Err)
		return p.Fail(handle, res.Err)
	}
	return &ai.CompletionResult{Stream: res.Body, Handle: handle}
}

// ConvertResponse decodes one chat completion chunk.
func (p *Provider) ConvertResponse(payload []byte) (*ai.ChatCompletionResponse, error) {
	return ai.DecodeChatCompletion(payload)
}

type imageResult struct {
	Created int64          `json:"created"`
	Data    []ai.ImageData `json:"data"`
}

// GenerateImage requests images for req.Prompt.
func (p *Provider) GenerateImage(ctx context.Context, req *ai.ImageRequest, baseURL, apiKey string) *ai.ImageResponse {
	if err := req.Validate(); err != nil {
		return ai.FailedImageResponse(err)
	}

	var out imageResult
	url := ai.ValidURL(baseURL) + imagesPath
	if err := p.client.PostJSON(ctx, url, transport.BearerAuth(apiKey), req, &out); err != nil {
		p.logger.Error("image generation failed", "url", url, "err", err)
		return ai.FailedImageResponse(err)
	}
	if out.Created == 0 {
		out.Created = time.Now().Unix()
	}
	if out.Data == nil {
		out.Data = []ai.ImageData{}
	}
	return &ai.ImageResponse{Created: out.Created, Data: out.Data}
}

// TitleGenerationModel returns model; conversations are titled by the model in use.
func (p *Provider) TitleGenerationModel(model string) string {
	return model
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage *struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed returns the embedding of text from settings' embedding endpoint.
func (p *Provider) Embed(ctx context.Context, text, model string, settings *ai.ProviderSettings) (*ai.EmbedResult, error) {
	if !settings.HasEmbedding {
		return nil, ai.ErrEmbeddingUnsupported
	}
	p.logger.Debug("generating embedding", "model", model, "length", len(text))

	var out embeddingResponse
	err := p.client.PostJSON(ctx, settings.EmbeddingURL(), transport.BearerAuth(settings.APIKey),
		embeddingRequest{Model: model, Input: text}, &out)
	if err != nil {
		p.logger.Error("failed to generate embedding", "model", model, "err", err)
		return nil, err
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}

	result := &ai.EmbedResult{Vector: out.Data[0].Embedding}
	if out.Usage != nil {
		result.TotalTokens = out.Usage.TotalTokens
		result.HasTokens = true
	}
	return result, nil
}

var (
	_ ai.Provider = (*Provider)(nil)
	_ ai.Embedder = (*Provider)(nil)
)
