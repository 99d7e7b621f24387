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

// Package ollama implements ai.Provider for an Ollama server.
package ollama

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/chatstream"
	"github.com/poiesic/docembed/ai/transport"
	"github.com/poiesic/docembed/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const tagsPath = "/api/tags"

// embeddingFamilies are model families that only produce embeddings.
var embeddingFamilies = []string{"bert", "nomic-bert"}

// Provider implements ai.Provider and ai.Embedder for Ollama.
type Provider struct {
	ai.StreamTracker

	client  *transport.Client
	factory chatstream.ModelFactory
	logger  *slog.Logger
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithClient sets the transport client.
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

// New creates an Ollama provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		factory: newModel,
		logger:  slog.Default().With("component", "ollama-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = transport.New(transport.WithLogger(p.logger))
	}
	return p
}

func newModel(model, baseURL, _ string) (llms.Model, error) {
	return ollama.New(
		ollama.WithServerURL(ai.ValidURL(baseURL)),
		ollama.WithModel(model),
	)
}

// ProviderID returns "ollama".
func (p *Provider) ProviderID() string {
	return ai.VendorOllama
}

type tagList struct {
	Models []struct {
		Name       string    `json:"name"`
		Model      string    `json:"model"`
		ModifiedAt time.Time `json:"modified_at"`
		Details    struct {
			Family   string   `json:"family"`
			Families []string `json:"families"`
		} `json:"details"`
	} `json:"models"`
}

// ListModels returns the locally pulled models.
func (p *Provider) ListModels(ctx context.Context, settings *ai.ProviderSettings, embeddedOnly bool) []ai.ModelDescriptor {
	var tags tagList
	url := ai.ValidURL(settings.URL) + tagsPath
	if err := p.client.GetJSON(ctx, url, nil, &tags); err != nil {
		p.logger.Warn("failed to list models", "url", url, "err", err)
		return []ai.ModelDescriptor{}
	}

	models := make([]ai.ModelDescriptor, 0, len(tags.Models))
	for _, m := range tags.Models {
		id := m.Name
		if id == "" {
			id = m.Model
		}
		var created int64
		if !m.ModifiedAt.IsZero() {
			created = m.ModifiedAt.Unix()
		}
		families := append([]string{m.Details.Family}, m.Details.Families...)
		models = append(models, ai.ModelDescriptor{
			ID:        id,
			Object:    "model",
			Created:   created,
			Type:      m.Details.Family,
			Embedding: isEmbeddingModel(id, families),
		})
	}
	if embeddedOnly {
		return ai.FilterEmbedding(models)
	}
	return models
}

func isEmbeddingModel(name string, families []string) bool {
	if strings.Contains(strings.ToLower(name), "embed") {
		return true
	}
	for _, f := range families {
		for _, ef := range embeddingFamilies {
			if f == ef {
				return true
			}
		}
	}
	return false
}

// ChatCompletions streams a chat completion as OpenAI-shaped events.
func (p *Provider) ChatCompletions(ctx context.Context, model string, messages []core.ChatMessage, baseURL, apiKey string, withCancel bool) *ai.CompletionResult {
	callCtx, handle := p.Begin(ctx, withCancel)

	llm, err := p.factory(model, baseURL, apiKey)
	if err != nil {
		p.logger.Error("failed to create ollama client", "model", model, "err", err)
		return p.Fail(handle, ai.NewError(ai.ErrorKindRequest, err, "failed to create client: %v", err))
	}

	stream, perr := chatstream.Generate(callCtx, llm, model, messages, p.logger)
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

// GenerateImage is not supported by Ollama.
func (p *Provider) GenerateImage(ctx context.Context, req *ai.ImageRequest, baseURL, apiKey string) *ai.ImageResponse {
	return ai.NotSupportedImageResponse()
}

// TitleGenerationModel returns model.
func (p *Provider) TitleGenerationModel(model string) string {
	return model
}

type embedRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// embedResponse covers both /api/embed and the older /api/embeddings.
type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	Embedding       []float32   `json:"embedding"`
	PromptEvalCount *int        `json:"prompt_eval_count"`
}

// Embed returns the embedding of text.
func (p *Provider) Embed(ctx context.Context, text, model string, settings *ai.ProviderSettings) (*ai.EmbedResult, error) {
	if !settings.HasEmbedding {
		return nil, ai.ErrEmbeddingUnsupported
	}

	req := embedRequest{Model: model}
	url := settings.EmbeddingURL()
	if strings.HasSuffix(url, "/api/embeddings") {
		req.Prompt = text
	} else {
		req.Input = text
	}

	var out embedResponse
	if err := p.client.PostJSON(ctx, url, nil, req, &out); err != nil {
		p.logger.Error("failed to generate embedding", "model", model, "err", err)
		return nil, err
	}

	vector := out.Embedding
	if len(out.Embeddings) > 0 {
		vector = out.Embeddings[0]
	}
	if len(vector) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}

	result := &ai.EmbedResult{Vector: vector}
	if out.PromptEvalCount != nil {
		result.TotalTokens = *out.PromptEvalCount
		result.HasTokens = true
	}
	return result, nil
}

var (
	_ ai.Provider = (*Provider)(nil)
	_ ai.Embedder = (*Provider)(nil)
)
