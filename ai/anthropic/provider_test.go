package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type scriptedModel struct {
	reply string
	opts  llms.CallOptions
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&m.opts)
	}
	for _, word := range strings.SplitAfter(m.reply, " ") {
		if err := m.opts.StreamingFunc(ctx, []byte(word)); err != nil {
			return nil, err
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.reply, nil
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))
		w.Write([]byte(`{"data":[{"id":"claude-sonnet-4-5","type":"model","display_name":"Claude Sonnet","created_at":"2025-02-19T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	settings := ai.NewProviderSettings(ai.WithServiceID(ai.VendorAnthropic), ai.WithURL(srv.URL), ai.WithAPIKey("sk-ant-test"))
	models := New().ListModels(context.Background(), settings, false)
	require.Len(t, models, 1)
	assert.Equal(t, "claude-sonnet-4-5", models[0].ID)
	assert.Equal(t, "model", models[0].Object)
	assert.False(t, models[0].Embedding)
	assert.NotZero(t, models[0].Created)
}

func TestListModels_EmbeddedOnlyIsEmpty(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	settings := ai.NewProviderSettings(ai.WithServiceID(ai.VendorAnthropic), ai.WithURL(srv.URL))
	models := New().ListModels(context.Background(), settings, true)
	assert.NotNil(t, models)
	assert.Empty(t, models)
	assert.False(t, called)
}

func TestListModels_FailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	settings := ai.NewProviderSettings(ai.WithServiceID(ai.VendorAnthropic), ai.WithURL(srv.URL))
	assert.Empty(t, New().ListModels(context.Background(), settings, false))
}

func TestChatCompletions(t *testing.T) {
	model := &scriptedModel{reply: "Paris is the capital"}
	var gotModel, gotURL, gotKey string
	p := New(WithModelFactory(func(name, baseURL, apiKey string) (llms.Model, error) {
		gotModel, gotURL, gotKey = name, baseURL, apiKey
		return model, nil
	}))

	messages := []core.ChatMessage{{Role: core.ChatRoleUser, Content: "capital of France?"}}
	result := p.ChatCompletions(context.Background(), "claude-sonnet-4-5", messages, "https://api.anthropic.com", "sk-ant-test", true)
	require.False(t, result.IsError())
	defer result.Stream.Close()

	var text strings.Builder
	require.NoError(t, ai.ReadStream(result.Stream, p.ConvertResponse, func(c *ai.ChatCompletionResponse) error {
		text.WriteString(c.Content())
		return nil
	}))
	assert.Equal(t, "Paris is the capital", text.String())
	assert.Equal(t, "claude-sonnet-4-5", gotModel)
	assert.Equal(t, "https://api.anthropic.com", gotURL)
	assert.Equal(t, "sk-ant-test", gotKey)
	assert.Equal(t, maxTokens, model.opts.MaxTokens)
}

func TestChatCompletions_ClientError(t *testing.T) {
	p := New(WithModelFactory(func(string, string, string) (llms.Model, error) {
		return nil, errors.New("missing the Anthropic API key")
	}))

	result := p.ChatCompletions(context.Background(), "m", nil, "https://api.anthropic.com", "", false)
	require.True(t, result.IsError())
	assert.Equal(t, ai.ErrorKindRequest, result.Err.Kind)
}

func TestCancelChatCompletionStream(t *testing.T) {
	p := New(WithModelFactory(func(string, string, string) (llms.Model, error) {
		return &scriptedModel{reply: "one two"}, nil
	}))
	p.CancelChatCompletionStream()

	result := p.ChatCompletions(context.Background(), "m", nil, "https://api.anthropic.com", "k", true)
	require.False(t, result.IsError())
	defer result.Stream.Close()

	p.CancelChatCompletionStream()
	p.CancelChatCompletionStream()
	assert.True(t, result.Handle.Cancelled())
}

func TestUnsupportedCapabilities(t *testing.T) {
	p := New()
	resp := p.GenerateImage(context.Background(), ai.NewImageRequest("a cat"), "https://api.anthropic.com", "k")
	assert.True(t, resp.NotImplementedOrSupported)
	assert.False(t, resp.Error)
	assert.Empty(t, resp.Data)

	_, err := ai.EmbedderFor(p, ai.DefaultSettings())
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnsupported)

	assert.Equal(t, ai.VendorAnthropic, p.ProviderID())
	assert.Equal(t, "claude-sonnet-4-5", p.TitleGenerationModel("claude-sonnet-4-5"))
}
