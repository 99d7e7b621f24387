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
	"io"
	"strings"
)

// CompletionResult is the outcome of starting a chat completion.
// Exactly one of Stream and Err is set; check IsError before consuming Stream.
type CompletionResult struct {
	// Stream carries the vendor's event stream. The caller must close it.
	Stream io.ReadCloser

	// Err describes why the completion could not be started.
	Err *Error

	// Handle cancels this call. Nil unless cancellation was requested.
	Handle *CallHandle
}

// IsError reports whether the completion failed to start.
func (r *CompletionResult) IsError() bool {
	return r == nil || r.Err != nil || r.Stream == nil
}

// Cancel cancels the call through its own handle, if it has one.
func (r *CompletionResult) Cancel() {
	if r != nil && r.Handle != nil {
		r.Handle.Cancel()
	}
}

// ErrorResult wraps err into a failed CompletionResult.
func ErrorResult(err *Error, handle *CallHandle) *CompletionResult {
	return &CompletionResult{Err: err, Handle: handle}
}

// ChatCompletionResponse is one decoded stream event, in OpenAI chunk form.
type ChatCompletionResponse struct {
	ID                string       `json:"id"`
	Object            string       `json:"object"`
	Created           int64        `json:"created"`
	Model             string       `json:"model"`
	SystemFingerprint string       `json:"system_fingerprint,omitempty"`
	Choices           []ChatChoice `json:"choices"`
	Usage             *Usage       `json:"usage"`
}

// Content concatenates the delta text of all choices.
func (r *ChatCompletionResponse) Content() string {
	if r == nil {
		return ""
	}
	if len(r.Choices) == 1 {
		return r.Choices[0].Delta.Content
	}
	var b strings.Builder
	for _, c := range r.Choices {
		b.WriteString(c.Delta.Content)
	}
	return b.String()
}

// Finished reports whether any choice carries a finish reason.
func (r *ChatCompletionResponse) Finished() bool {
	if r == nil {
		return false
	}
	for _, c := range r.Choices {
		if c.FinishReason != nil && *c.FinishReason != "" {
			return true
		}
	}
	return false
}

// ChatChoice is a single choice within a stream event.
type ChatChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// ChatDelta is the incremental message of a choice.
type ChatDelta struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelDescriptor describes one model offered by a vendor.
type ModelDescriptor struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Created   int64  `json:"created"`
	Type      string `json:"type,omitempty"`
	Embedding bool   `json:"embedding"`
}

// FilterEmbedding returns the embedding-capable models in models.
func FilterEmbedding(models []ModelDescriptor) []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(models))
	for _, m := range models {
		if m.Embedding {
			out = append(out, m)
		}
	}
	return out
}

// Image request defaults.
const (
	DefaultImageCount   = 1
	DefaultImageQuality = "standard"
	DefaultImageSize    = "1024x1024"
	DefaultImageStyle   = "vivid"
)

// ImageRequest asks a vendor to generate images.
type ImageRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	N              int    `json:"n"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format,omitempty"`
	Size           string `json:"size"`
	Style          string `json:"style"`
	User           string `json:"user,omitempty"`
}

// NewImageRequest returns a request for prompt with the default settings.
func NewImageRequest(prompt string) *ImageRequest {
	req := &ImageRequest{Prompt: prompt}
	req.applyDefaults()
	return req
}

func (r *ImageRequest) applyDefaults() {
	if r.N <= 0 {
		r.N = DefaultImageCount
	}
	if r.Quality == "" {
		r.Quality = DefaultImageQuality
	}
	if r.Size == "" {
		r.Size = DefaultImageSize
	}
	if r.Style == "" {
		r.Style = DefaultImageStyle
	}
}

// Validate fills in defaults and checks that a prompt is present.
func (r *ImageRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Prompt) == "" {
		return ErrPromptRequired
	}
	r.applyDefaults()
	return nil
}

// ImageResponse is the outcome of an image generation request.
type ImageResponse struct {
	Created                   int64       `json:"created"`
	Data                      []ImageData `json:"data"`
	Error                     bool        `json:"error"`
	ErrorMessage              string      `json:"errorMessage,omitempty"`
	NotImplementedOrSupported bool        `json:"notImplementedOrSupported"`
}

// ImageData is one generated image.
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// NotSupportedImageResponse is returned by vendors without image generation.
func NotSupportedImageResponse() *ImageResponse {
	return &ImageResponse{
		Created:                   -1,
		Data:                      []ImageData{},
		NotImplementedOrSupported: true,
	}
}

// FailedImageResponse reports an image generation failure.
func FailedImageResponse(err error) *ImageResponse {
	return &ImageResponse{
		Created:      -1,
		Data:         []ImageData{},
		Error:        true,
		ErrorMessage: err.Error(),
	}
}

// EmbedResult is the embedding of one text.
type EmbedResult struct {
	Vector      []float32
	TotalTokens int
	HasTokens   bool // vendor reported TotalTokens
}
