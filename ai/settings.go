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
	"errors"
	"regexp"
	"strings"
)

// Vendor identifiers accepted in ProviderSettings.ServiceID.
const (
	VendorOpenAI    = "openai"
	VendorLMStudio  = "lmstudio"
	VendorLocalAI   = "localai"
	VendorAnthropic = "anthropic"
	VendorOllama    = "ollama"
)

// urlPattern accepts an absolute http(s) URL with an optional port and path.
var urlPattern = regexp.MustCompile(`^(https?://)(localhost|[\w-]+(\.[\w-]+)+)(:\d+)?(/.*)?$`)

// minAPIKeyLength is the shortest non-empty API key accepted.
const minAPIKeyLength = 5

// ProviderSettings holds the caller-selected configuration of one vendor service.
// Settings are read-only inputs; providers never mutate them.
type ProviderSettings struct {
	// ServiceID identifies the vendor implementation.
	// Example: "ollama", "openai", "anthropic"
	ServiceID string

	// URL is the vendor base URL without a trailing slash.
	// Example: "http://localhost:11434"
	URL string

	// APIKey authenticates requests. Empty means unset.
	APIKey string

	// HasEmbedding marks the service as able to produce embeddings.
	HasEmbedding bool

	// EmbeddingPath is the embedding endpoint appended to URL.
	// Example: "/api/embed", "/v1/embeddings"
	EmbeddingPath string

	// LockedModelType restricts model pickers to a single model family.
	LockedModelType bool

	// ModelListType selects how the model list is presented. Defaults to ServiceID.
	ModelListType string

	// EmbeddingDimensions is the declared vector length of the embedding model.
	// Zero means the length of the first returned vector is used.
	EmbeddingDimensions int
}

// SettingsOption is a functional option for configuring ProviderSettings.
type SettingsOption func(*ProviderSettings)

// WithServiceID sets the vendor identifier.
func WithServiceID(id string) SettingsOption {
	return func(s *ProviderSettings) {
		s.ServiceID = id
	}
}

// WithURL sets the vendor base URL.
func WithURL(url string) SettingsOption {
	return func(s *ProviderSettings) {
		s.URL = url
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) SettingsOption {
	return func(s *ProviderSettings) {
		s.APIKey = key
	}
}

// WithEmbedding marks the service as embedding-capable using the given endpoint path.
func WithEmbedding(path string) SettingsOption {
	return func(s *ProviderSettings) {
		s.HasEmbedding = true
		s.EmbeddingPath = path
	}
}

// WithoutEmbedding clears the embedding capability.
func WithoutEmbedding() SettingsOption {
	return func(s *ProviderSettings) {
		s.HasEmbedding = false
		s.EmbeddingPath = ""
	}
}

// WithLockedModelType sets the locked model type flag.
func WithLockedModelType(locked bool) SettingsOption {
	return func(s *ProviderSettings) {
		s.LockedModelType = locked
	}
}

// WithModelListType sets the model list type.
func WithModelListType(listType string) SettingsOption {
	return func(s *ProviderSettings) {
		s.ModelListType = listType
	}
}

// WithEmbeddingDimensions declares the embedding vector length.
func WithEmbeddingDimensions(dim int) SettingsOption {
	return func(s *ProviderSettings) {
		s.EmbeddingDimensions = dim
	}
}

// DefaultSettings returns settings for a local Ollama server with embeddings enabled.
func DefaultSettings() *ProviderSettings {
	return &ProviderSettings{
		ServiceID:     VendorOllama,
		URL:           "http://localhost:11434",
		HasEmbedding:  true,
		EmbeddingPath: DefaultEmbeddingPath(VendorOllama),
		ModelListType: VendorOllama,
	}
}

// NewProviderSettings creates settings with the default values and applies the provided options.
//
// Example:
//
//	s := NewProviderSettings(
//	    WithServiceID(VendorOpenAI),
//	    WithURL("https://api.openai.com"),
//	    WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    WithEmbedding("/v1/embeddings"),
//	)
func NewProviderSettings(opts ...SettingsOption) *ProviderSettings {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultEmbeddingPath returns the embedding endpoint a vendor serves by default.
// Returns "" for vendors without an embedding API.
func DefaultEmbeddingPath(serviceID string) string {
	switch serviceID {
	case VendorOllama:
		return "/api/embed"
	case VendorOpenAI, VendorLMStudio, VendorLocalAI:
		return "/v1/embeddings"
	}
	return ""
}

// Normalized returns a copy of the settings in canonical form.
// It trims whitespace, removes the trailing slash of URL, fills in the
// embedding path and defaults ModelListType to ServiceID.
func (s *ProviderSettings) Normalized() *ProviderSettings {
	n := *s
	n.ServiceID = strings.ToLower(strings.TrimSpace(n.ServiceID))
	n.URL = ValidURL(n.URL)
	n.APIKey = strings.TrimSpace(n.APIKey)
	if n.HasEmbedding && n.EmbeddingPath == "" {
		n.EmbeddingPath = DefaultEmbeddingPath(n.ServiceID)
	}
	if n.EmbeddingPath != "" && !strings.HasPrefix(n.EmbeddingPath, "/") {
		n.EmbeddingPath = "/" + n.EmbeddingPath
	}
	if n.ModelListType == "" {
		n.ModelListType = n.ServiceID
	}
	return &n
}

// Validate checks that the normalized form of the settings is complete and
// well formed. The receiver is left unchanged.
func (s *ProviderSettings) Validate() error {
	n := s.Normalized()

	if n.ServiceID == "" {
		return errors.New("provider settings: ServiceID is required")
	}
	if !urlPattern.MatchString(n.URL) {
		return errors.New("provider settings: URL must start with 'http://' or 'https://' followed by a domain name")
	}
	if n.APIKey != "" && len(n.APIKey) < minAPIKeyLength {
		return errors.New("provider settings: API key must be at least 5 characters long")
	}
	if len(n.ModelListType) < 2 {
		return errors.New("provider settings: ModelListType is required")
	}
	if n.EmbeddingDimensions < 0 {
		return errors.New("provider settings: EmbeddingDimensions cannot be negative")
	}
	return nil
}

// HasAPIKey reports whether an API key is set.
func (s *ProviderSettings) HasAPIKey() bool {
	return s.APIKey != ""
}

// EmbeddingURL returns the absolute embedding endpoint.
func (s *ProviderSettings) EmbeddingURL() string {
	path := s.EmbeddingPath
	if path == "" {
		path = DefaultEmbeddingPath(s.ServiceID)
	}
	return ValidURL(s.URL) + path
}

// ValidURL trims whitespace and trailing slashes from a base URL.
func ValidURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}
