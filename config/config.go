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

// Package config loads the docembed YAML configuration.
//
// A configuration names the vendor services documents can be embedded with,
// where the vector store lives and how documents are chunked and written.
// Missing keys keep the values of Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/chunker"
	"github.com/poiesic/docembed/document"
	"github.com/poiesic/docembed/storage"
)

// Chunking strategies.
const (
	StrategySentence  = "sentence"
	StrategyRecursive = "recursive"
)

// ErrUnknownService is returned when no service has the requested id.
var ErrUnknownService = errors.New("unknown service")

// Config is the application configuration.
type Config struct {
	// Services lists the vendor services that can be used.
	Services []ServiceConfig `yaml:"services"`

	// DefaultService is the service used when none is selected.
	DefaultService string `yaml:"default_service"`

	// EmbedModel is the default embedding model.
	EmbedModel string `yaml:"embed_model"`

	// ChatModel is the default chat model.
	ChatModel string `yaml:"chat_model"`

	// UploadsDir is where uploaded documents are read from.
	UploadsDir string `yaml:"uploads_dir"`

	Storage   StorageConfig   `yaml:"storage"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig mirrors ai.ProviderSettings. The API key is never stored in
// the file; it is read from the environment variable named by APIKeyEnv.
type ServiceConfig struct {
	ServiceID           string `yaml:"service_id"`
	URL                 string `yaml:"url"`
	APIKeyEnv           string `yaml:"api_key_env,omitempty"`
	HasEmbedding        bool   `yaml:"has_embedding"`
	EmbeddingPath       string `yaml:"embedding_path,omitempty"`
	LockedModelType     bool   `yaml:"locked_model_type,omitempty"`
	ModelListType       string `yaml:"model_list_type,omitempty"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions,omitempty"`
}

// StorageConfig holds vector store settings.
type StorageConfig struct {
	// Directory of the BadgerDB database
	Path string `yaml:"path"`

	// Keep the store in memory only
	InMemory bool `yaml:"in_memory"`

	// Class records are written to and searched in
	ClassName string `yaml:"class_name"`
}

// ChunkingConfig holds document splitting settings.
type ChunkingConfig struct {
	// Strategy: sentence | recursive
	Strategy string `yaml:"strategy"`

	// Sentences per chunk (sentence strategy)
	Window int `yaml:"window"`

	// Sentences shared by consecutive chunks (sentence strategy)
	Overlap int `yaml:"overlap"`

	// Characters per chunk (recursive strategy)
	ChunkSize int `yaml:"chunk_size"`

	// Characters shared by consecutive chunks (recursive strategy)
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// IngestionConfig holds embedding run settings.
type IngestionConfig struct {
	// Records per store batch
	BatchSize int `yaml:"batch_size"`

	// Documents embedded concurrently
	Workers int `yaml:"workers"`

	// Attempts per embed call
	RetryAttempts int `yaml:"retry_attempts"`

	// Initial delay between attempts, doubled after each retry
	RetryDelay string `yaml:"retry_delay"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	MinSimilarity float32 `yaml:"min_similarity"`
	MaxHits       int     `yaml:"max_hits"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level: debug | info | warn | error
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given: a local
// Ollama server and an on-disk store under ./data.
func Default() *Config {
	return &Config{
		Services: []ServiceConfig{
			{
				ServiceID:     ai.VendorOllama,
				URL:           "http://localhost:11434",
				HasEmbedding:  true,
				EmbeddingPath: ai.DefaultEmbeddingPath(ai.VendorOllama),
			},
		},
		DefaultService: ai.VendorOllama,
		EmbedModel:     "nomic-embed-text",
		ChatModel:      "llama3.2",
		UploadsDir:     document.DefaultUploadsDir,
		Storage: StorageConfig{
			Path:      "./data",
			ClassName: storage.DefaultClassName,
		},
		Chunking: ChunkingConfig{
			Strategy:     StrategySentence,
			Window:       chunker.DefaultWindow,
			Overlap:      chunker.DefaultOverlap,
			ChunkSize:    1000,
			ChunkOverlap: 100,
		},
		Ingestion: IngestionConfig{
			BatchSize:     100,
			Workers:       2,
			RetryAttempts: 1,
			RetryDelay:    "500ms",
		},
		Search: SearchConfig{
			MinSimilarity: 0.6,
			MaxHits:       5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path on top of Default and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of Default and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return errors.New("config: at least one service is required")
	}
	seen := make(map[string]bool, len(c.Services))
	for i := range c.Services {
		svc := &c.Services[i]
		if _, err := svc.Settings(); err != nil {
			return fmt.Errorf("config: service %d: %w", i, err)
		}
		id := strings.ToLower(strings.TrimSpace(svc.ServiceID))
		if seen[id] {
			return fmt.Errorf("config: duplicate service %q", id)
		}
		seen[id] = true
	}
	if c.DefaultService != "" && !seen[strings.ToLower(c.DefaultService)] {
		return fmt.Errorf("config: default_service: %w: %s", ErrUnknownService, c.DefaultService)
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		return errors.New("config: storage.path is required unless storage.in_memory is set")
	}
	if strings.ContainsRune(c.Storage.ClassName, 0) {
		return errors.New("config: storage.class_name cannot contain NUL")
	}
	if _, err := c.Splitter(); err != nil {
		return fmt.Errorf("config: chunking: %w", err)
	}
	if c.Ingestion.BatchSize < 1 {
		return errors.New("config: ingestion.batch_size must be at least 1")
	}
	if c.Ingestion.Workers < 1 {
		return errors.New("config: ingestion.workers must be at least 1")
	}
	if c.Ingestion.RetryAttempts < 1 {
		return errors.New("config: ingestion.retry_attempts must be at least 1")
	}
	if _, err := time.ParseDuration(c.Ingestion.RetryDelay); err != nil {
		return fmt.Errorf("config: ingestion.retry_delay: %w", err)
	}
	if c.Search.MinSimilarity < -1 || c.Search.MinSimilarity > 1 {
		return errors.New("config: search.min_similarity must be within [-1, 1]")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

// Provider returns the validated settings of serviceID. An empty id selects
// DefaultService, or the first service when no default is set.
func (c *Config) Provider(serviceID string) (*ai.ProviderSettings, error) {
	if serviceID == "" {
		serviceID = c.DefaultService
	}
	if serviceID == "" && len(c.Services) > 0 {
		serviceID = c.Services[0].ServiceID
	}
	for i := range c.Services {
		if strings.EqualFold(strings.TrimSpace(c.Services[i].ServiceID), serviceID) {
			return c.Services[i].Settings()
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownService, serviceID)
}

// Settings converts the service entry to validated provider settings.
func (s *ServiceConfig) Settings() (*ai.ProviderSettings, error) {
	settings := &ai.ProviderSettings{
		ServiceID:           s.ServiceID,
		URL:                 s.URL,
		HasEmbedding:        s.HasEmbedding,
		EmbeddingPath:       s.EmbeddingPath,
		LockedModelType:     s.LockedModelType,
		ModelListType:       s.ModelListType,
		EmbeddingDimensions: s.EmbeddingDimensions,
	}
	if s.APIKeyEnv != "" {
		settings.APIKey = os.Getenv(s.APIKeyEnv)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings.Normalized(), nil
}

// Splitter returns the chunker selected by the chunking settings.
func (c *Config) Splitter() (chunker.Splitter, error) {
	switch c.Chunking.Strategy {
	case "", StrategySentence:
		s, err := chunker.NewSentenceChunker(c.Chunking.Window, c.Chunking.Overlap)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StrategyRecursive:
		r, err := chunker.NewRecursive(c.Chunking.ChunkSize, c.Chunking.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", c.Chunking.Strategy)
}

// GetRetryDelay parses and returns the embed retry delay.
func (i *IngestionConfig) GetRetryDelay() time.Duration {
	d, err := time.ParseDuration(i.RetryDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}
