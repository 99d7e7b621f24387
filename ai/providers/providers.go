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

// Package providers selects the ai.Provider implementation for a vendor id.
package providers

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/anthropic"
	"github.com/poiesic/docembed/ai/ollama"
	"github.com/poiesic/docembed/ai/openai"
)

// Factory builds a provider for settings.
type Factory func(settings *ai.ProviderSettings) (ai.Provider, error)

// New returns a fresh provider instance for settings.ServiceID.
// Every call returns a new instance, so concurrent runs never share
// cancellation state.
func New(settings *ai.ProviderSettings) (ai.Provider, error) {
	return NewWithLogger(settings, nil)
}

// NewWithLogger is New with an explicit logger.
func NewWithLogger(settings *ai.ProviderSettings, logger *slog.Logger) (ai.Provider, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: nil settings", ai.ErrUnknownVendor)
	}

	id := strings.ToLower(strings.TrimSpace(settings.ServiceID))
	switch id {
	case ai.VendorOpenAI, ai.VendorLMStudio, ai.VendorLocalAI:
		return openai.New(openai.WithVendor(id), openai.WithLogger(logger)), nil
	case ai.VendorAnthropic:
		return anthropic.New(anthropic.WithLogger(logger)), nil
	case ai.VendorOllama:
		return ollama.New(ollama.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("%w: %q", ai.ErrUnknownVendor, settings.ServiceID)
}

// Supported returns the vendor ids New accepts.
func Supported() []string {
	return []string{ai.VendorOpenAI, ai.VendorLMStudio, ai.VendorLocalAI, ai.VendorAnthropic, ai.VendorOllama}
}
