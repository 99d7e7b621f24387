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
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/poiesic/docembed/ai"
)

// DefaultDimensions is the length of the vectors MockEmbedder returns by default.
const DefaultDimensions = 384

// MockEmbedder is a test double for ai.Embedder. It is safe for concurrent use.
type MockEmbedder struct {
	// EmbedFunc is called by Embed if set.
	// If nil, uses default deterministic behavior.
	EmbedFunc func(ctx context.Context, text, model string, settings *ai.ProviderSettings) (*ai.EmbedResult, error)

	// Dimensions of the default vectors; DefaultDimensions when zero.
	Dimensions int

	mu        sync.Mutex
	callCount int
	texts     []string
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// Embed generates a deterministic embedding based on text hash.
func (m *MockEmbedder) Embed(ctx context.Context, text, model string, settings *ai.ProviderSettings) (*ai.EmbedResult, error) {
	m.mu.Lock()
	m.callCount++
	m.texts = append(m.texts, text)
	fn := m.EmbedFunc
	dim := m.Dimensions
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, model, settings)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &ai.EmbedResult{
		Vector:      GenerateDeterministicVector(text, dim),
		TotalTokens: len(strings.Fields(text)),
		HasTokens:   true,
	}, nil
}

// CallCount returns the number of times Embed was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Texts returns the texts passed to Embed, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call history and custom behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = nil
	m.EmbedFunc = nil
}

// GenerateDeterministicVector creates a deterministic unit-length vector from text.
// The same text always produces the same vector.
func GenerateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	var sumSquares float32
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
		sumSquares += vector[i] * vector[i]
	}

	norm := float32(math.Sqrt(float64(sumSquares)))
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}

var _ ai.Embedder = (*MockEmbedder)(nil)
