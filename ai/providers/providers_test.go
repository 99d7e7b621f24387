package providers

import (
	"testing"

	"github.com/poiesic/docembed/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KnownVendors(t *testing.T) {
	for _, id := range Supported() {
		t.Run(id, func(t *testing.T) {
			p, err := New(ai.NewProviderSettings(ai.WithServiceID(id)))
			require.NoError(t, err)
			assert.Equal(t, id, p.ProviderID())
		})
	}
}

func TestNew_FreshInstances(t *testing.T) {
	settings := ai.DefaultSettings()
	a, err := New(settings)
	require.NoError(t, err)
	b, err := New(settings)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestNew_EmbeddingCapability(t *testing.T) {
	p, err := New(ai.NewProviderSettings(ai.WithServiceID(ai.VendorAnthropic)))
	require.NoError(t, err)
	_, err = ai.EmbedderFor(p, ai.DefaultSettings())
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnsupported)

	p, err = New(ai.DefaultSettings())
	require.NoError(t, err)
	_, err = ai.EmbedderFor(p, ai.DefaultSettings())
	assert.NoError(t, err)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(ai.NewProviderSettings(ai.WithServiceID("cohere")))
	assert.ErrorIs(t, err, ai.ErrUnknownVendor)

	_, err = New(nil)
	assert.ErrorIs(t, err, ai.ErrUnknownVendor)
}
