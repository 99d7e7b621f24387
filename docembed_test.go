package docembed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/mock"
	"github.com/poiesic/docembed/config"
)

func newTestDatabase(t *testing.T, opts ...DatabaseOption) (*Database, *mock.MockProvider, string) {
	t.Helper()
	uploads := t.TempDir()
	provider := mock.NewMockProvider()
	base := []DatabaseOption{
		WithInMemory(),
		WithUploadsDir(uploads),
		WithProviderFactory(func(*ai.ProviderSettings) (ai.Provider, error) { return provider, nil }),
	}
	db, err := NewDatabase("", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, provider, uploads
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Store())
		assert.Equal(t, ai.VendorOllama, db.Settings().ServiceID)
		assert.Equal(t, "DocumentVectors", db.ClassName())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("caller settings are not modified", func(t *testing.T) {
		settings := &ai.ProviderSettings{
			ServiceID:    " OpenAI ",
			URL:          "http://localhost:1234/ ",
			HasEmbedding: true,
		}
		before := *settings

		db, err := NewDatabase("", WithInMemory(), WithProviderSettings(settings))
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, before, *settings)
		assert.Equal(t, ai.VendorOpenAI, db.Settings().ServiceID)
		assert.Equal(t, "http://localhost:1234", db.Settings().URL)
		assert.Equal(t, "/v1/embeddings", db.Settings().EmbeddingPath)
		assert.NotSame(t, settings, db.Settings())
	})

	t.Run("invalid settings", func(t *testing.T) {
		settings := ai.NewProviderSettings(ai.WithURL("not a url"))
		_, err := NewDatabase(t.TempDir(), WithProviderSettings(settings))
		assert.Error(t, err)
	})
}

func TestDatabase_EmbedSearchDelete(t *testing.T) {
	db, provider, uploads := newTestDatabase(t, WithClassName("Handbooks"))
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "guide.txt"),
		[]byte("Install the package first. Then run the setup command."), 0644))
	ctx := context.Background()

	summary := db.EmbedDocument(ctx, "guide.txt", "nomic-embed-text")
	require.True(t, summary.Success, summary.ErrorMessage)
	assert.Equal(t, 1, summary.NoOfChunks)
	assert.Equal(t, 1, provider.Embedder.CallCount())

	count, err := db.Store().CountRecords(ctx, "Handbooks")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	// the mock embeds identical text to identical vectors
	results, err := searcher.FindSimilar(ctx, "Install the package first. Then run the setup command.", "nomic-embed-text", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "guide.txt", results[0].Record.File)
	assert.True(t, results[0].Verbatim)

	removed, err := db.DeleteDocument(ctx, "guide.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestDatabase_EmbedMissingDocument(t *testing.T) {
	db, provider, _ := newTestDatabase(t)

	summary := db.EmbedDocument(context.Background(), "absent.txt", "m")
	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, "file not found")
	assert.Zero(t, provider.Embedder.CallCount())
}

func TestDatabase_IngestionService(t *testing.T) {
	db, _, uploads := newTestDatabase(t)
	for _, name := range []string{"a.txt", "b.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(uploads, name), []byte("Some text. More text."), 0644))
	}

	svc, err := db.NewIngestionService()
	require.NoError(t, err)
	defer svc.Release()

	results := svc.EmbedFiles(context.Background(), "m", db.Settings(), "a.txt", "b.txt")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Summary.Success, r.Summary.ErrorMessage)
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.ClassName = "Notes"
	cfg.UploadsDir = t.TempDir()

	db, err := Open(cfg, "")
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "Notes", db.ClassName())
	assert.Equal(t, ai.VendorOllama, db.Settings().ServiceID)

	provider, err := db.NewProvider()
	require.NoError(t, err)
	assert.Equal(t, ai.VendorOllama, provider.ProviderID())

	_, err = Open(cfg, "mistral")
	assert.ErrorIs(t, err, config.ErrUnknownService)
}
