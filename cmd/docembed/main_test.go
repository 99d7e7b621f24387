package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docembed/ai/mock"
)

// fakeVendor serves the Ollama and OpenAI endpoints the commands use.
func fakeVendor(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings":        [][]float32{mock.GenerateDeterministicVector(req.Input, 8)},
			"prompt_eval_count": len(strings.Fields(req.Input)),
		})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[
			{"name":"nomic-embed-text:latest","details":{"family":"nomic-bert"}},
			{"name":"llama3.2:latest","details":{"family":"llama"}}]}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"1\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Hello\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\" there\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	dir     string
	uploads string
	config  string
}

func newEnv(t *testing.T, vendorURL string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:     dir,
		uploads: filepath.Join(dir, "uploads"),
		config:  filepath.Join(dir, "docembed.yaml"),
	}
	require.NoError(t, os.MkdirAll(e.uploads, 0o755))
	cfg := fmt.Sprintf(`
services:
  - service_id: ollama
    url: %[1]s
    has_embedding: true
  - service_id: openai
    url: %[1]s
    has_embedding: false
storage:
  path: %[2]s
uploads_dir: %[3]s
`, vendorURL, filepath.Join(dir, "db"), e.uploads)
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o644))
	return e
}

// run executes the CLI and returns its standard output.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"docembed", "--config", e.config}, args...))
	return out.String(), err
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	e := newEnv(t, "http://localhost:11434")
	_, err := e.run(t, "--log-level", "verbose", "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSetupLogger_LevelFromConfig(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	e := newEnv(t, "http://localhost:11434")
	f, err := os.OpenFile(e.config, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("logging:\n  level: debug\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	ctx := context.Background()

	_, err = e.run(t, "config")
	require.NoError(t, err)
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	_, err = e.run(t, "--log-level", "warn", "config")
	require.NoError(t, err)
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
}

func TestConfigCommand(t *testing.T) {
	e := newEnv(t, "http://localhost:11434")
	out, err := e.run(t, "--class", "Manuals", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "service_id: openai")
	assert.Contains(t, out, "class_name: Manuals")
}

func TestEmbedSearchDelete(t *testing.T) {
	srv := fakeVendor(t)
	e := newEnv(t, srv.URL)
	text := "The backup runs nightly. Restores take an hour."
	require.NoError(t, os.WriteFile(filepath.Join(e.uploads, "ops.txt"), []byte(text), 0o644))

	out, err := e.run(t, "embed", "ops.txt")
	require.NoError(t, err)

	var line struct {
		File       string `json:"file"`
		Success    bool   `json:"success"`
		NoOfChunks int    `json:"noOfChunks"`
		EmbedModel string `json:"embedModel"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &line))
	assert.Equal(t, "ops.txt", line.File)
	assert.True(t, line.Success)
	assert.Equal(t, 1, line.NoOfChunks)
	assert.Equal(t, "nomic-embed-text", line.EmbedModel)

	out, err = e.run(t, "search", text)
	require.NoError(t, err)
	assert.Contains(t, out, "ops.txt#1/1")

	out, err = e.run(t, "delete", "ops.txt")
	require.NoError(t, err)
	assert.Equal(t, "ops.txt: 1 chunks removed\n", out)
}

func TestEmbed_Failures(t *testing.T) {
	srv := fakeVendor(t)
	e := newEnv(t, srv.URL)

	_, err := e.run(t, "embed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents to embed")

	out, err := e.run(t, "embed", "missing.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 documents failed")
	assert.Contains(t, out, `"success":false`)

	// the openai service has embeddings disabled
	require.NoError(t, os.WriteFile(filepath.Join(e.uploads, "a.txt"), []byte("Some text."), 0o644))
	out, err = e.run(t, "--service", "openai", "embed", "a.txt")
	require.Error(t, err)
	assert.Contains(t, out, "embedding")
}

func TestEmbed_Glob(t *testing.T) {
	srv := fakeVendor(t)
	e := newEnv(t, srv.URL)
	require.NoError(t, os.MkdirAll(filepath.Join(e.uploads, "notes"), 0o755))
	for _, name := range []string{"a.md", "notes/b.md", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(e.uploads, name), []byte("A sentence. Another."), 0o644))
	}

	out, err := e.run(t, "embed", "--glob", "**/*.md")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, out, `"file":"notes/b.md"`)
	assert.NotContains(t, out, "c.txt")
}

func TestModelsCommand(t *testing.T) {
	srv := fakeVendor(t)
	e := newEnv(t, srv.URL)

	out, err := e.run(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "nomic-embed-text:latest")
	assert.Contains(t, out, "llama3.2:latest")

	out, err = e.run(t, "models", "--embedding-only")
	require.NoError(t, err)
	assert.Contains(t, out, "nomic-embed-text:latest")
	assert.NotContains(t, out, "llama3.2:latest")
}

func TestChatCommand(t *testing.T) {
	srv := fakeVendor(t)
	e := newEnv(t, srv.URL)

	out, err := e.run(t, "--service", "openai", "chat", "--model", "gpt-4o", "say", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello there\n", out)

	_, err = e.run(t, "chat")
	assert.Error(t, err)
}

func TestImageCommand_NotSupported(t *testing.T) {
	e := newEnv(t, "http://localhost:11434")
	_, err := e.run(t, "image", "a red fox")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported by ollama")

	_, err = e.run(t, "image")
	assert.Error(t, err)
}

func TestSelectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep.md"), 0o755))
	for _, name := range []string{"a.txt", "sub/b.md", "c.bin"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := selectFiles(dir, []string{"x.txt", "a.txt"}, "**/*.{txt,md}")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x.txt", "a.txt", "sub/b.md"}, files)

	files, err = selectFiles(dir, []string{"x.txt"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.txt"}, files)

	_, err = selectFiles(dir, nil, "[")
	assert.Error(t, err)
}

func TestWatchedFile(t *testing.T) {
	dir := t.TempDir()
	pattern := "*.{txt,md}"

	name, ok := watchedFile(dir, fsnotify.Event{Name: filepath.Join(dir, "a.txt"), Op: fsnotify.Create}, pattern)
	assert.True(t, ok)
	assert.Equal(t, "a.txt", name)

	_, ok = watchedFile(dir, fsnotify.Event{Name: filepath.Join(dir, "a.md"), Op: fsnotify.Write}, pattern)
	assert.True(t, ok)

	_, ok = watchedFile(dir, fsnotify.Event{Name: filepath.Join(dir, "a.txt"), Op: fsnotify.Remove}, pattern)
	assert.False(t, ok)

	_, ok = watchedFile(dir, fsnotify.Event{Name: filepath.Join(dir, "a.bin"), Op: fsnotify.Create}, pattern)
	assert.False(t, ok)
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	d.touch("a.txt")
	d.touch("a.txt")

	select {
	case name := <-d.ready:
		assert.Equal(t, "a.txt", name)
	case <-time.After(time.Second):
		t.Fatal("debounced name not delivered")
	}

	select {
	case name := <-d.ready:
		t.Fatalf("unexpected second delivery of %s", name)
	case <-time.After(100 * time.Millisecond):
	}
}
