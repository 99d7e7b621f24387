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

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docembed"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/ingestion"
)

func embedCmd() *cli.Command {
	return &cli.Command{
		Name:      "embed",
		Usage:     "Embed uploaded documents into the vector store",
		ArgsUsage: "[filename...]",
		Action:    embedCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Embedding model name (defaults to embed_model from config)",
			},
			&cli.StringFlag{
				Name:    "glob",
				Aliases: []string{"g"},
				Usage:   "Also embed uploads matching this pattern, e.g. '**/*.md'",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Documents embedded concurrently (defaults to ingestion.workers from config)",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Report chunk progress on stderr",
			},
		},
	}
}

func embedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	files, err := selectFiles(cfg.UploadsDir, c.Args().Slice(), c.String("glob"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no documents to embed: pass filenames or --glob")
	}

	model := c.String("model")
	if model == "" {
		model = cfg.EmbedModel
	}
	workers := c.Int("workers")
	if workers <= 0 {
		workers = cfg.Ingestion.Workers
	}

	var opts []ingestion.Option
	if c.Bool("progress") {
		// one tracker line at a time
		workers = 1
		opts = append(opts, ingestion.WithProgress(ingestion.NewProgressTracker(c.App.ErrWriter, "embedding", 1)))
	}

	db, err := docembed.Open(cfg, c.String("service"), docembed.WithIngestionOptions(opts...))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := db.NewIngestionService(ingestion.WithPoolSize(workers))
	if err != nil {
		return err
	}
	defer svc.Release()

	results := svc.EmbedFiles(ctx, model, db.Settings(), files...)

	failed := 0
	enc := json.NewEncoder(c.App.Writer)
	for _, r := range results {
		if !r.Summary.Success {
			failed++
		}
		if err := enc.Encode(summaryLine{r.Job.Filename, r.Summary}); err != nil {
			return err
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents failed", failed, len(results)), 1)
	}
	return nil
}

// summaryLine is the JSON line printed per embedded document.
type summaryLine struct {
	File string `json:"file"`
	*core.EmbeddingSummary
}

// selectFiles returns names plus the uploads matching pattern, without duplicates.
func selectFiles(uploadsDir string, names []string, pattern string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}
	for _, name := range names {
		add(name)
	}
	if pattern == "" {
		return files, nil
	}

	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	fsys := os.DirFS(uploadsDir)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q in %s: %w", pattern, uploadsDir, err)
	}
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(uploadsDir, filepath.FromSlash(m)))
		if err != nil || info.IsDir() {
			continue
		}
		add(m)
	}
	return files, nil
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Embed documents as they are dropped into the uploads directory",
		Action: watchCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Embedding model name (defaults to embed_model from config)",
			},
			&cli.StringFlag{
				Name:  "pattern",
				Usage: "Only embed files matching this pattern",
				Value: "*.{txt,md}",
			},
			&cli.DurationFlag{
				Name:  "settle",
				Usage: "Wait this long after the last write before embedding a file",
				Value: 500 * time.Millisecond,
			},
		},
	}
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pattern := c.String("pattern")
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern %q", pattern)
	}
	model := c.String("model")
	if model == "" {
		model = cfg.EmbedModel
	}

	db, err := docembed.Open(cfg, c.String("service"))
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewIngestionService(ingestion.WithPoolSize(cfg.Ingestion.Workers))
	if err != nil {
		return err
	}
	defer svc.Release()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(cfg.UploadsDir); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.UploadsDir, err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default().With("component", "watch")
	logger.Info("watching uploads", "dir", cfg.UploadsDir, "pattern", pattern)

	settled := newDebouncer(c.Duration("settle"))
	defer settled.stop()

	var out sync.Mutex
	enc := json.NewEncoder(c.App.Writer)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if name, ok := watchedFile(cfg.UploadsDir, ev, pattern); ok {
				settled.touch(name)
			}
		case name := <-settled.ready:
			_, err := svc.Submit(ctx, name, model, db.Settings(), func(r ingestion.JobResult) {
				out.Lock()
				defer out.Unlock()
				if err := enc.Encode(summaryLine{name, r.Summary}); err != nil {
					logger.Warn("failed to write summary", "file", name, "err", err)
				}
			})
			if err != nil {
				logger.Error("failed to submit document", "file", name, "err", err)
			}
		}
	}
}

// watchedFile returns the uploads-relative name of the file ev created or
// wrote, if it matches pattern.
func watchedFile(uploadsDir string, ev fsnotify.Event, pattern string) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	rel, err := filepath.Rel(uploadsDir, ev.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if ok, err := doublestar.Match(pattern, rel); err != nil || !ok {
		return "", false
	}
	return rel, true
}

// debouncer emits a name on ready once it has not been touched for delay.
type debouncer struct {
	delay  time.Duration
	ready  chan string
	done   chan struct{}
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		ready:  make(chan string, 16),
		done:   make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}
}

func (d *debouncer) touch(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[name]; ok {
		t.Reset(d.delay)
		return
	}
	d.timers[name] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, name)
		d.mu.Unlock()
		select {
		case d.ready <- name:
		case <-d.done:
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, t := range d.timers {
		t.Stop()
		delete(d.timers, name)
	}
	select {
	case <-d.done:
	default:
		close(d.done)
	}
}
