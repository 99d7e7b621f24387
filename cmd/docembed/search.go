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
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docembed"
)

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find stored chunks similar to a query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Embedding model name; must match the model documents were embedded with",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results (defaults to search.max_hits from config)",
			},
		},
		Action: searchCommand,
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a query is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	model := c.String("model")
	if model == "" {
		model = cfg.EmbedModel
	}
	limit := c.Int("limit")
	if limit <= 0 {
		limit = cfg.Search.MaxHits
	}

	db, err := docembed.Open(cfg, c.String("service"))
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	results, err := searcher.FindSimilar(c.Context, query, model, limit)
	if err != nil {
		return err
	}

	for _, r := range results {
		rec := r.Record
		fmt.Fprintf(c.App.Writer, "%.3f\t%s#%d/%d\t%s\n", r.Score, rec.File, rec.ChunkIndex+1, rec.ChunkTotal, rec.Text)
	}
	return nil
}

func deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove the stored chunks of documents",
		ArgsUsage: "<filename...>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("at least one filename is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db, err := docembed.Open(cfg, c.String("service"))
			if err != nil {
				return err
			}
			defer db.Close()

			for _, name := range c.Args().Slice() {
				n, err := db.DeleteDocument(c.Context, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s: %d chunks removed\n", name, n)
			}
			return nil
		},
	}
}
