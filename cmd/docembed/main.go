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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docembed/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docembed",
		Usage: "Embed uploaded documents into a vector store and search them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"DOCEMBED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Service id to use (defaults to the configured default service)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "uploads",
				Usage: "Directory uploaded documents are read from (overrides config)",
			},
			&cli.StringFlag{
				Name:  "class",
				Usage: "Store class documents are written to (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			embedCmd(),
			watchCmd(),
			searchCmd(),
			deleteCmd(),
			modelsCmd(),
			chatCmd(),
			imageCmd(),
			configCmd(),
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := logLevel(c)

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// logLevel returns the --log-level flag when given, else logging.level of
// the configuration file, else the flag default.
func logLevel(c *cli.Context) string {
	if !c.IsSet("log-level") {
		if path := c.String("config"); path != "" {
			// a broken file is reported by the command that loads it
			if cfg, err := config.Load(path); err == nil && cfg.Logging.Level != "" {
				return strings.ToLower(cfg.Logging.Level)
			}
		}
	}
	return strings.ToLower(c.String("log-level"))
}

// loadConfig reads the configuration file, if any, and applies the global
// flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := c.String("db"); v != "" {
		cfg.Storage.Path = v
	}
	if v := c.String("uploads"); v != "" {
		cfg.UploadsDir = v
	}
	if v := c.String("class"); v != "" {
		cfg.Storage.ClassName = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(data)
			return err
		},
	}
}
