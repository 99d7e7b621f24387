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
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/providers"
	"github.com/poiesic/docembed/core"
)

// newProvider returns the provider and settings of the selected service.
func newProvider(c *cli.Context) (ai.Provider, *ai.ProviderSettings, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	settings, err := cfg.Provider(c.String("service"))
	if err != nil {
		return nil, nil, err
	}
	provider, err := providers.NewWithLogger(settings, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return provider, settings, nil
}

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List the models of the selected service",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "embedding-only",
				Aliases: []string{"e"},
				Usage:   "Only list embedding models",
			},
		},
		Action: func(c *cli.Context) error {
			provider, settings, err := newProvider(c)
			if err != nil {
				return err
			}
			models := provider.ListModels(c.Context, settings, c.Bool("embedding-only"))

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tEMBEDDING")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%t\n", m.ID, m.Type, m.Embedding)
			}
			return w.Flush()
		},
	}
}

func chatCmd() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Stream a chat completion for a prompt",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Chat model name (defaults to chat_model from config)",
			},
			&cli.StringFlag{
				Name:  "system",
				Usage: "System prompt sent before the user prompt",
			},
		},
		Action: chatCommand,
	}
}

func chatCommand(c *cli.Context) error {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if prompt == "" {
		return errors.New("a prompt is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	model := c.String("model")
	if model == "" {
		model = cfg.ChatModel
	}
	provider, settings, err := newProvider(c)
	if err != nil {
		return err
	}

	var messages []core.ChatMessage
	if system := c.String("system"); system != "" {
		messages = append(messages, core.ChatMessage{Role: core.ChatRoleSystem, Content: system})
	}
	messages = append(messages, core.ChatMessage{Role: core.ChatRoleUser, Content: prompt})

	result := provider.ChatCompletions(c.Context, model, messages, settings.URL, settings.APIKey, true)
	if result.IsError() {
		if result != nil && result.Err != nil {
			return result.Err
		}
		return errors.New("chat completion returned no stream")
	}
	defer result.Stream.Close()

	// Ctrl-C stops the stream and prints what arrived so far
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupts:
			provider.CancelChatCompletionStream()
		case <-done:
		}
	}()

	err = ai.ReadStream(result.Stream, provider.ConvertResponse, func(chunk *ai.ChatCompletionResponse) error {
		_, err := fmt.Fprint(c.App.Writer, chunk.Content())
		return err
	})
	fmt.Fprintln(c.App.Writer)
	if err != nil && !result.Handle.Cancelled() {
		return err
	}
	return nil
}

func imageCmd() *cli.Command {
	return &cli.Command{
		Name:      "image",
		Usage:     "Generate images from a prompt",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Image model name"},
			&cli.IntFlag{Name: "n", Usage: "Number of images", Value: ai.DefaultImageCount},
			&cli.StringFlag{Name: "size", Usage: "Image size", Value: ai.DefaultImageSize},
			&cli.StringFlag{Name: "quality", Usage: "Image quality", Value: ai.DefaultImageQuality},
			&cli.StringFlag{Name: "style", Usage: "Image style", Value: ai.DefaultImageStyle},
		},
		Action: imageCommand,
	}
}

func imageCommand(c *cli.Context) error {
	req := &ai.ImageRequest{
		Prompt:  strings.Join(c.Args().Slice(), " "),
		Model:   c.String("model"),
		N:       c.Int("n"),
		Size:    c.String("size"),
		Quality: c.String("quality"),
		Style:   c.String("style"),
	}
	if err := req.Validate(); err != nil {
		return err
	}
	provider, settings, err := newProvider(c)
	if err != nil {
		return err
	}

	resp := provider.GenerateImage(c.Context, req, settings.URL, settings.APIKey)
	switch {
	case resp.NotImplementedOrSupported:
		return cli.Exit(fmt.Sprintf("image generation is not supported by %s", provider.ProviderID()), 1)
	case resp.Error:
		return cli.Exit(resp.ErrorMessage, 1)
	}
	for _, img := range resp.Data {
		if img.URL != "" {
			fmt.Fprintln(c.App.Writer, img.URL)
		} else {
			fmt.Fprintf(c.App.Writer, "<base64 image, %d bytes>\n", len(img.B64JSON))
		}
	}
	return nil
}
