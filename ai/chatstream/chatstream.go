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

// Package chatstream turns langchaingo streaming generation into the
// server-sent event stream every provider returns from ChatCompletions.
//
// Vendors whose chat API is reached through langchaingo do not expose their
// raw event stream. Generate runs the generation in the background and
// re-frames each streamed fragment as an OpenAI-shaped chunk, so consumers
// read all vendors with ai.ReadStream and the provider's ConvertResponse.
package chatstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
	"github.com/tmc/langchaingo/llms"
)

const chunkObject = "chat.completion.chunk"

// ModelFactory builds the langchaingo model serving one chat call.
type ModelFactory func(model, baseURL, apiKey string) (llms.Model, error)

// Generate starts a streamed generation on model and returns its event stream.
//
// It waits until the first fragment arrives or the generation ends, so a
// request the vendor rejects outright is reported as an error instead of a
// stream. Failures after streaming started end the stream with that error.
// Cancelling ctx ends the stream with io.EOF.
func Generate(ctx context.Context, model llms.Model, modelName string, messages []core.ChatMessage, logger *slog.Logger, opts ...llms.CallOption) (io.ReadCloser, *ai.Error) {
	if logger == nil {
		logger = slog.Default().With("component", "chatstream")
	}
	if err := core.ValidateChatMessages(messages); err != nil {
		return nil, ai.NewError(ai.ErrorKindRequest, err, "%v", err)
	}

	pr, pw := io.Pipe()
	first := make(chan error, 1)
	var once sync.Once
	signal := func(err error) {
		once.Do(func() { first <- err })
	}

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	frame := func(content string, reason *string) ([]byte, error) {
		return ai.EncodeSSE(&ai.ChatCompletionResponse{
			ID:      id,
			Object:  chunkObject,
			Created: created,
			Model:   modelName,
			Choices: []ai.ChatChoice{{
				Delta:        ai.ChatDelta{Role: string(core.ChatRoleAssistant), Content: content},
				FinishReason: reason,
			}},
		})
	}

	go func() {
		callOpts := append([]llms.CallOption{}, opts...)
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			signal(nil)
			data, err := frame(string(chunk), nil)
			if err != nil {
				return err
			}
			_, err = pw.Write(data)
			return err
		}))

		_, err := model.GenerateContent(ctx, ToMessageContent(messages), callOpts...)
		switch {
		case err == nil:
			signal(nil)
			pw.CloseWithError(finish(pw, frame))
		case ctx.Err() != nil || errors.Is(err, io.ErrClosedPipe):
			logger.Debug("generation stopped", "model", modelName, "err", err)
			signal(nil)
			pw.Close()
		default:
			logger.Debug("generation failed", "model", modelName, "err", err)
			signal(err)
			pw.CloseWithError(ai.NewError(ai.ErrorKindTransport, err, "%v", err))
		}
	}()

	select {
	case err := <-first:
		if err != nil {
			pr.Close()
			return nil, ai.AsError(err, ai.ErrorKindTransport)
		}
	case <-ctx.Done():
	}
	return ai.NewContextStream(ctx, pr), nil
}

// finish writes the final stop chunk and the done marker. A nil result
// closes the stream with io.EOF.
func finish(w io.Writer, frame func(string, *string) ([]byte, error)) error {
	stop := "stop"
	data, err := frame("", &stop)
	if err != nil {
		return ai.NewError(ai.ErrorKindDecode, err, "encode final chunk: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write(ai.DoneEvent)
	return err
}

// ToMessageContent converts chat messages into langchaingo message content, preserving order.
func ToMessageContent(messages []core.ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.MessageContent{
			Role:  roleType(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return out
}

func roleType(role core.ChatRole) llms.ChatMessageType {
	switch role {
	case core.ChatRoleSystem:
		return llms.ChatMessageTypeSystem
	case core.ChatRoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
