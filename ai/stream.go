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

package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

const (
	sseDataPrefix = "data:"
	sseDone       = "[DONE]"

	// maxEventSize bounds a single stream line.
	maxEventSize = 1024 * 1024
)

// ConvertFunc decodes one stream event payload.
type ConvertFunc func(payload []byte) (*ChatCompletionResponse, error)

// ReadStream reads server-sent events from r and hands every decoded chunk to fn.
// Lines of the form "data: <json>" are decoded with convert; "[DONE]" ends the
// stream. Bare JSON lines are accepted for vendors that stream NDJSON.
// A decode error aborts the read. An error returned by fn stops the read and
// is returned as is.
func ReadStream(r io.Reader, convert ConvertFunc, fn func(*ChatCompletionResponse) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			continue
		}

		payload := line
		if bytes.HasPrefix(line, []byte(sseDataPrefix)) {
			payload = bytes.TrimSpace(line[len(sseDataPrefix):])
		} else if line[0] != '{' {
			// event:, id:, retry: fields
			continue
		}
		if string(payload) == sseDone {
			return nil
		}

		chunk, err := convert(payload)
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return NewError(ErrorKindTransport, err, "reading stream: %v", err)
	}
	return nil
}

// DecodeChatCompletion decodes an OpenAI-shaped stream chunk.
// Missing delta roles default to assistant.
func DecodeChatCompletion(payload []byte) (*ChatCompletionResponse, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, &Error{
			Kind:    ErrorKindDecode,
			Message: fmt.Sprintf("%s: %v", ErrMalformedPayload, err),
			Err:     fmt.Errorf("%w: %w", ErrMalformedPayload, err),
		}
	}
	for i := range resp.Choices {
		if resp.Choices[i].Delta.Role == "" {
			resp.Choices[i].Delta.Role = "assistant"
		}
	}
	return &resp, nil
}

// EncodeSSE frames a chunk as a server-sent event line.
func EncodeSSE(chunk *ChatCompletionResponse) ([]byte, error) {
	data, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data)+len(sseDataPrefix)+3)
	out = append(out, sseDataPrefix...)
	out = append(out, ' ')
	out = append(out, data...)
	out = append(out, '\n', '\n')
	return out, nil
}

// DoneEvent is the terminating server-sent event.
var DoneEvent = []byte(sseDataPrefix + " " + sseDone + "\n\n")

// NewContextStream binds rc to ctx: once ctx is done reads return io.EOF.
func NewContextStream(ctx context.Context, rc io.ReadCloser) io.ReadCloser {
	return &contextStream{ctx: ctx, body: rc}
}

type contextStream struct {
	ctx  context.Context
	body io.ReadCloser
}

func (s *contextStream) Read(p []byte) (int, error) {
	if s.ctx.Err() != nil {
		return 0, io.EOF
	}
	n, err := s.body.Read(p)
	if err != nil && err != io.EOF && s.ctx.Err() != nil {
		return n, io.EOF
	}
	return n, err
}

func (s *contextStream) Close() error {
	return s.body.Close()
}
