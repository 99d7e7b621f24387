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

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/docembed/ai"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
}

// Result is the outcome of Do. Exactly one of Body and Err is set.
type Result struct {
	Body       io.ReadCloser
	StatusCode int
	Err        *ai.Error
}

// Client sends vendor requests.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the overall request timeout. Zero leaves the request
// context in charge, which is what streaming calls need.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req and returns the response body or a classified error.
// The caller owns Result.Body and must close it.
func (c *Client) Do(ctx context.Context, req *Request) *Result {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return &Result{Err: ai.NewError(ai.ErrorKindRequest, err, "failed to create request: %v", err)}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "method", httpReq.Method, "url", req.URL, "error", err)
		return &Result{Err: ai.NewError(ai.ErrorKindTransport, err, "request failed: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		pe := statusError(resp)
		c.logger.Debug("vendor returned error status", "url", req.URL, "status", resp.StatusCode, "message", pe.Message)
		return &Result{StatusCode: resp.StatusCode, Err: pe}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return &Result{
			StatusCode: resp.StatusCode,
			Err:        ai.NewError(ai.ErrorKindEmptyBody, ai.ErrEmptyBody, "%s", ai.ErrEmptyBody.Error()),
		}
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       ai.NewContextStream(ctx, resp.Body),
	}
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// GetJSON sends a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodGet, URL: url, Header: header}, out)
}

// PostJSON sends in as JSON and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, in, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodPost, URL: url, Header: header, Body: in}, out)
}

func (c *Client) doJSON(ctx context.Context, req *Request, out any) error {
	res := c.Do(ctx, req)
	if res.Err != nil {
		return res.Err
	}
	defer res.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return ai.NewError(ai.ErrorKindDecode, err, "failed to decode response: %v", err)
	}
	return nil
}

// BearerAuth returns the Authorization header for apiKey, or an empty header when unset.
func BearerAuth(apiKey string) http.Header {
	h := http.Header{}
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}

// statusError builds the error for a non-success response.
// Vendors report failures as {"error":{"message":...}} or {"error":"..."}.
func statusError(resp *http.Response) *ai.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := vendorMessage(raw)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ai.Error{
		Kind:       ai.ErrorKindStatus,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

func vendorMessage(raw []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var flat string
			if json.Unmarshal(envelope.Error, &flat) == nil && flat != "" {
				return flat
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
