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
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingUnsupported is returned when a provider or its settings cannot embed text.
	ErrEmbeddingUnsupported = errors.New("embedding unsupported by provider")

	// ErrEmptyBody is returned when a vendor answers without a response body.
	ErrEmptyBody = errors.New("API request failed with empty response body")

	// ErrMalformedPayload is returned when a stream event cannot be decoded.
	ErrMalformedPayload = errors.New("malformed response payload")

	// ErrUnknownVendor is returned when no provider implements a ServiceID.
	ErrUnknownVendor = errors.New("unknown provider")

	// ErrEmptyEmbedding is returned when a vendor returns no vector.
	ErrEmptyEmbedding = errors.New("empty embedding returned")

	// ErrPromptRequired is returned when an image request has no prompt.
	ErrPromptRequired = errors.New("prompt is required")
)

// ErrorKind classifies provider failures so callers can log them specifically.
type ErrorKind int

const (
	// ErrorKindTransport is a network-level failure; no response was received.
	ErrorKindTransport ErrorKind = iota + 1
	// ErrorKindStatus is a non-success status reported by the vendor.
	ErrorKindStatus
	// ErrorKindEmptyBody is a successful status without a body.
	ErrorKindEmptyBody
	// ErrorKindDecode is a payload that could not be decoded.
	ErrorKindDecode
	// ErrorKindRequest is a request that could not be built.
	ErrorKindRequest
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransport:
		return "transport"
	case ErrorKindStatus:
		return "status"
	case ErrorKindEmptyBody:
		return "empty_body"
	case ErrorKindDecode:
		return "decode"
	case ErrorKindRequest:
		return "request"
	}
	return "unknown"
}

// Error is the uniform failure of a provider call.
type Error struct {
	Kind       ErrorKind
	StatusCode int // set for ErrorKindStatus
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the given kind wrapping err.
func NewError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// AsError converts err into an *Error, keeping it if it already is one.
func AsError(err error, fallback ErrorKind) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: fallback, Message: err.Error(), Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
