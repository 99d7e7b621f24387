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
	"context"
	"sync"
)

// CallHandle cancels a single in-flight chat completion.
type CallHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCallHandle derives a cancellable call context from parent.
func NewCallHandle(parent context.Context) *CallHandle {
	ctx, cancel := context.WithCancel(parent)
	return &CallHandle{ctx: ctx, cancel: cancel}
}

// Context returns the context governing the call.
func (h *CallHandle) Context() context.Context {
	return h.ctx
}

// Cancel aborts the call. Cancelling an already cancelled call is a no-op.
func (h *CallHandle) Cancel() {
	if h == nil {
		return
	}
	h.cancel()
}

// Cancelled reports whether the call has been cancelled.
func (h *CallHandle) Cancelled() bool {
	if h == nil {
		return false
	}
	return h.ctx.Err() != nil
}

// StreamTracker tracks the single cancellable stream of a provider instance.
// Providers embed it to implement CancelChatCompletionStream.
type StreamTracker struct {
	mu     sync.Mutex
	active *CallHandle
}

// Begin returns the context for a new call.
// With withCancel set a fresh handle is created and tracked in place of the
// previous one; the previous call keeps running. Without it the parent
// context is used as is and the tracked handle is left untouched.
func (t *StreamTracker) Begin(parent context.Context, withCancel bool) (context.Context, *CallHandle) {
	if !withCancel {
		return parent, nil
	}
	h := NewCallHandle(parent)
	t.mu.Lock()
	t.active = h
	t.mu.Unlock()
	return h.Context(), h
}

// Fail ends a call that failed before producing a stream. It cancels h,
// stops tracking it and wraps err into a failed CompletionResult.
func (t *StreamTracker) Fail(h *CallHandle, err *Error) *CompletionResult {
	if h != nil {
		h.Cancel()
		t.mu.Lock()
		if t.active == h {
			t.active = nil
		}
		t.mu.Unlock()
	}
	return ErrorResult(err, h)
}

// Active returns the tracked handle, or nil.
func (t *StreamTracker) Active() *CallHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// CancelChatCompletionStream cancels the tracked call if it is still running.
func (t *StreamTracker) CancelChatCompletionStream() {
	t.mu.Lock()
	h := t.active
	t.mu.Unlock()
	if h == nil {
		return
	}
	h.Cancel()
}
