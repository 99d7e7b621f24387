package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTracker_CancelWithoutCall(t *testing.T) {
	var tracker StreamTracker
	assert.NotPanics(t, tracker.CancelChatCompletionStream)
	assert.Nil(t, tracker.Active())
}

func TestStreamTracker_CancelIsIdempotent(t *testing.T) {
	var tracker StreamTracker
	ctx, handle := tracker.Begin(context.Background(), true)
	require.NotNil(t, handle)

	tracker.CancelChatCompletionStream()
	tracker.CancelChatCompletionStream()

	assert.True(t, handle.Cancelled())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestStreamTracker_NewCallReplacesTrackedHandle(t *testing.T) {
	var tracker StreamTracker
	_, first := tracker.Begin(context.Background(), true)
	_, second := tracker.Begin(context.Background(), true)

	assert.Same(t, second, tracker.Active())
	assert.False(t, first.Cancelled(), "starting a call must not cancel the previous one")

	tracker.CancelChatCompletionStream()
	assert.True(t, second.Cancelled())
	assert.False(t, first.Cancelled(), "only the tracked call is cancelled")

	first.Cancel()
	assert.True(t, first.Cancelled())
}

func TestStreamTracker_FailReleasesHandle(t *testing.T) {
	var tracker StreamTracker
	_, handle := tracker.Begin(context.Background(), true)
	require.Same(t, handle, tracker.Active())

	result := tracker.Fail(handle, NewError(ErrorKindStatus, ErrEmptyBody, "boom"))
	assert.True(t, result.IsError())
	assert.True(t, handle.Cancelled())
	assert.Nil(t, tracker.Active())

	assert.True(t, tracker.Fail(nil, NewError(ErrorKindRequest, ErrEmptyBody, "boom")).IsError())
}

func TestStreamTracker_FailKeepsNewerCall(t *testing.T) {
	var tracker StreamTracker
	_, first := tracker.Begin(context.Background(), true)
	_, second := tracker.Begin(context.Background(), true)

	tracker.Fail(first, NewError(ErrorKindTransport, ErrEmptyBody, "boom"))
	assert.True(t, first.Cancelled())
	assert.Same(t, second, tracker.Active())
	assert.False(t, second.Cancelled())
}

func TestStreamTracker_WithoutCancel(t *testing.T) {
	var tracker StreamTracker
	parent := context.Background()
	ctx, handle := tracker.Begin(parent, false)
	assert.Nil(t, handle)
	assert.Equal(t, parent, ctx)
	assert.Nil(t, tracker.Active())
}

func TestCompletionResult_IsError(t *testing.T) {
	var nilResult *CompletionResult
	assert.True(t, nilResult.IsError())
	assert.True(t, ErrorResult(NewError(ErrorKindEmptyBody, ErrEmptyBody, "%s", ErrEmptyBody), nil).IsError())
	assert.True(t, (&CompletionResult{}).IsError())
}
