package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStreamRegistryAcquireReplacesActive(t *testing.T) {
	registry := NewStreamRegistry()
	conversationId := uuid.New()

	ctx1, cancel1 := context.WithCancel(context.Background())
	registry.Acquire(conversationId, cancel1)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	registry.Acquire(conversationId, cancel2)

	assert.ErrorIs(t, ctx1.Err(), context.Canceled, "previous stream should be aborted")
	assert.NoError(t, ctx2.Err(), "replacement stream should stay live")
}

func TestStreamRegistryReleaseOnlyRemovesOwnHandle(t *testing.T) {
	registry := NewStreamRegistry()
	conversationId := uuid.New()

	_, cancel1 := context.WithCancel(context.Background())
	stale := registry.Acquire(conversationId, cancel1)

	ctx2, cancel2 := context.WithCancel(context.Background())
	registry.Acquire(conversationId, cancel2)

	// The replaced stream releasing late must not unregister the new one.
	registry.Release(stale)

	assert.True(t, registry.Cancel(conversationId))
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
}

func TestStreamRegistryCancel(t *testing.T) {
	registry := NewStreamRegistry()
	conversationId := uuid.New()

	assert.False(t, registry.Cancel(conversationId), "nothing registered yet")

	ctx, cancel := context.WithCancel(context.Background())
	registry.Acquire(conversationId, cancel)

	assert.True(t, registry.Cancel(conversationId))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, registry.Cancel(conversationId), "already cancelled")
}

func TestStreamRegistryReleaseAfterFinish(t *testing.T) {
	registry := NewStreamRegistry()
	conversationId := uuid.New()

	_, cancel := context.WithCancel(context.Background())
	h := registry.Acquire(conversationId, cancel)
	registry.Release(h)

	assert.False(t, registry.Cancel(conversationId), "released stream is no longer active")

	registry.Release(h) // double release is harmless
	registry.Release(nil)
}

func TestStreamRegistryIsolatesConversations(t *testing.T) {
	registry := NewStreamRegistry()

	ctxA, cancelA := context.WithCancel(context.Background())
	registry.Acquire(uuid.New(), cancelA)

	conversationB := uuid.New()
	ctxB, cancelB := context.WithCancel(context.Background())
	registry.Acquire(conversationB, cancelB)

	registry.Cancel(conversationB)

	assert.NoError(t, ctxA.Err(), "cancelling one conversation must not touch another")
	assert.ErrorIs(t, ctxB.Err(), context.Canceled)
}
