package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/huddle/pkg/adapters/memory"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayStore_Contract(t *testing.T) {
	ports.RunOverlayStoreContract(t, memory.NewOverlayStore())
}

func TestHub_Contract(t *testing.T) {
	ports.RunChannelContract(t, memory.NewHub())
}

func TestOverlayStore_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOverlayStore()

	overlay := map[string]domain.Definition{"x": {Slug: "x", Phases: []string{"a"}}}
	require.NoError(t, store.Set(ctx, overlay))
	overlay["x"].Phases[0] = "mutated"

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got["x"].Phases)
}

func TestHub_DeliversWireShapedPayload(t *testing.T) {
	ctx := context.Background()
	hub := memory.NewHub()

	sub, err := hub.Channel("r1", "bob").Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	err = hub.Channel("r1", "alice").Send(ctx, domain.Event{
		Type:     "snowball:submit",
		SenderID: "alice",
		Payload:  map[string]any{"count": 3},
	})
	require.NoError(t, err)

	select {
	case evt := <-sub.Events():
		// Numbers come back as float64, like any JSON transport.
		assert.Equal(t, float64(3), evt.Payload["count"])
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	ctx := context.Background()
	hub := memory.NewHub()

	sub, err := hub.Channel("r1", "bob").Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, hub.Channel("r2", "alice").Send(ctx, domain.Event{Type: "a:b", SenderID: "alice"}))

	select {
	case evt := <-sub.Events():
		t.Fatalf("unexpected event from another room: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, []string{"bob"}, hub.Members("r1"))
}

func TestHub_SendAfterCloseIsSafe(t *testing.T) {
	ctx := context.Background()
	hub := memory.NewHub()

	sub, err := hub.Channel("r1", "bob").Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	assert.NoError(t, hub.Channel("r1", "alice").Send(ctx, domain.Event{Type: "a:b", SenderID: "alice"}))
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestLocker_ExclusiveAndExpiring(t *testing.T) {
	ctx := context.Background()
	locker := memory.NewLocker()

	unlock, err := locker.Lock(ctx, "room", time.Minute)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "room", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "room", 20*time.Millisecond)
	require.NoError(t, err)

	// Expired locks can be taken again; the stale unlock is a no-op.
	unlock3, err := locker.Lock(ctx, "room", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))

	short2, cancel2 := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel2()
	_, err = locker.Lock(short2, "room", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, unlock3(ctx))
}
