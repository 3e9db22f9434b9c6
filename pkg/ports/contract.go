package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunOverlayStoreContract runs a suite of tests to verify that an OverlayStore
// implementation adheres to the interface contract.
func RunOverlayStoreContract(t *testing.T, store OverlayStore) {
	ctx := context.Background()

	t.Run("Empty Store", func(t *testing.T) {
		overlay, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, overlay)
	})

	t.Run("Set and Get", func(t *testing.T) {
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		overlay := map[string]domain.Definition{
			"icebreaker": {
				Slug:   "icebreaker",
				Title:  "Icebreaker",
				Phases: []string{"ask", "answer"},
				Metadata: domain.Metadata{
					SourceID:          "authoring-tool",
					CreatedAt:         created,
					DefinitionVersion: 2,
					IsUserGenerated:   true,
					CanRegenerate:     true,
				},
			},
		}
		require.NoError(t, store.Set(ctx, overlay))

		loaded, err := store.Get(ctx)
		require.NoError(t, err)
		require.Contains(t, loaded, "icebreaker")

		got := loaded["icebreaker"]
		assert.Equal(t, "Icebreaker", got.Title)
		assert.Equal(t, []string{"ask", "answer"}, got.Phases)
		assert.Equal(t, "authoring-tool", got.Metadata.SourceID)
		assert.True(t, created.Equal(got.Metadata.CreatedAt))
		assert.Equal(t, 2, got.Metadata.DefinitionVersion)
		assert.True(t, got.Metadata.IsUserGenerated)
		assert.True(t, got.Metadata.CanRegenerate)
	})

	t.Run("Set Replaces Whole Overlay", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, map[string]domain.Definition{
			"a": {Slug: "a", Title: "A"},
			"b": {Slug: "b", Title: "B"},
		}))
		require.NoError(t, store.Set(ctx, map[string]domain.Definition{
			"b": {Slug: "b", Title: "B2"},
		}))

		loaded, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Len(t, loaded, 1)
		assert.Equal(t, "B2", loaded["b"].Title)
	})
}

// RunChannelContract verifies a Transport and the Channels it opens.
func RunChannelContract(t *testing.T, transport Transport) {
	ctx := context.Background()
	room := fmt.Sprintf("contract-room-%d", time.Now().UnixNano())

	t.Run("Snapshot Roundtrip", func(t *testing.T) {
		ch := transport.Channel(room, "alice")

		snap, err := ch.Snapshot(ctx)
		require.NoError(t, err)
		assert.True(t, snap.IsEmpty())

		sent := time.Now().UTC().Truncate(time.Millisecond)
		want := domain.RoomSnapshot{
			ActiveSlug: "snowball",
			Phase:      "write",
			LastEvent: &domain.Event{
				Type:     "snowball:submit",
				SenderID: "alice",
				Payload:  map[string]any{"text": "hello"},
				SentAt:   sent,
			},
		}
		require.NoError(t, ch.SetSnapshot(ctx, want))

		got, err := transport.Channel(room, "bob").Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "snowball", got.ActiveSlug)
		assert.Equal(t, "write", got.Phase)
		require.NotNil(t, got.LastEvent)
		assert.Equal(t, "snowball:submit", got.LastEvent.Type)
		assert.Equal(t, "hello", got.LastEvent.Payload["text"])
		assert.True(t, sent.Equal(got.LastEvent.SentAt))

		other, err := transport.Channel(room+"-other", "bob").Snapshot(ctx)
		require.NoError(t, err)
		assert.True(t, other.IsEmpty(), "snapshots must be scoped per room")

		require.NoError(t, ch.SetSnapshot(ctx, domain.RoomSnapshot{}))
		cleared, err := ch.Snapshot(ctx)
		require.NoError(t, err)
		assert.True(t, cleared.IsEmpty())
	})

	t.Run("Broadcast Excludes Sender", func(t *testing.T) {
		broadcastRoom := room + "-broadcast"
		alice := transport.Channel(broadcastRoom, "alice")
		bob := transport.Channel(broadcastRoom, "bob")

		aliceSub, err := alice.Subscribe(ctx)
		require.NoError(t, err)
		defer aliceSub.Close()

		bobSub, err := bob.Subscribe(ctx)
		require.NoError(t, err)
		defer bobSub.Close()

		// Alice sees Bob join.
		select {
		case who := <-aliceSub.Joins():
			assert.Equal(t, "bob", who)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for join signal")
		}

		require.NoError(t, alice.Send(ctx, domain.Event{
			Type:     "snowball:submit",
			SenderID: "alice",
			Payload:  map[string]any{"text": "hi"},
			SentAt:   time.Now(),
		}))

		select {
		case evt := <-bobSub.Events():
			assert.Equal(t, "snowball:submit", evt.Type)
			assert.Equal(t, "alice", evt.SenderID)
			assert.Equal(t, "hi", evt.Payload["text"])
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}

		select {
		case evt := <-aliceSub.Events():
			t.Fatalf("sender received its own event: %+v", evt)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("Close Is Idempotent", func(t *testing.T) {
		sub, err := transport.Channel(room+"-close", "carol").Subscribe(ctx)
		require.NoError(t, err)
		assert.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())
	})
}
