package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/huddle/pkg/adapters/redis"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestOverlayStore_Contract(t *testing.T) {
	_, client := setupTestClient(t)
	ports.RunOverlayStoreContract(t, redis.NewOverlayStore(client))
}

func TestTransport_Contract(t *testing.T) {
	_, client := setupTestClient(t)
	ports.RunChannelContract(t, redis.NewTransport(client))
}

func TestOverlayStore_UsesPrefixedHash(t *testing.T) {
	mr, client := setupTestClient(t)
	store := redis.NewOverlayStore(client, redis.WithPrefix("test:"))

	require.NoError(t, store.Set(context.Background(), map[string]domain.Definition{
		"retro": {Slug: "retro", Title: "Retro"},
	}))
	assert.True(t, mr.Exists("test:overlay"))
	assert.Contains(t, mr.HGet("test:overlay", "retro"), `"title":"Retro"`)

	require.NoError(t, store.Set(context.Background(), map[string]domain.Definition{}))
	assert.False(t, mr.Exists("test:overlay"))
}

func TestOverlayStore_CorruptEntry(t *testing.T) {
	mr, client := setupTestClient(t)
	mr.HSet(redis.DefaultPrefix+"overlay", "x", "{broken")

	_, err := redis.NewOverlayStore(client).Get(context.Background())
	assert.Error(t, err)
}

func TestChannel_SnapshotTTL(t *testing.T) {
	mr, client := setupTestClient(t)
	transport := redis.NewTransport(client, redis.WithSnapshotTTL(time.Minute))
	ch := transport.Channel("r1", "alice")

	require.NoError(t, ch.SetSnapshot(context.Background(), domain.RoomSnapshot{ActiveSlug: "snowball"}))
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"room:r1:snapshot"))

	mr.FastForward(2 * time.Minute)
	snap, err := ch.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}

func TestSubscription_SkipsUndecodableMessages(t *testing.T) {
	mr, client := setupTestClient(t)
	ctx := context.Background()
	transport := redis.NewTransport(client)

	sub, err := transport.Channel("r1", "bob").Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(redis.DefaultPrefix+"room:r1:events", "not json")
	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "unmarshal")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a decode error")
	}

	require.NoError(t, transport.Channel("r1", "alice").Send(ctx, domain.Event{Type: "snowball:start", SenderID: "alice"}))
	select {
	case evt := <-sub.Events():
		assert.Equal(t, "snowball:start", evt.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription stopped after a bad message")
	}
}

func TestSubscription_ContextCancelClosesChannels(t *testing.T) {
	_, client := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := redis.NewTransport(client).Channel("r1", "bob").Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, open := <-sub.Events():
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestLocker_LockUnlock(t *testing.T) {
	mr, client := setupTestClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "room-1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:room-1"), "lock key should be set in redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:room-1"), "lock key should be removed after unlock")
}

func TestLocker_Contention(t *testing.T) {
	_, client := setupTestClient(t)
	first := redis.NewLocker(client, "test:")
	second := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "room-1", 5*time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = second.Lock(short, "room-1", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	unlock2, err := second.Lock(ctx, "room-1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := setupTestClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	staleUnlock, err := locker.Lock(ctx, "room-1", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock, err := locker.Lock(ctx, "room-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, staleUnlock(ctx))
	assert.True(t, mr.Exists("test:lock:room-1"), "stale unlock must not release the new owner's lock")
	require.NoError(t, unlock(ctx))
}
