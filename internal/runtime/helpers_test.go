package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
	"github.com/aretw0/huddle/pkg/registry"
)

// faulty is an activity whose handlers fail on demand.
type faulty struct {
	panics bool
}

func (f *faulty) Definition() domain.Definition {
	return domain.Definition{Slug: "faulty", Title: "Faulty", Phases: []string{"only"}}
}

func (f *faulty) OnStart(actx domain.Context) (domain.SharedState, error) {
	return domain.SharedState{"count": "0"}, nil
}

func (f *faulty) OnEvent(evt domain.Event, actx domain.Context) (domain.SharedState, error) {
	if evt.Type == "faulty:ok" {
		next := actx.State.Clone()
		next["touched"] = true
		return next, nil
	}
	if f.panics {
		panic("handler exploded")
	}
	return nil, errors.New("handler refused")
}

func newRegistry(extra ...domain.Activity) *registry.Registry {
	return registry.New(append(activities.Builtins(), extra...))
}

func receive(t *testing.T, sub ports.Subscription) domain.Event {
	t.Helper()
	select {
	case evt := <-sub.Events():
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

// brokenChannel accepts snapshots but fails every send.
type brokenChannel struct {
	snap domain.RoomSnapshot
}

func (b *brokenChannel) Send(ctx context.Context, evt domain.Event) error {
	return errors.New("network down")
}

func (b *brokenChannel) Subscribe(ctx context.Context) (ports.Subscription, error) {
	return nil, errors.New("network down")
}

func (b *brokenChannel) Snapshot(ctx context.Context) (domain.RoomSnapshot, error) {
	return b.snap, nil
}

func (b *brokenChannel) SetSnapshot(ctx context.Context, snap domain.RoomSnapshot) error {
	b.snap = snap
	return nil
}
