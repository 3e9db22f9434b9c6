/*
Package huddle is a runtime for collaborative activities played by everyone in a room.

Each participant runs a local controller that holds the active activity (Idle or
Active), applies broadcast events to a shared state, and shows short-lived
reactions. Activities are plugins resolved by slug through a registry of
immutable built-ins plus a persisted overlay of user registered definitions.

# Concept

Every message on the room channel carries a "<namespace>:<action>" type tag.
The reserved actions are "start", "end" and "reaction". Any other action is
routed to the active activity's OnEvent, whose result replaces the shared
state. Local actions are optimistic: they are applied before they are sent.

The room authority keeps a snapshot of the active slug and the most recent
event so late joiners can resync. Authority is advisory.

# Usage

	rt, err := huddle.New(ctx, huddle.WithOverlayStore(store))
	if err != nil {
		log.Fatal(err)
	}

	hub := memory.NewHub()
	room := rt.Open("room-1", domain.Identity{ParticipantID: "alice", IsAuthority: true}, hub.Channel("room-1", "alice"))
	defer room.Close()

	if err := room.Start(ctx, "snowball"); err != nil {
		log.Fatal(err)
	}
	_ = room.Emit(ctx, "submit", map[string]any{"text": "What is your favourite film?"})

Inbound traffic is usually pumped by pkg/session, which also performs the
initial resync.
*/
package huddle
