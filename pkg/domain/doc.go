/*
Package domain contains the core models of the huddle activity runtime.

It defines the plugin contract for activities, the live runtime state owned by
a controller, the events exchanged over the broadcast channel and the error
taxonomy shared by every layer. The package is kept free of I/O and
persistence, following the hexagonal layout used across the repository.

# Key Entities

  - Activity: a pluggable activity (built-in or user registered).
  - Definition: the serializable subset of an activity (slug, title, phases, metadata).
  - RuntimeState: the Idle/Active snapshot a controller owns for one room.
  - Event: one inbound or outbound broadcast message.
  - Reaction: a short-lived ephemeral overlay, never part of RuntimeState.
  - RoomSnapshot: the single most recent event cached for late joiners.
*/
package domain
