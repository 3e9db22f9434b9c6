/*
Package ports defines the driven ports (interfaces) of the huddle runtime.

These interfaces decouple the registry and the controller from the external
collaborators they rely on, so the same core runs against in-memory fakes in
tests and against Redis, SQLite or the filesystem in production.

# Key Interfaces

  - OverlayStore: durable slug → definition map for user registered activities.
  - Channel: the room broadcast capability (send, subscribe, current snapshot).
  - Transport: opens a Channel for a (room, participant) pair.
  - DistributedLocker: coordinates advisory room authority between replicas.
*/
package ports
