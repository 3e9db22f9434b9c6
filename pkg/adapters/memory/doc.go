// Package memory provides in-process adapters for the overlay store, the room
// transport and the distributed locker. They are used for tests, single-process
// servers and the CLI replay tool.
package memory
