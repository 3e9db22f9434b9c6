/*
Package session connects a room controller to a transport.

A Session subscribes to the room, resyncs once from the room snapshot, then
pumps inbound events into the controller one at a time until it is closed.
It also tracks which participants announced themselves and can claim the
advisory room authority through a distributed lock.

A Manager keeps one session per room for servers that observe many rooms.
*/
package session
