/*
Package http exposes the activity registry and room relay over HTTP.

The server joins each room as an observer participant. Events posted to
/rooms/{room}/events are applied to the observer's controller first, so a
rejected event never reaches the room, and are then relayed to every other
participant through the room channel. Clients that cannot hold a transport
connection follow a room through the SSE stream at /rooms/{room}/stream,
which sends the full state once and then state diffs and reactions.

Routes:

	GET  /health
	GET  /info
	GET  /activities
	POST /activities
	GET  /activities/{slug}
	GET  /rooms
	GET  /rooms/{room}/state
	GET  /rooms/{room}/snapshot
	POST /rooms/{room}/events
	GET  /rooms/{room}/stream?watch=active_slug,phase,shared,reactions
	GET  /metrics                 (when configured)
*/
package http
