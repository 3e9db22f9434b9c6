/*
Package protocol implements the wire-level event type tag used by huddle.

Every broadcast event carries a tag of the form "<namespace>:<action>". The
namespace identifies the activity instance (its slug) and the action names
the operation within it. Three actions are reserved for lifecycle control:

  - start: enters an activity.
  - end: leaves it and clears the shared state.
  - reaction: an ephemeral, non-authoritative overlay (emoji bursts).

Everything else is defined by the activity itself.
*/
package protocol
