/*
Package activities holds the activity implementations shipped with huddle.

Each activity is a flat switch over the action names of its own namespace,
mapping (current shared state, event, acting participant) to the next shared
state. Handlers never mutate the state they receive: they copy it and
override fields, so the controller can replace the shared state wholesale.

Built-ins:

  - snowball: participants write questions into a pool, then each picks one.
  - brainstorm: participants submit ideas, then vote for one.

Template is the generic activity rebuilt for user registered definitions,
whose behavior cannot be persisted.
*/
package activities
