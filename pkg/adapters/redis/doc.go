// Package redis implements the overlay store, the room transport and the
// distributed locker on top of Redis.
//
// Keys (with the default "huddle:" prefix):
//
//	huddle:overlay                 hash of slug -> definition JSON
//	huddle:room:<id>:events        pub/sub channel of event envelopes
//	huddle:room:<id>:presence      pub/sub channel of joining participant ids
//	huddle:room:<id>:snapshot      JSON room snapshot for late joiners
//	huddle:lock:<key>              advisory authority locks
package redis
