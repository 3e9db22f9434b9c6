// Package runtime implements the per-client activity controller.
//
// A Controller owns one RuntimeState for one room. It is either Idle or
// Active(slug, phase, shared). Every inbound event is applied to completion
// under a single lock, and local actions are applied optimistically before
// they are broadcast.
package runtime
