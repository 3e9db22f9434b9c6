package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedTag is matched by every ProtocolError.
var ErrMalformedTag = errors.New("malformed type tag")

// ErrSlugConflict is matched by every ConflictError.
var ErrSlugConflict = errors.New("slug conflicts with a built-in activity")

// ErrUnknownActivity is matched by every LookupError.
var ErrUnknownActivity = errors.New("unknown activity")

// ErrHandlerFailed is matched by every HandlerError.
var ErrHandlerFailed = errors.New("activity handler failed")

// ErrNotActive is wrapped by LookupError when an event targets a namespace
// that is not the active activity.
var ErrNotActive = errors.New("activity is not active")

// ProtocolError reports a tag that is not "<namespace>:<action>".
type ProtocolError struct {
	Tag    string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed type tag %q: %s", e.Tag, e.Reason)
	}
	return fmt.Sprintf("malformed type tag %q", e.Tag)
}

func (e *ProtocolError) Unwrap() error { return ErrMalformedTag }

// ConflictError reports a registration that collides with a built-in slug.
type ConflictError struct {
	Slug string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot register %q: %v", e.Slug, ErrSlugConflict)
}

func (e *ConflictError) Unwrap() error { return ErrSlugConflict }

// LookupError reports an event referencing a slug that cannot be resolved.
type LookupError struct {
	Slug  string
	Cause error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unknown activity %q: %v", e.Slug, e.Cause)
	}
	return fmt.Sprintf("unknown activity %q", e.Slug)
}

func (e *LookupError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrUnknownActivity, e.Cause}
	}
	return []error{ErrUnknownActivity}
}

// HandlerError wraps a failure (error or panic) raised by OnStart/OnEvent.
type HandlerError struct {
	Slug   string
	Action string
	Cause  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("activity %q failed on %q: %v", e.Slug, e.Action, e.Cause)
}

func (e *HandlerError) Unwrap() []error {
	return []error{ErrHandlerFailed, e.Cause}
}
