package protocol

import (
	"fmt"
	"strings"

	"github.com/aretw0/huddle/pkg/domain"
)

// Separator splits the namespace from the action in a type tag.
const Separator = ":"

// RoomNamespace tags reactions sent while no activity is active.
const RoomNamespace = "room"

// Reserved control actions.
const (
	ActionStart    = "start"
	ActionEnd      = "end"
	ActionReaction = "reaction"
)

// Tag is a parsed event type tag.
type Tag struct {
	Namespace string
	Action    string
}

// String formats the tag back to its wire form.
func (t Tag) String() string {
	return Format(t.Namespace, t.Action)
}

// Parse splits a type tag into namespace and action.
// The tag must contain exactly one separator; the parts themselves are opaque.
func Parse(tag string) (Tag, error) {
	parts := strings.Split(tag, Separator)
	if len(parts) != 2 {
		return Tag{}, &domain.ProtocolError{Tag: tag}
	}
	return Tag{Namespace: parts[0], Action: parts[1]}, nil
}

// Format builds the wire form of a tag.
func Format(namespace, action string) string {
	return namespace + Separator + action
}

// IsReserved reports whether action is one of the control actions.
func IsReserved(action string) bool {
	switch action {
	case ActionStart, ActionEnd, ActionReaction:
		return true
	}
	return false
}

// ValidateSlug checks that a slug can be used as a namespace, i.e. that any
// tag built from it parses back to the same namespace.
func ValidateSlug(slug string) error {
	if strings.TrimSpace(slug) == "" {
		return &domain.ProtocolError{Tag: slug, Reason: "empty slug"}
	}
	if strings.Contains(slug, Separator) {
		return &domain.ProtocolError{Tag: slug, Reason: fmt.Sprintf("slug must not contain %q", Separator)}
	}
	return nil
}
