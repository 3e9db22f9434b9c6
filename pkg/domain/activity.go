package domain

import "time"

// Metadata records where a definition came from.
// It is immutable once the definition has been registered.
type Metadata struct {
	SourceID          string    `json:"source_id" yaml:"source_id" mapstructure:"source_id"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at" mapstructure:"created_at"`
	DefinitionVersion int       `json:"definition_version" yaml:"definition_version" mapstructure:"definition_version"`
	IsUserGenerated   bool      `json:"is_user_generated" yaml:"is_user_generated" mapstructure:"is_user_generated"`
	CanRegenerate     bool      `json:"can_regenerate" yaml:"can_regenerate" mapstructure:"can_regenerate"`
}

// Definition is the serializable part of an activity.
// Behavior (OnStart/OnEvent) cannot be persisted and lives on Activity.
type Definition struct {
	Slug        string   `json:"slug" yaml:"slug" mapstructure:"slug"`
	Title       string   `json:"title" yaml:"title" mapstructure:"title"`
	Phases      []string `json:"phases,omitempty" yaml:"phases,omitempty" mapstructure:"phases"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Metadata    Metadata `json:"metadata" yaml:"metadata" mapstructure:"metadata"`
}

// InitialPhase returns the first declared phase, or "" if none is declared.
// Phases are advisory: nothing checks that the shared state stays within them.
func (d Definition) InitialPhase() string {
	if len(d.Phases) == 0 {
		return ""
	}
	return d.Phases[0]
}

// Identity is supplied by the session layer.
// Authority is advisory: it decides who computes the initial snapshot and
// who maintains the resync cache, it is not enforced.
type Identity struct {
	ParticipantID string `json:"participant_id"`
	IsAuthority   bool   `json:"is_authority"`
}

// Context is what an activity sees when it handles a start or an event.
type Context struct {
	RoomID        string
	ParticipantID string
	IsAuthority   bool
	Phase         string
	State         SharedState
}

// Activity is the plugin contract implemented by every activity.
type Activity interface {
	// Definition describes the activity.
	Definition() Definition

	// OnStart produces the initial shared state for the initiating client.
	OnStart(actx Context) (SharedState, error)

	// OnEvent returns the next shared state for one event of the activity's namespace.
	// It must not mutate actx.State; the result replaces the shared state wholesale.
	OnEvent(evt Event, actx Context) (SharedState, error)
}
