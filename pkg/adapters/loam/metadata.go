package loam

import (
	"encoding/json"
	"strconv"
)

// ActivityMetadata is the frontmatter of a catalog entry.
// The markdown body becomes the activity description.
type ActivityMetadata struct {
	Slug          string   `json:"slug" mapstructure:"slug"`
	Title         string   `json:"title" mapstructure:"title"`
	Phases        []string `json:"phases" mapstructure:"phases"`
	SourceID      string   `json:"source_id" mapstructure:"source_id"`
	CreatedAt     string   `json:"created_at" mapstructure:"created_at"`
	CanRegenerate bool     `json:"can_regenerate" mapstructure:"can_regenerate"`

	// Version may arrive as json.Number in strict mode.
	Version any `json:"version" mapstructure:"version"`
}

func (m ActivityMetadata) version() int {
	switch v := m.Version.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
