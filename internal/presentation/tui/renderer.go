// Package tui renders CLI output for terminals.
package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Plain mode returns the markdown untouched, for pipes and redirects.
func NewRenderer(plain bool) func(string) (string, error) {
	if plain {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ActivityRow is one line of an activity listing.
type ActivityRow struct {
	Definition  domain.Definition
	UserDefined bool
}

// ActivitiesMarkdown renders a listing as a markdown table.
func ActivitiesMarkdown(rows []ActivityRow) string {
	var b strings.Builder
	b.WriteString("| Slug | Title | Phases | Origin |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, row := range rows {
		origin := "built-in"
		if row.UserDefined {
			origin = row.Definition.Metadata.SourceID
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n",
			row.Definition.Slug,
			escapeCell(row.Definition.Title),
			escapeCell(strings.Join(row.Definition.Phases, " → ")),
			escapeCell(origin),
		)
	}
	return b.String()
}

// ActivityMarkdown renders one activity with its description.
func ActivityMarkdown(row ActivityRow) string {
	def := row.Definition
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", def.Title)
	fmt.Fprintf(&b, "- **Slug:** `%s`\n", def.Slug)
	if len(def.Phases) > 0 {
		fmt.Fprintf(&b, "- **Phases:** %s\n", strings.Join(def.Phases, " → "))
	}
	if row.UserDefined {
		fmt.Fprintf(&b, "- **Source:** %s (version %d)\n", def.Metadata.SourceID, def.Metadata.DefinitionVersion)
		if !def.Metadata.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "- **Created:** %s\n", def.Metadata.CreatedAt.Format("2006-01-02 15:04"))
		}
	} else {
		b.WriteString("- **Source:** built-in\n")
	}
	if desc := strings.TrimSpace(def.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
