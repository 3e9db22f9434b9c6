// Package mcp exposes the activity registry and room relay as Model Context
// Protocol tools, so assistants can list and author activities and drive rooms.
package mcp
