package protocol_test

import (
	"strings"
	"testing"

	"github.com/aretw0/huddle/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "Favorite snack?", "Favorite snack?", nil},
		{"keeps whitespace controls", "a\tb\r\nc", "a\tb\r\nc", nil},
		{"strips ansi escape", "\x1b[31mred\x1b[0m", "[31mred[0m", nil},
		{"strips null and bell", "a\x00b\x07c", "abc", nil},
		{"invalid utf8", "bad\xff", "", protocol.ErrInvalidUTF8},
		{"too large", strings.Repeat("x", protocol.DefaultMaxTextSize+1), "", protocol.ErrTextTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.SanitizeText(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeText_EnvLimit(t *testing.T) {
	t.Setenv(protocol.EnvMaxTextSize, "4")

	_, err := protocol.SanitizeText("12345")
	assert.ErrorIs(t, err, protocol.ErrTextTooLarge)

	t.Setenv(protocol.EnvMaxTextSize, "nonsense")
	_, err = protocol.SanitizeText("12345")
	assert.NoError(t, err)
}

func TestSanitizePayload(t *testing.T) {
	in := map[string]any{
		"text":  "hi\x1b",
		"count": 3.0,
		"nested": map[string]any{
			"tags": []any{"a\x00", true},
		},
	}

	out, err := protocol.SanitizePayload(in)
	require.NoError(t, err)
	assert.Equal(t, "hi", out["text"])
	assert.Equal(t, 3.0, out["count"])
	assert.Equal(t, []any{"a", true}, out["nested"].(map[string]any)["tags"])
	assert.Equal(t, "hi\x1b", in["text"], "input is not mutated")

	nilOut, err := protocol.SanitizePayload(nil)
	require.NoError(t, err)
	assert.Nil(t, nilOut)

	_, err = protocol.SanitizePayload(map[string]any{"list": []any{"ok", "bad\xff"}})
	assert.ErrorIs(t, err, protocol.ErrInvalidUTF8)
	assert.ErrorContains(t, err, "payload.list[1]")
}
