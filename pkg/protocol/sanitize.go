package protocol

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxTextSize is 4KB per string value.
	DefaultMaxTextSize = 4096
	// EnvMaxTextSize overrides DefaultMaxTextSize.
	EnvMaxTextSize = "HUDDLE_MAX_TEXT_SIZE"
)

var (
	ErrTextTooLarge = errors.New("text exceeds maximum allowed size")
	ErrInvalidUTF8  = errors.New("text contains invalid UTF-8 sequences")
)

// SanitizeText enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return.
// Oversized text is rejected, never truncated, so every client keeps the same state.
func SanitizeText(input string) (string, error) {
	limit := maxTextSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTextTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// SanitizePayload returns a copy of payload with every string value, at any
// depth, passed through SanitizeText. The first rejected value fails the whole payload.
func SanitizePayload(payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, nil
	}
	out, err := sanitizeValue(payload, "")
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func sanitizeValue(v any, path string) (any, error) {
	switch val := v.(type) {
	case string:
		clean, err := SanitizeText(val)
		if err != nil {
			return nil, fmt.Errorf("payload%s: %w", path, err)
		}
		return clean, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			clean, err := sanitizeValue(item, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = clean
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			clean, err := sanitizeValue(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = clean
		}
		return out, nil
	default:
		return v, nil
	}
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func maxTextSize() int {
	if val := os.Getenv(EnvMaxTextSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxTextSize
}
