// Package aijson extracts JSON objects from model output. The gateway is
// asked for clean JSON but in practice replies arrive fenced in markdown or
// wrapped in prose, so extraction tries progressively looser forms.
package aijson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseError reports that no JSON object could be extracted from a reply. It
// surfaces to the user as a failed request, never as a silent default.
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not extract JSON from model response: %q", truncate(e.Text, 120))
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// Extract returns the first candidate JSON object found in text, preferring a
// fenced block tagged json, then the first brace-delimited span, then the
// whole text.
func Extract(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil && gjson.Valid(m[1]) {
		return m[1], nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && start < end {
		if span := text[start : end+1]; gjson.Valid(span) {
			return span, nil
		}
	}

	if trimmed := strings.TrimSpace(text); gjson.Valid(trimmed) {
		return trimmed, nil
	}

	return "", &ParseError{Text: text}
}

// Unmarshal extracts the JSON object in text and decodes it into v.
func Unmarshal(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
