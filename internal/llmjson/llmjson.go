// Package llmjson decodes JSON payloads returned by chat completion models.
//
// Models routinely wrap JSON replies in markdown code fences despite
// instructions not to; every caller that expects structured output strips
// the fences first and treats anything that still fails to decode as a
// parse fault.
package llmjson

import (
	"encoding/json"
	"strings"

	"github.com/auricle-ai/auricle/pkg/fault"
)

// StripFences removes a surrounding markdown code fence (``` or ```json)
// from s, if present, and trims whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	if before, ok := strings.CutSuffix(strings.TrimSpace(s), "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

// Decode strips fences from content and unmarshals the remainder into v.
// Failures are classified as parse faults under op.
func Decode(op string, content string, v any) error {
	cleaned := StripFences(content)
	if cleaned == "" {
		return fault.New(fault.Parse, op, "empty response body")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fault.Wrap(fault.Parse, op, err)
	}
	return nil
}
