package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON takes the span from the first '{' to the last '}' of s and
// returns it if it is valid JSON. Fenced or chatty model output is handled
// this way; nil means nothing usable was found.
func ExtractJSON(s string) json.RawMessage {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil
	}
	return json.RawMessage(candidate)
}

// DecodeJSON extracts and unmarshals into dest. It reports false when there
// was no object or it did not fit dest.
func DecodeJSON(s string, dest any) bool {
	raw := ExtractJSON(s)
	if raw == nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}
