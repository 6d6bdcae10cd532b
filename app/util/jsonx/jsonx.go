// Package jsonx extracts JSON-shaped payloads out of loosely structured
// model output. Oracles frequently wrap the requested object in prose or
// markdown fences; every structured adapter funnels its raw response
// through this package so the fragility lives in one place.
package jsonx

import (
	"encoding/json"
	"strings"
)

// Clean strips markdown code fences and a leading "json" language tag.
func Clean(raw string) string {
	result := strings.TrimSpace(raw)
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")

	return strings.TrimSpace(result)
}

// Object returns the outermost {...} region of text, scanning from the
// first opening brace to the last closing one.
func Object(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start < 0 || end < start {
		return "", false
	}

	return text[start : end+1], true
}

// Decode locates and unmarshals a JSON object embedded in raw text.
// A false result means no well-formed object was found, which is a
// normal outcome for conversational responses, not an error.
func Decode[T any](raw string, out *T) bool {
	obj, ok := Object(Clean(raw))
	if !ok {
		return false
	}

	return json.Unmarshal([]byte(obj), out) == nil
}
