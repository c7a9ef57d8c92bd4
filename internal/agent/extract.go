package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// The model answers in free text that usually, but not always, contains the
// requested JSON. Extraction is field-by-field with a default per field, so a
// partially malformed answer degrades to defaults instead of failing the
// stage.

var codeFenceRe = regexp.MustCompile("```(?:json)?\\s*")

// stripCodeFences removes markdown code fences around a model response.
func stripCodeFences(s string) string {
	return strings.TrimSpace(codeFenceRe.ReplaceAllString(s, ""))
}

// extractValue pulls a scalar field out of a JSON-ish response, falling back
// to def when the field is absent or unreadable.
func extractValue(body, key, def string) string {
	quoted := regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*"([^"]+)"`, regexp.QuoteMeta(key)))
	if m := quoted.FindStringSubmatch(body); m != nil {
		return m[1]
	}

	// Bare booleans and numbers.
	bare := regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*([^,}\s]+)`, regexp.QuoteMeta(key)))
	if m := bare.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return def
}

// extractBool reads a boolean field, falling back to def.
func extractBool(body, key string, def bool) bool {
	switch extractValue(body, key, "") {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}

// extractArray pulls a string-array field out of a JSON-ish response.
// Missing or unreadable arrays come back empty.
func extractArray(body, key string) []string {
	re := regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*\[([^\]]+)\]`, regexp.QuoteMeta(key)))
	m := re.FindStringSubmatch(body)
	if m == nil {
		return []string{}
	}

	items := []string{}
	for _, raw := range strings.Split(m[1], ",") {
		item := strings.Trim(strings.TrimSpace(raw), `"`)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// extractNestedObject pulls a field whose value is a JSON object, matching
// braces so nested objects survive. Falls back to a string value, then "{}".
func extractNestedObject(body, key string) string {
	keyIdx := strings.Index(body, `"`+key+`"`)
	if keyIdx == -1 {
		return ""
	}

	start := strings.Index(body[keyIdx:], "{")
	if start == -1 {
		return extractValue(body, key, "{}")
	}
	start += keyIdx

	depth := 1
	for i := start + 1; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 {
			return body[start : i+1]
		}
	}
	return "{}"
}
