package eino

import (
	"strings"

	"github.com/arborworks/arbor/pkg/utils/json"
)

// NormalizeArguments turns whatever a provider produced for tool-call
// arguments into a valid mapping. Providers disagree here: some send JSON
// objects, some empty strings, some truncated fragments. The engine never
// sees a raised fault from this path.
//
// Empty or whitespace input yields an empty map with warned=true.
// Undecodable input yields a map carrying "_error" and "_raw" so the
// failure is visible to the model instead of crashing the turn.
func NormalizeArguments(raw string) (args map[string]any, warned bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" || trimmed == "None" {
		return map[string]any{}, true
	}

	var decoded any
	if err := json.UnmarshalString(trimmed, &decoded); err != nil {
		return map[string]any{
			"_error": "arguments were not valid JSON: " + err.Error(),
			"_raw":   raw,
		}, true
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v, false
	default:
		// Valid JSON but not an object (a bare string or number).
		return map[string]any{
			"_error": "arguments were not a JSON object",
			"_raw":   raw,
		}, true
	}
}
