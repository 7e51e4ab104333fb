package booking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errMissingID = errors.New("response has no booking identifier")

// eventIDFrom reads the created booking's identifier from a 2xx body. The
// object under "data" is searched first (its first element when "data" is a
// list), then the top level; within each, keys are tried in order. String and
// numeric identifiers are accepted.
func eventIDFrom(body []byte, keys ...string) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if root == nil {
		return "", errMissingID
	}

	scopes := make([]map[string]any, 0, 2)
	switch data := root["data"].(type) {
	case map[string]any:
		scopes = append(scopes, data)
	case []any:
		// recurring bookings come back as a list; the first occurrence names the series
		if len(data) > 0 {
			if first, ok := data[0].(map[string]any); ok {
				scopes = append(scopes, first)
			}
		}
	}
	scopes = append(scopes, root)

	for _, scope := range scopes {
		for _, key := range keys {
			if id := idString(scope[key]); id != "" {
				return id, nil
			}
		}
	}
	return "", errMissingID
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
