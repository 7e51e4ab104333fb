package booking

import (
	"encoding/json"
	"strings"
)

// savvyCalErrorMessage extracts a readable message from a rejected SavvyCal
// reply: "message", then "error", then the generic fallback. A body that is
// not JSON is returned as is.
func savvyCalErrorMessage(body []byte) string {
	fields, ok := parseObject(body)
	if !ok {
		return rawOrFallback(body)
	}
	if msg := stringField(fields, "message"); msg != "" {
		return msg
	}
	if msg := stringField(fields, "error"); msg != "" {
		return msg
	}
	return msgCreateFailed
}

// calComErrorMessage extracts a readable message from a rejected Cal.com
// reply: "error.message", then "message", then a string "error", then the
// generic fallback. A body that is not JSON is returned as is.
func calComErrorMessage(body []byte) string {
	fields, ok := parseObject(body)
	if !ok {
		return rawOrFallback(body)
	}
	if nested, ok := fields["error"].(map[string]any); ok {
		if msg := stringField(nested, "message"); msg != "" {
			return msg
		}
	}
	if msg := stringField(fields, "message"); msg != "" {
		return msg
	}
	if msg := stringField(fields, "error"); msg != "" {
		return msg
	}
	return msgCreateFailed
}

func parseObject(body []byte) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

func rawOrFallback(body []byte) string {
	if raw := strings.TrimSpace(string(body)); raw != "" {
		return raw
	}
	return msgCreateFailed
}
