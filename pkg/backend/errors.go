package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is a non-2xx backend response. Message holds whatever human-readable text
// could be recovered from the body.
type StatusError struct {
	status   int
	endpoint string
	message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.endpoint, e.status, e.message)
}

func (e *StatusError) StatusCode() int { return e.status }

func (e *StatusError) Endpoint() string { return e.endpoint }

func (e *StatusError) Message() string { return e.message }

// extractMessage pulls a readable message out of an error body. It looks at
// "message", "error" (string or object with "message"), then "errors[0].message",
// then falls back to the raw text or the status text.
func extractMessage(raw []byte, status int) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fallbackMessage(status)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return text
	}

	if msg := stringField(body["message"]); msg != "" {
		return msg
	}
	if errField, ok := body["error"]; ok {
		if msg := stringField(errField); msg != "" {
			return msg
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(errField, &nested); err == nil {
			if msg := stringField(nested["message"]); msg != "" {
				return msg
			}
		}
	}
	if errsField, ok := body["errors"]; ok {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(errsField, &list); err == nil && len(list) > 0 {
			if msg := stringField(list[0]["message"]); msg != "" {
				return msg
			}
		}
	}
	return fallbackMessage(status)
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func fallbackMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return fmt.Sprintf("unexpected status %d", status)
}
