package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Endpoint  string
	Method    string
	Path      string
	Status    int
	Message   string
	RequestID string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Unwrap exposes the structured CLI error so callers can match codes with
// clierr.Is and render the usual error envelope.
func (e *StatusError) Unwrap() error {
	return e.cliError()
}

func (e *StatusError) cliError() *clierr.Error {
	if e.Status == http.StatusNotFound && strings.HasPrefix(e.Path, "tasks/tasks/") {
		id, _, _ := strings.Cut(strings.TrimPrefix(e.Path, "tasks/tasks/"), "/")
		return clierr.Newf(clierr.TaskNotFound, "task not found: %s", id).
			WithDetails(map[string]any{"id": id, "status": e.Status})
	}
	return clierr.Newf(clierr.RequestFailed, "%s failed: %s", e.Endpoint, e.Error()).
		WithDetails(map[string]any{
			"endpoint":   e.Endpoint,
			"status":     e.Status,
			"request_id": e.RequestID,
		})
}

// errorMessage extracts a message from a JSON error body, falling back to
// the trimmed raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	const maxLen = 200
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
