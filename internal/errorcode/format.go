package errorcode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if e.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(e.Suggestion)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", e.Code))
	return sb.String()
}

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		e = Wrap(CodeRuntime, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", e.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", e.Code))
	return sb.String()
}

// envelope is the wire shape shared by the HTTP and JSON-RPC front-ends
// (spec §6.4: "a flat code/message shape").
type envelope struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
}

// Envelope builds the {code, message, ...} shape used by the HTTP/JSON-RPC
// error bodies. Non-*Error values are wrapped as RUNTIME.
func Envelope(err error) any {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		e = Wrap(CodeRuntime, err)
	}
	return struct {
		Error envelope `json:"error"`
	}{
		Error: envelope{
			Code:       e.Code,
			Message:    e.Message,
			Category:   string(e.Category),
			Details:    e.Details,
			Suggestion: e.Suggestion,
			Retryable:  e.Retryable,
		},
	}
}

// FormatJSON returns the JSON representation of an error envelope.
func FormatJSON(err error) ([]byte, error) {
	return json.Marshal(Envelope(err))
}

// FormatForLog returns slog-friendly key/value attributes for an error.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": e.Code,
		"message":    e.Message,
		"category":   string(e.Category),
		"severity":   string(e.Severity),
		"retryable":  e.Retryable,
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	if e.Suggestion != "" {
		result["suggestion"] = e.Suggestion
	}
	for k, v := range e.Details {
		result["detail_"+k] = v
	}
	return result
}
