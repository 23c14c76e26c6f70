package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
)

// FieldError is one field-level validation failure reported by the training
// API on a 422-style rejection.
type FieldError struct {
	Field   string
	Message string
}

// APIError is a non-2xx response from the training API, decoded into the
// pieces the UI can actually show. The raw response body never leaks past
// this type.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "training api: %d", e.StatusCode)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Fields) > 0 {
		b.WriteString(": ")
		b.WriteString(e.fieldText())
	}
	return b.String()
}

// Transient reports whether the failure class is safe to retry: server-side
// errors, not validation or auth rejections.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500
}

// Message returns the human-readable text to surface to the athlete.
// Validation responses concatenate per-field messages; a response that
// carried nothing usable falls back to a generic line rather than raw JSON.
func (e *APIError) Message() string {
	switch {
	case e.Detail != "" && len(e.Fields) > 0:
		return e.Detail + ": " + e.fieldText()
	case e.Detail != "":
		return e.Detail
	case len(e.Fields) > 0:
		return e.fieldText()
	default:
		return "the training service rejected the request"
	}
}

func (e *APIError) fieldText() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// IsTransient reports whether err represents a failure worth one more read
// attempt: an APIError in the 5xx class, a network timeout, or a transport
// error where the response never arrived. Validation and auth failures are
// final.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// fieldErrorWire matches the nested validation shape
// {"detail": [{"loc": ["body", "start_date"], "msg": "..."}]}.
// loc elements can be strings or array indices.
type fieldErrorWire struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeAPIError turns an error response body into an APIError. The API has
// two validation dialects in the wild: a flat {"errors": {field: msg}} map
// and the nested detail list above, plus plain {"detail"|"message"|"error":
// "..."} strings. All of them must come out as readable text.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Detail  json.RawMessage   `json:"detail"`
		Message string            `json:"message"`
		Error   string            `json:"error"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Detail = http.StatusText(status)
		return apiErr
	}

	if len(envelope.Detail) > 0 {
		var s string
		if json.Unmarshal(envelope.Detail, &s) == nil {
			apiErr.Detail = s
		} else {
			var nested []fieldErrorWire
			if json.Unmarshal(envelope.Detail, &nested) == nil {
				for _, fe := range nested {
					apiErr.Fields = append(apiErr.Fields, FieldError{Field: joinLoc(fe.Loc), Message: fe.Msg})
				}
			}
		}
	}
	if apiErr.Detail == "" {
		if envelope.Message != "" {
			apiErr.Detail = envelope.Message
		} else if envelope.Error != "" {
			apiErr.Detail = envelope.Error
		}
	}

	// Flat map keys come back sorted so repeated failures read identically.
	if len(envelope.Errors) > 0 {
		fields := make([]string, 0, len(envelope.Errors))
		for f := range envelope.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			apiErr.Fields = append(apiErr.Fields, FieldError{Field: f, Message: envelope.Errors[f]})
		}
	}

	if apiErr.Detail == "" && len(apiErr.Fields) == 0 {
		apiErr.Detail = http.StatusText(status)
	}
	return apiErr
}

// joinLoc renders a nested error location like ["body", "weeks", 0, "date"]
// as "weeks.0.date". The leading "body" marker is noise for the reader.
func joinLoc(loc []any) string {
	parts := make([]string, 0, len(loc))
	for i, l := range loc {
		s := fmt.Sprintf("%v", l)
		if i == 0 && (s == "body" || s == "query" || s == "path") {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}
