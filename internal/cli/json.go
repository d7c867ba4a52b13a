package cli

import (
	"encoding/json"
	"io"

	"github.com/rileyhilliard/wgjoin/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Cause      string `json:"cause,omitempty"`
}

// ErrCodeUnknown is used for errors that carry no code of their own.
const ErrCodeUnknown = "UNKNOWN"

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response. data may
// carry partial results (for example a run report that stopped early).
func WriteJSONFromError(w io.Writer, err error, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Data: data, Error: ErrorToJSON(err)})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError. Structured errors keep
// their code (CONFIG, UNREACHABLE, REJECTED, ...).
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	if wjErr, ok := err.(*errors.Error); ok {
		out := &JSONError{
			Code:       wjErr.Code,
			Message:    wjErr.Message,
			Suggestion: wjErr.Suggestion,
		}
		if wjErr.Cause != nil {
			out.Cause = wjErr.Cause.Error()
		}
		return out
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}
