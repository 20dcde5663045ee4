package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// GenericFailureMessage is surfaced when no provider message can be decoded.
const GenericFailureMessage = "AI generation failed. Please try again."

// ErrMissingCredential is returned before any I/O when the caller supplied no key.
// The message must keep the "API Key" substring; clients match on it.
var ErrMissingCredential = errors.New("API Key is missing. Please set your API key in settings.")

type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing_credential"
	KindTransport         ErrorKind = "transport"
)

// Error is the single error type returned by the gateway.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Provider   string
	Cause      error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return GenericFailureMessage
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusError builds the error for a non-2xx response. The message is taken
// from a {"error":{"message":...}} body when present, otherwise it falls back
// to "<label> API error (<status>)".
func StatusError(label string, status int, body []byte) *Error {
	msg := fmt.Sprintf("%s API error (%d)", label, status)
	if decoded := ErrorMessageFromBody(body); decoded != "" {
		msg = decoded
	}
	return &Error{
		Kind:       KindTransport,
		Message:    msg,
		StatusCode: status,
		Provider:   label,
		Cause:      fmt.Errorf("%s api error (status %d): %s", label, status, string(body)),
	}
}

// ErrorMessageFromBody extracts error.message from a JSON error body.
// It returns "" when the body is not JSON or carries no message.
func ErrorMessageFromBody(body []byte) string {
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Error == nil {
		return ""
	}
	return parsed.Error.Message
}

// NetworkError wraps a failure that happened before a response was read.
// The message stays empty so callers see the generic text.
func NetworkError(label string, err error) *Error {
	return &Error{
		Kind:     KindTransport,
		Provider: label,
		Cause:    err,
	}
}
