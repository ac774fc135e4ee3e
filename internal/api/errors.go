package api

import (
	"errors"
	"net/url"
)

// ErrorKind classifies a failed call the way the reducer handles it.
type ErrorKind int

const (
	// KindOther is any transport failure not covered below.
	KindOther ErrorKind = iota
	// KindUnauthorized is a 401 from the server.
	KindUnauthorized
	// KindTimedOut is a client-side request timeout.
	KindTimedOut
	// KindDecoding is a malformed response body.
	KindDecoding
	// KindLogical is a server-reported failure with a user-facing message.
	KindLogical
)

// Error is the uniform error surfaced by every Client call.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return "Unauthorized"
	case KindTimedOut:
		return "Timed out"
	case KindDecoding:
		return "Unable to decode response"
	case KindLogical:
		return e.Msg
	default:
		if e.Msg != "" {
			return "Unknown error: " + e.Msg
		}
		return "Unknown error"
	}
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

func classifyTransport(err error) *Error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Error{Kind: KindTimedOut}
	}
	return &Error{Kind: KindOther, Msg: err.Error()}
}
