package apiclient

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout           = errors.New("request timed out")
	ErrConnection        = errors.New("connection error")
	ErrClientError       = errors.New("client error")
	ErrServerError       = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCanceled          = errors.New("request canceled")
	ErrNoFallback        = errors.New("no fallback data available for this endpoint")
	ErrInvalidRequest    = errors.New("invalid request descriptor")
	ErrInvalidConfig     = errors.New("invalid client configuration")
)

// FailureKind is the error taxonomy of a failed attempt.
type FailureKind int

const (
	KindTimeout FailureKind = iota + 1
	KindConnection
	KindClientError
	KindServerError
	KindMalformedResponse
	KindCanceled
)

func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	case KindMalformedResponse:
		return "malformed_response"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// Retryable reports whether another attempt can help.
func (k FailureKind) Retryable() bool {
	switch k {
	case KindTimeout, KindConnection, KindServerError:
		return true
	}
	return false
}

func (k FailureKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindConnection:
		return ErrConnection
	case KindClientError:
		return ErrClientError
	case KindServerError:
		return ErrServerError
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindCanceled:
		return ErrCanceled
	}
	return nil
}

// FailureError describes why an attempt failed.
//
// Use errors.Is with the Err* sentinels to branch on the kind:
//
//	if errors.Is(err, apiclient.ErrClientError) {
//	    // 4xx, retrying cannot help
//	}
type FailureError struct {
	Kind   FailureKind
	Status int
	Body   string
	Cause  error
}

func (e *FailureError) Error() string {
	msg := "attempt failed"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *FailureError) Unwrap() []error {
	var out []error
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// NoFallbackError is returned when every live attempt failed and the
// endpoint has no fallback entry. It matches ErrNoFallback and also the
// last attempt's failure.
type NoFallbackError struct {
	Endpoint EndpointID
	Last     error
}

func (e *NoFallbackError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s: %s", e.Endpoint, ErrNoFallback)
	}
	return fmt.Sprintf("%s: %s: %v", e.Endpoint, ErrNoFallback, e.Last)
}

func (e *NoFallbackError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrNoFallback}
	}
	return []error{ErrNoFallback, e.Last}
}

// maxLogBodySize bounds how much of an error body is kept in FailureError.
const maxLogBodySize = 200

func truncateBody(body []byte) string {
	if len(body) <= maxLogBodySize {
		return string(body)
	}
	return string(body[:maxLogBodySize]) + "… [truncated]"
}
