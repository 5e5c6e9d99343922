package apiclient

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// EndpointID is the logical name of a backend endpoint. Fallback resolution
// is keyed by it, never by path or query parameters.
type EndpointID string

// ClientConfig is fixed at construction and never mutated afterwards.
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	BaseRetryDelay time.Duration
	// Compression asks the backend for zstd-encoded responses.
	Compression bool
}

// DefaultClientConfig is 3 attempts, 1s linear backoff and a 30s timeout.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "http://localhost:5000",
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		BaseRetryDelay: 1 * time.Second,
	}
}

func (c ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url cannot be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base url %q must include scheme and host", ErrInvalidConfig, c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidConfig)
	}
	if c.BaseRetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RequestDescriptor describes one logical request. The With* helpers return
// modified copies; a descriptor is never changed once handed to the client.
type RequestDescriptor struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	// Body is JSON-encoded unless it is an io.Reader, []byte or string.
	Body any
	// Timeout overrides ClientConfig.Timeout for each attempt when non-zero.
	Timeout time.Duration
}

func NewRequest(method, path string) RequestDescriptor {
	return RequestDescriptor{Method: method, Path: path}
}

func (d RequestDescriptor) WithQuery(q url.Values) RequestDescriptor {
	d.Query = cloneValues(q)
	return d
}

func (d RequestDescriptor) WithHeader(key, value string) RequestDescriptor {
	h := make(map[string]string, len(d.Headers)+1)
	maps.Copy(h, d.Headers)
	h[key] = value
	d.Headers = h
	return d
}

func (d RequestDescriptor) WithHeaders(headers map[string]string) RequestDescriptor {
	h := make(map[string]string, len(d.Headers)+len(headers))
	maps.Copy(h, d.Headers)
	maps.Copy(h, headers)
	d.Headers = h
	return d
}

func (d RequestDescriptor) WithBody(body any) RequestDescriptor {
	d.Body = body
	return d
}

func (d RequestDescriptor) WithTimeout(t time.Duration) RequestDescriptor {
	d.Timeout = t
	return d
}

// URL renders the descriptor against baseURL; used for logging.
func (d RequestDescriptor) URL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/") + d.Path
	if len(d.Query) > 0 {
		u += "?" + d.Query.Encode()
	}
	return u
}

func (d RequestDescriptor) validate() error {
	if d.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRequest)
	}
	if !strings.HasPrefix(d.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidRequest, d.Path)
	}
	if d.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidRequest)
	}
	switch d.Method {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead:
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, d.Method)
	}
	return nil
}

func (d RequestDescriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return d.Method
}

func cloneValues(q url.Values) url.Values {
	if q == nil {
		return nil
	}
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Payload is a JSON document received from the backend or a fallback tier.
type Payload []byte

func (p Payload) Decode(v any) error {
	if err := sonic.Unmarshal(p, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func (p Payload) String() string {
	return string(p)
}

// OutcomeKind classifies a single transport attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeRetryable
	OutcomeTerminal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	}
	return "unknown"
}

// AttemptResult is produced by the transport for every attempt.
type AttemptResult struct {
	Kind    OutcomeKind
	Payload Payload
	Err     *FailureError
}

func Success(p Payload) AttemptResult {
	return AttemptResult{Kind: OutcomeSuccess, Payload: p}
}

func Retryable(err *FailureError) AttemptResult {
	return AttemptResult{Kind: OutcomeRetryable, Err: err}
}

func Terminal(err *FailureError) AttemptResult {
	return AttemptResult{Kind: OutcomeTerminal, Err: err}
}

// Source tells which tier produced a Result payload.
type Source string

const (
	SourceLive    Source = "live"
	SourceInline  Source = "inline"
	SourceStatic  Source = "static"
	SourceDefault Source = "default"
)

// Reason explains why a Result did not come from the live backend.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonOffline   Reason = "offline"
	ReasonExhausted Reason = "exhausted"
	ReasonTerminal  Reason = "terminal"
	ReasonCanceled  Reason = "canceled"
)

// Result is what callers receive: live data or substitute data, never both.
type Result struct {
	Payload  Payload
	Source   Source
	Degraded bool
	Attempts int
	Reason   Reason
	// LastErr is the final transport failure, kept for observability.
	LastErr error
}

// Decode unmarshals a Result payload into T.
func Decode[T any](r Result) (T, error) {
	var out T
	if err := r.Payload.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
