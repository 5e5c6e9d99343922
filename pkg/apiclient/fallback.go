package apiclient

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/utils/logger"
)

// UnavailablePayload is the last-resort default for endpoints without a
// schema-specific default.
var UnavailablePayload = Payload(`{"success":false,"message":"Data unavailable","unavailable":true}`)

type fallbackKind int

const (
	fallbackInline fallbackKind = iota + 1
	fallbackStatic
)

// Fallback is a FallbackMap entry: an inline literal or a static resource.
type Fallback struct {
	kind     fallbackKind
	inline   Payload
	resource string
}

// Inline returns a Tier-1 fallback holding p verbatim.
func Inline(p Payload) Fallback {
	return Fallback{kind: fallbackInline, inline: p}
}

// MustInline encodes v as the inline literal. It panics if v cannot be
// encoded, which only happens for programming errors.
func MustInline(v any) Fallback {
	b, err := sonic.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("apiclient: inline fallback: %v", err))
	}
	return Inline(b)
}

// Static returns a Tier-2 fallback referencing a bundled resource such as
// "/mock/financials.json".
func Static(resource string) Fallback {
	return Fallback{kind: fallbackStatic, resource: resource}
}

func (f Fallback) IsInline() bool   { return f.kind == fallbackInline }
func (f Fallback) Resource() string { return f.resource }

// StaticFetcher loads bundled fallback resources. Implementations make a
// single attempt; a failure here indicates a packaging problem.
type StaticFetcher interface {
	Fetch(ctx context.Context, resource string) (Payload, error)
}

// Resolver supplies substitute data for an endpoint whose live fetch failed.
type Resolver struct {
	fallbacks map[EndpointID]Fallback
	defaults  map[EndpointID]Payload
	fetcher   StaticFetcher
}

// NewResolver copies the maps; later changes by the caller have no effect.
func NewResolver(fallbacks map[EndpointID]Fallback, defaults map[EndpointID]Payload, fetcher StaticFetcher) *Resolver {
	return &Resolver{
		fallbacks: maps.Clone(fallbacks),
		defaults:  maps.Clone(defaults),
		fetcher:   fetcher,
	}
}

// HasFallback reports whether endpoint may be served from a fallback tier.
func (r *Resolver) HasFallback(endpoint EndpointID) bool {
	_, ok := r.fallbacks[endpoint]
	return ok
}

// Resolve walks the tiers for endpoint. last is the final live failure and
// is only carried into NoFallbackError.
func (r *Resolver) Resolve(ctx context.Context, endpoint EndpointID, last error) (Payload, Source, error) {
	fb, ok := r.fallbacks[endpoint]
	if !ok {
		return nil, "", &NoFallbackError{Endpoint: endpoint, Last: last}
	}

	switch fb.kind {
	case fallbackInline:
		return fb.inline, SourceInline, nil
	case fallbackStatic:
		if r.fetcher != nil {
			p, err := r.fetcher.Fetch(ctx, fb.resource)
			if err == nil {
				return p, SourceStatic, nil
			}
			log.Error().Err(err).
				Str("endpoint", string(endpoint)).
				Str("resource", fb.resource).
				Msg("failed to load fallback data")
		}
	}
	return r.defaultFor(endpoint), SourceDefault, nil
}

func (r *Resolver) defaultFor(endpoint EndpointID) Payload {
	if p, ok := r.defaults[endpoint]; ok && len(p) > 0 {
		return p
	}
	return UnavailablePayload
}

// FSFetcher reads resources from a file system, typically an embed.FS.
// Resource paths are slash-separated; a leading slash is ignored.
type FSFetcher struct {
	FS fs.FS
}

func (f FSFetcher) Fetch(_ context.Context, resource string) (Payload, error) {
	name := strings.TrimPrefix(resource, "/")
	b, err := fs.ReadFile(f.FS, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resource, err)
	}
	if !sonic.Valid(b) {
		return nil, fmt.Errorf("read %s: %w", resource, ErrMalformedResponse)
	}
	return Payload(b), nil
}

// HTTPFetcher loads resources from a static origin with one GET and no retry.
type HTTPFetcher struct {
	client *resty.Client
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(logger.Resty())
	return &HTTPFetcher{client: client}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, resource string) (Payload, error) {
	resp, err := h.client.R().SetContext(ctx).Get(resource)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", resource, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get %s returned status %d", resource, resp.StatusCode())
	}
	body := resp.Body()
	if !sonic.Valid(body) {
		return nil, fmt.Errorf("get %s: %w", resource, ErrMalformedResponse)
	}
	return Payload(body), nil
}
