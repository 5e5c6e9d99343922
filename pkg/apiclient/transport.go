package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/utils/logger"
)

// Transport performs exactly one network exchange per call.
type Transport interface {
	RoundTrip(ctx context.Context, desc RequestDescriptor) AttemptResult
}

// RestyTransport is the HTTP transport backed by resty. It never retries on
// its own; retry policy lives in Retrier.
type RestyTransport struct {
	client  *resty.Client
	cfg     ClientConfig
	decoder *zstd.Decoder
}

func NewRestyTransport(cfg ClientConfig) (*RestyTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetRetryCount(0).
		SetLogger(logger.Resty())

	if cfg.Compression {
		client.SetHeader("Accept-Encoding", "zstd")
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &RestyTransport{client: client, cfg: cfg, decoder: decoder}, nil
}

// Close releases the zstd decoder.
func (t *RestyTransport) Close() {
	t.decoder.Close()
}

// RoundTrip issues desc once. The attempt runs under its own deadline; when
// it fires the in-flight exchange is cancelled, not abandoned.
func (t *RestyTransport) RoundTrip(ctx context.Context, desc RequestDescriptor) AttemptResult {
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = t.cfg.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := t.client.R().
		SetContext(attemptCtx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(desc.Headers)
	if len(desc.Query) > 0 {
		req.SetQueryParamsFromValues(desc.Query)
	}
	if desc.Body != nil {
		req.SetBody(desc.Body)
	}

	resp, err := req.Execute(desc.method(), desc.Path)
	if err != nil {
		return classifyError(ctx, attemptCtx, err)
	}
	return t.classifyResponse(resp)
}

func classifyError(parent, attempt context.Context, err error) AttemptResult {
	if parent.Err() != nil {
		return Terminal(&FailureError{Kind: KindCanceled, Cause: parent.Err()})
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return Retryable(&FailureError{Kind: KindTimeout, Cause: err})
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Retryable(&FailureError{Kind: KindTimeout, Cause: err})
	}
	return Retryable(&FailureError{Kind: KindConnection, Cause: err})
}

func (t *RestyTransport) classifyResponse(resp *resty.Response) AttemptResult {
	status := resp.StatusCode()
	body := resp.Body()

	if strings.Contains(strings.ToLower(resp.Header().Get("Content-Encoding")), "zstd") {
		out, err := t.decoder.DecodeAll(body, nil)
		if err != nil {
			log.Error().Err(err).Int("status", status).Msg("zstd: failed to decompress response")
			return Terminal(&FailureError{Kind: KindMalformedResponse, Status: status, Cause: err})
		}
		body = out
	}

	switch {
	case status >= 400 && status < 500:
		return Terminal(&FailureError{Kind: KindClientError, Status: status, Body: truncateBody(body)})
	case status < 200 || status >= 300:
		return Retryable(&FailureError{Kind: KindServerError, Status: status, Body: truncateBody(body)})
	}

	if !sonic.Valid(body) {
		return Terminal(&FailureError{
			Kind:   KindMalformedResponse,
			Status: status,
			Cause:  fmt.Errorf("body is not valid JSON (%d bytes)", len(body)),
		})
	}
	return Success(Payload(body))
}
