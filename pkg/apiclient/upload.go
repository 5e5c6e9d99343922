package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// UploadCompleted replaces a successful upload response whose body is not JSON.
var UploadCompleted = Payload(`{"success":true,"message":"Upload completed"}`)

// FilePart is the file sent as one multipart form field.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
	// Fields are extra form values sent with the file.
	Fields map[string]string
}

// Upload sends part as multipart/form-data in a single attempt. Uploads are
// not idempotent so they are never retried. Progress percentages in [0,100]
// are sent to progress without blocking, except the final 100 which waits
// for the receiver. The channel is not closed.
func (c *Client) Upload(ctx context.Context, endpoint EndpointID, desc RequestDescriptor, part FilePart, progress chan<- float64) (Result, error) {
	if desc.Method == "" {
		desc.Method = http.MethodPost
	}
	if err := desc.validate(); err != nil {
		return Result{}, err
	}
	if part.Field == "" || part.Content == nil {
		return Result{}, fmt.Errorf("%w: upload needs a field name and content", ErrInvalidRequest)
	}

	if !c.state.Online() {
		log.Warn().Str("endpoint", string(endpoint)).Msg("offline - upload not attempted")
		return c.resolveUpload(ctx, endpoint, 0, ReasonOffline, nil)
	}

	body, contentType, err := encodeMultipart(part)
	if err != nil {
		return Result{}, err
	}

	reporter := newProgressReader(body, progress)
	desc = desc.WithHeader("Content-Type", contentType).WithBody(reporter)

	start := time.Now()
	res := c.transport.RoundTrip(ctx, desc)
	c.metrics.ObserveRequest(string(endpoint), time.Since(start).Seconds())
	c.metrics.RecordAttempt(string(endpoint), res.Kind.String())

	if res.Kind == OutcomeTerminal && res.Err != nil &&
		res.Err.Kind == KindMalformedResponse && res.Err.Status >= 200 && res.Err.Status < 300 {
		res = Success(UploadCompleted)
	}

	if res.Kind == OutcomeSuccess {
		reporter.finish(ctx)
		log.Info().Str("endpoint", string(endpoint)).Str("filename", part.Filename).Msg("upload completed")
		return Result{Payload: res.Payload, Source: SourceLive, Attempts: 1}, nil
	}

	reason := ReasonExhausted
	switch {
	case res.Kind == OutcomeTerminal && res.Err != nil && res.Err.Kind == KindCanceled:
		reason = ReasonCanceled
	case res.Kind == OutcomeTerminal:
		reason = ReasonTerminal
	}
	log.Error().Str("endpoint", string(endpoint)).Str("filename", part.Filename).Err(res.Err).Msg("upload failed")

	var last error
	if res.Err != nil {
		last = res.Err
	}
	return c.resolveUpload(ctx, endpoint, 1, reason, last)
}

func (c *Client) resolveUpload(ctx context.Context, endpoint EndpointID, attempts int, reason Reason, last error) (Result, error) {
	payload, source, err := c.resolver.Resolve(ctx, endpoint, last)
	if err != nil {
		return Result{Attempts: attempts, Reason: reason, LastErr: last}, err
	}
	c.metrics.RecordFallback(string(endpoint), string(source))
	return Result{
		Payload:  payload,
		Source:   source,
		Degraded: true,
		Attempts: attempts,
		Reason:   reason,
		LastErr:  last,
	}, nil
}

func encodeMultipart(part FilePart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range part.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	fw, err := w.CreateFormFile(part.Field, part.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, part.Content); err != nil {
		return nil, "", fmt.Errorf("read upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// progressReader reports how much of the body the transport has consumed.
// 100 is only reported by finish, once the server accepted the upload.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  float64
	out   chan<- float64
	done  bool
}

func newProgressReader(body *bytes.Buffer, out chan<- float64) *progressReader {
	p := &progressReader{r: body, total: int64(body.Len()), last: -1, out: out}
	p.report(0)
	return p
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := float64(p.read) / float64(p.total) * 100
		if pct >= 100 {
			pct = 99
		}
		p.report(pct)
	}
	return n, err
}

func (p *progressReader) report(pct float64) {
	if p.out == nil || pct <= p.last {
		return
	}
	select {
	case p.out <- pct:
		p.last = pct
	default:
	}
}

// finish delivers the final 100, waiting for the receiver unless ctx ends.
func (p *progressReader) finish(ctx context.Context) {
	if p.out == nil || p.done {
		return
	}
	p.done = true
	select {
	case p.out <- 100:
		p.last = 100
	case <-ctx.Done():
	}
}
