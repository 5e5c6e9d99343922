package cfoapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/mockdata"
	"github.com/tensorplex-labs/cfo/pkg/apiclient"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

// ErrNotPDF is returned before any network call for non-PDF files.
var ErrNotPDF = errors.New("invalid file type. Only PDFs are allowed")

const (
	msgDemoUploaded    = "File uploaded successfully! Charts generated."
	demoProcessingTime = "2-3 minutes"
)

// UploadDocument sends an annual report PDF. When the upload is served by
// a fallback tier the result carries charts generated locally from the
// filename, and progress is simulated in steps of 10.
//
// progress may be nil. Values sent on it only increase and end at 100 on
// success. UploadDocument closes progress before returning; the caller must
// keep receiving until then.
func (a *FinancialAPI) UploadDocument(ctx context.Context, filename string, content io.Reader, progress chan<- float64) (Response[model.UploadResult], error) {
	fwd := newProgressForwarder(progress)
	defer fwd.close()

	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return Response[model.UploadResult]{}, ErrNotPDF
	}

	desc := apiclient.NewRequest(http.MethodPost, PathUpload).WithHeaders(a.authHeaders(ctx))
	part := apiclient.FilePart{Field: UploadField, Filename: filepath.Base(filename), Content: content}

	res, err := a.client.Upload(ctx, EndpointUpload, desc, part, fwd.in)
	fwd.drain()
	if err != nil {
		return Response[model.UploadResult]{Reason: res.Reason, Attempts: res.Attempts}, err
	}

	out := Response[model.UploadResult]{
		Source:   res.Source,
		Degraded: res.Degraded,
		Reason:   res.Reason,
		Attempts: res.Attempts,
	}

	if !res.Degraded {
		if err := res.Payload.Decode(&out.Data); err != nil {
			return out, err
		}
		out.Data.Success = true
		if out.Data.Filename == "" {
			out.Data.Filename = part.Filename
		}
		return out, nil
	}

	log.Info().Str("filename", part.Filename).Str("reason", string(res.Reason)).Msg("using fallback upload process")
	if err := fwd.simulate(ctx, a.progressStep); err != nil {
		return out, err
	}
	graphs := mockdata.Graphs(part.Filename, a.now())
	out.Data = model.UploadResult{
		Success:        true,
		Message:        msgDemoUploaded,
		Filename:       part.Filename,
		ProcessingTime: demoProcessingTime,
		Graphs:         &graphs,
	}
	return out, nil
}

// progressForwarder relays the transport's progress to the caller, dropping
// any value not above the last one delivered.
type progressForwarder struct {
	in   chan float64
	out  chan<- float64
	wg   sync.WaitGroup
	mu   sync.Mutex
	last float64
	once sync.Once
}

func newProgressForwarder(out chan<- float64) *progressForwarder {
	f := &progressForwarder{out: out, last: -1}
	if out == nil {
		return f
	}
	f.in = make(chan float64, 16)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for v := range f.in {
			f.send(context.Background(), v)
		}
	}()
	return f
}

func (f *progressForwarder) send(ctx context.Context, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v <= f.last {
		return
	}
	select {
	case f.out <- v:
		f.last = v
	case <-ctx.Done():
	}
}

// drain stops accepting transport updates and waits for the relay.
func (f *progressForwarder) drain() {
	if f.in == nil {
		return
	}
	f.once.Do(func() { close(f.in) })
	f.wg.Wait()
}

func (f *progressForwarder) simulate(ctx context.Context, step time.Duration) error {
	if f.out == nil {
		return nil
	}
	for pct := 0; pct <= 100; pct += 10 {
		if step > 0 {
			if err := apiclient.SleepContext(ctx, step); err != nil {
				return err
			}
		}
		f.send(ctx, float64(pct))
	}
	return nil
}

func (f *progressForwarder) close() {
	if f.out == nil {
		return
	}
	f.drain()
	close(f.out)
}
