package cfoapi_test

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tensorplex-labs/cfo/internal/session"
	"github.com/tensorplex-labs/cfo/pkg/apiclient"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
	"github.com/tensorplex-labs/cfo/pkg/connectivity"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type FacadeTestSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	mu      sync.Mutex
	auth    map[string]string
	hits    map[string]int
	state   *connectivity.State
	store   *session.MemoryStore
	api     *cfoapi.FinancialAPI
}

func TestFacadeTestSuite(t *testing.T) {
	suite.Run(t, new(FacadeTestSuite))
}

func (s *FacadeTestSuite) SetupTest() {
	s.auth = map[string]string{}
	s.hits = map[string]int{}
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auth[r.URL.Path] = r.Header.Get("Authorization")
		s.hits[r.URL.Path]++
		h := s.handler
		s.mu.Unlock()
		h(w, r)
	}))
	s.build(s.server.URL)
}

func (s *FacadeTestSuite) TearDownTest() {
	s.server.Close()
	s.api.Client().Close()
}

func (s *FacadeTestSuite) build(baseURL string) {
	cfg := apiclient.DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	s.state = connectivity.NewState(true)
	client, err := cfoapi.NewClient(cfg,
		apiclient.WithSleeper(noSleep),
		apiclient.WithConnectivity(s.state),
	)
	s.Require().NoError(err)
	s.store = session.NewMemoryStore()
	s.api = cfoapi.New(client, s.store, cfoapi.WithSimulatedProgressStep(0))
}

func (s *FacadeTestSuite) serve(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *FacadeTestSuite) authFor(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[path]
}

func (s *FacadeTestSuite) hitsFor(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (s *FacadeTestSuite) TestLoginRoundTripAttachesToken() {
	s.serve(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case cfoapi.PathLogin:
			writeJSON(w, http.StatusOK, `{"access_token":"t"}`)
		default:
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"revenue":10}}`)
		}
	})
	ctx := context.Background()

	sess, err := s.api.Login(ctx, cfoapi.LoginInput{WorkEmail: "admin@gmail.com", Password: "admin123", JobTitle: "CFO"})
	s.Require().NoError(err)
	s.Equal("t", sess.Token)
	s.False(sess.User.Demo)

	stored, err := s.api.CurrentSession(ctx)
	s.Require().NoError(err)
	s.Equal("t", stored.Token)

	res, err := s.api.GetFinancials(ctx)
	s.Require().NoError(err)
	s.Equal(apiclient.SourceLive, res.Source)
	s.Equal(10.0, res.Data.Data.Revenue)
	s.Equal("Bearer t", s.authFor(cfoapi.PathFinancials))
	s.Empty(s.authFor(cfoapi.PathLogin))

	s.Require().NoError(s.api.Logout(ctx))
	_, err = s.api.CurrentSession(ctx)
	s.ErrorIs(err, session.ErrNoSession)
}

func (s *FacadeTestSuite) TestLoginInvalidCredentials() {
	s.serve(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid Credentials"}`)
	})

	_, err := s.api.Login(context.Background(), cfoapi.LoginInput{WorkEmail: "a@b.c", Password: "x"})
	s.Require().Error(err)
	s.ErrorIs(err, cfoapi.ErrAuthFailed)
	s.Contains(err.Error(), "Invalid Credentials")
	s.Equal(1, s.hitsFor(cfoapi.PathLogin))

	_, err = s.api.CurrentSession(context.Background())
	s.ErrorIs(err, session.ErrNoSession)
}

func (s *FacadeTestSuite) TestLoginRequiresCredentials() {
	_, err := s.api.Login(context.Background(), cfoapi.LoginInput{WorkEmail: "a@b.c"})
	s.ErrorIs(err, cfoapi.ErrAuthFailed)
	s.Equal(0, s.hitsFor(cfoapi.PathLogin))
}

func (s *FacadeTestSuite) TestLoginDemoModeWhenUnreachable() {
	s.state.Set(false)
	ctx := context.Background()

	sess, err := s.api.Login(ctx, cfoapi.LoginInput{WorkEmail: "a@b.c", Password: "x"})
	s.Require().NoError(err)
	s.Equal(cfoapi.DemoToken, sess.Token)
	s.True(sess.User.Demo)

	s.state.Set(true)
	s.serve(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"risks":[]}`)
	})
	_, err = s.api.GetRisks(ctx)
	s.Require().NoError(err)
	s.Empty(s.authFor(cfoapi.PathRisks))
}

func (s *FacadeTestSuite) TestLoginDemoModeAfterServerErrors() {
	sess, err := s.api.Login(context.Background(), cfoapi.LoginInput{WorkEmail: "a@b.c", Password: "x"})
	s.Require().NoError(err)
	s.Equal(cfoapi.DemoToken, sess.Token)
	s.Equal(3, s.hitsFor(cfoapi.PathLogin))
}

func (s *FacadeTestSuite) TestRegister() {
	s.serve(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"message":"User registered successfully"}`)
	})
	res, err := s.api.Register(context.Background(), cfoapi.RegisterInput{FullName: "A", WorkEmail: "a@b.c", Password: "x"})
	s.Require().NoError(err)
	s.False(res.Demo)
	s.Equal("Account created successfully! Please login.", res.Message)

	s.serve(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"message":"User already exists. Try logging in"}`)
	})
	_, err = s.api.Register(context.Background(), cfoapi.RegisterInput{FullName: "A", WorkEmail: "a@b.c", Password: "x"})
	s.ErrorIs(err, cfoapi.ErrAuthFailed)
	s.Contains(err.Error(), "User already exists")

	s.state.Set(false)
	res, err = s.api.Register(context.Background(), cfoapi.RegisterInput{FullName: "A", WorkEmail: "a@b.c", Password: "x"})
	s.Require().NoError(err)
	s.True(res.Demo)
	s.Equal("Account created! Please login.", res.Message)
}

func (s *FacadeTestSuite) TestAskQuestionHasNoFallback() {
	_, err := s.api.AskQuestion(context.Background(), "what is my runway?")
	s.Require().Error(err)
	s.ErrorIs(err, apiclient.ErrNoFallback)
	s.Equal(3, s.hitsFor(cfoapi.PathQuery))
}

func (s *FacadeTestSuite) TestAskQuestionSendsQuery() {
	s.serve(func(w http.ResponseWriter, r *http.Request) {
		var req model.QueryRequest
		b, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(b, &req)
		writeJSON(w, http.StatusOK, `{"response":"echo: `+req.Query+`"}`)
	})
	res, err := s.api.AskQuestion(context.Background(), "burn")
	s.Require().NoError(err)
	s.Equal("echo: burn", res.Data.Response)

	_, err = s.api.AskQuestion(context.Background(), "")
	s.Error(err)
}

func (s *FacadeTestSuite) TestFallbackEndpointsAlwaysAnswer() {
	ctx := context.Background()
	calls := []struct {
		path string
		call func() (bool, error)
	}{
		{cfoapi.PathFinancials, func() (bool, error) {
			r, err := s.api.GetFinancials(ctx)
			return r.Degraded && r.Data.Mock, err
		}},
		{cfoapi.PathRisks, func() (bool, error) {
			r, err := s.api.GetRisks(ctx)
			return r.Degraded && len(r.Data.Risks) > 0, err
		}},
		{cfoapi.PathMonitoring, func() (bool, error) {
			r, err := s.api.GetMonitoringData(ctx, url.Values{"period": {"7d"}})
			return r.Degraded && len(r.Data.Metrics) > 0, err
		}},
		{cfoapi.PathAnomalies, func() (bool, error) {
			r, err := s.api.GetAnomalies(ctx, nil)
			return r.Degraded && len(r.Data.Anomalies) > 0, err
		}},
		{cfoapi.PathForecast, func() (bool, error) {
			r, err := s.api.GetForecast(ctx, "", 0)
			return r.Degraded && len(r.Data.Projections) == 6, err
		}},
		{cfoapi.PathExport, func() (bool, error) {
			r, err := s.api.ExportData(ctx, "")
			return r.Degraded && r.Data.Demo && r.Source == apiclient.SourceInline, err
		}},
	}

	for _, c := range calls {
		ok, err := c.call()
		s.Require().NoError(err, c.path)
		s.True(ok, c.path)
		s.Equal(3, s.hitsFor(c.path), c.path)
	}
}

func (s *FacadeTestSuite) TestOfflineMakesNoRequests() {
	s.state.Set(false)

	res, err := s.api.GetFinancials(context.Background())
	s.Require().NoError(err)
	s.Equal(apiclient.SourceStatic, res.Source)
	s.Equal(apiclient.ReasonOffline, res.Reason)
	s.Equal(0, res.Attempts)
	s.Equal(0, s.hitsFor(cfoapi.PathFinancials))
	s.False(s.api.IsOnline())
}

func (s *FacadeTestSuite) TestForecastQueryDefaults() {
	var got url.Values
	s.serve(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeJSON(w, http.StatusOK, `{"success":true,"scenario":"realistic","months":6,"projections":[]}`)
	})

	_, err := s.api.GetForecast(context.Background(), "", 0)
	s.Require().NoError(err)
	s.Equal("realistic", got.Get("scenario"))
	s.Equal("6", got.Get("months"))

	_, err = s.api.ExportData(context.Background(), "")
	s.Require().NoError(err)
	s.Equal("csv", got.Get("format"))
}

func collect(ch <-chan float64) <-chan []float64 {
	out := make(chan []float64, 1)
	go func() {
		var vals []float64
		for v := range ch {
			vals = append(vals, v)
		}
		out <- vals
	}()
	return out
}

func assertMonotonicTo100(t *testing.T, vals []float64) {
	t.Helper()
	require.NotEmpty(t, vals)
	assert.Equal(t, 100.0, vals[len(vals)-1])
	for i := 1; i < len(vals); i++ {
		assert.Greater(t, vals[i], vals[i-1])
	}
}

func (s *FacadeTestSuite) TestUploadDocumentLive() {
	s.serve(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile(cfoapi.UploadField)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, `{"message":"No files passed!"}`)
			return
		}
		defer file.Close()
		_, _ = io.Copy(io.Discard, file)
		writeJSON(w, http.StatusOK, `{"message":"File `+header.Filename+` uploaded successfully!","filename":"`+header.Filename+`"}`)
	})

	progress := make(chan float64)
	done := collect(progress)
	content := bytes.Repeat([]byte("%PDF "), 50000)

	res, err := s.api.UploadDocument(context.Background(), "report.pdf", bytes.NewReader(content), progress)
	s.Require().NoError(err)
	s.False(res.Degraded)
	s.True(res.Data.Success)
	s.Equal("report.pdf", res.Data.Filename)
	s.Nil(res.Data.Graphs)

	assertMonotonicTo100(s.T(), <-done)
}

func (s *FacadeTestSuite) TestUploadDocumentFallback() {
	progress := make(chan float64, 4)
	done := collect(progress)

	res, err := s.api.UploadDocument(context.Background(), "annual.pdf", bytes.NewReader([]byte("%PDF")), progress)
	s.Require().NoError(err)
	s.True(res.Degraded)
	s.Equal(1, s.hitsFor(cfoapi.PathUpload))
	s.True(res.Data.Success)
	s.Equal("File uploaded successfully! Charts generated.", res.Data.Message)
	s.Require().NotNil(res.Data.Graphs)
	s.Equal("annual.pdf", res.Data.Graphs.Filename)
	s.Len(res.Data.Graphs.Charts, 4)

	assertMonotonicTo100(s.T(), <-done)
}

func (s *FacadeTestSuite) TestUploadDocumentRejectsNonPDF() {
	progress := make(chan float64, 1)
	_, err := s.api.UploadDocument(context.Background(), "notes.docx", bytes.NewReader([]byte("x")), progress)
	s.ErrorIs(err, cfoapi.ErrNotPDF)
	_, open := <-progress
	s.False(open)
	s.Equal(0, s.hitsFor(cfoapi.PathUpload))
}

func TestUploadDocument_NilProgress(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `{"message":"ok"}`)
	}))
	defer server.Close()

	cfg := apiclient.DefaultClientConfig()
	cfg.BaseURL = server.URL
	client, err := cfoapi.NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	api := cfoapi.New(client, nil)
	res, err := api.UploadDocument(context.Background(), "a.PDF", bytes.NewReader([]byte("%PDF")), nil)
	require.NoError(t, err)
	assert.True(t, res.Data.Success)
	assert.Equal(t, int32(1), hits.Load())
}

func TestMockBundleMatchesModels(t *testing.T) {
	bundle := cfoapi.MockFS()
	decode := func(name string, v any) {
		b, err := fs.ReadFile(bundle, "mock/"+name)
		require.NoError(t, err, name)
		require.NoError(t, sonic.Unmarshal(b, v), name)
	}

	var fin model.FinancialSummary
	decode("financials.json", &fin)
	assert.True(t, fin.Mock)
	assert.NotEmpty(t, fin.CashFlow)

	var risks model.RiskAssessment
	decode("risks.json", &risks)
	assert.NotEmpty(t, risks.Risks)

	var mon model.MonitoringData
	decode("monitoring.json", &mon)
	assert.NotEmpty(t, mon.Metrics)

	var an model.AnomalyReport
	decode("anomalies.json", &an)
	assert.NotEmpty(t, an.Anomalies)

	var fc model.Forecast
	decode("forecast.json", &fc)
	assert.Len(t, fc.Projections, fc.Months)
}

func TestFallbackMapCoverage(t *testing.T) {
	fallbacks := cfoapi.Fallbacks()
	for _, id := range []apiclient.EndpointID{cfoapi.EndpointAsk, cfoapi.EndpointLogin, cfoapi.EndpointRegister} {
		assert.NotContains(t, fallbacks, id)
	}
	assert.True(t, fallbacks[cfoapi.EndpointUpload].IsInline())
	assert.True(t, fallbacks[cfoapi.EndpointExport].IsInline())

	fetcher := cfoapi.StaticFetcher("")
	for id, fb := range fallbacks {
		if fb.IsInline() {
			continue
		}
		_, err := fetcher.Fetch(context.Background(), fb.Resource())
		assert.NoError(t, err, id)
	}
	for id, p := range cfoapi.Defaults() {
		assert.True(t, sonic.Valid(p), id)
	}
}
