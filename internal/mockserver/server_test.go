package mockserver

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tensorplex-labs/cfo/internal/config"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

var fixedNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg config.MockServerEnvConfig, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost), WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func loginAdmin(t *testing.T, s *Server) string {
	t.Helper()
	resp, body := doJSON(t, s, http.MethodPost, "/api/user/login",
		`{"work_email":"admin@gmail.com","password":"admin123"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out model.LoginResponse
	require.NoError(t, sonic.Unmarshal(body, &out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})

	loginAdmin(t, s)

	resp, body := doJSON(t, s, http.MethodPost, "/api/user/login",
		`{"work_email":"admin@gmail.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Invalid Credentials"}`, string(body))

	resp, body = doJSON(t, s, http.MethodPost, "/api/user/login", `{"work_email":"admin@gmail.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Email and password are required")

	resp, _ = doJSON(t, s, http.MethodPost, "/api/user/login", ``, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})
	body := `{"full_name":"Priya","work_email":"priya@acme.io","password":"pw","job_title":"CFO","company_name":"Acme"}`

	resp, out := doJSON(t, s, http.MethodPost, "/api/user/register", body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, string(out), "User registered successfully")

	resp, out = doJSON(t, s, http.MethodPost, "/api/user/register", body, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(out), "User already exists")

	resp, _ = doJSON(t, s, http.MethodPost, "/api/user/register", `{"work_email":"x@y.z"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/user/login", `{"work_email":"PRIYA@acme.io","password":"pw"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueryRequiresBearer(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})

	resp, _ := doJSON(t, s, http.MethodPost, "/api/query", `{"query":"cash?"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/query", `{"query":"cash?"}`,
		map[string]string{"Authorization": "Bearer not-issued"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := loginAdmin(t, s)
	resp, body := doJSON(t, s, http.MethodPost, "/api/query", `{"query":"How is our cash runway?"}`,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ans model.Answer
	require.NoError(t, sonic.Unmarshal(body, &ans))
	assert.Contains(t, ans.Response, "18 months")
	assert.Equal(t, "2024-07-01T09:00:00Z", ans.Timestamp)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/query", `{}`, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploadAnnualReportPdf", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(t, config.MockServerEnvConfig{UploadDir: dir})

	resp, err := s.App.Test(multipartRequest(t, "pdf_file", "Annual Report 2024.pdf", []byte("%PDF-1.7")), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out model.UploadResult
	b, _ := io.ReadAll(resp.Body)
	require.NoError(t, sonic.Unmarshal(b, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "Annual_Report_2024.pdf", out.Filename)
	require.NotNil(t, out.Graphs)
	assert.Len(t, out.Graphs.Charts, 4)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	saved, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(saved))
}

func TestUpload_Rejections(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})

	resp, err := s.App.Test(multipartRequest(t, "pdf_file", "report.docx", []byte("x")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "Only PDFs are allowed")

	resp, err = s.App.Test(multipartRequest(t, "file0", "report.pdf", []byte("x")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	b, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "No files passed!")
}

func TestDataEndpoints(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})

	for _, path := range []string{
		"/api/financials",
		"/api/risks",
		"/api/monitoring?status=warning",
		"/api/anomalies?severity=high",
		"/api/forecast?scenario=optimistic&months=3",
		"/api/export?format=csv",
		"/api/kpis",
	} {
		t.Run(path, func(t *testing.T) {
			resp, body := doJSON(t, s, http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, sonic.Valid(body))
		})
	}

	resp, body := doJSON(t, s, http.MethodGet, "/api/forecast?scenario=optimistic&months=3", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var f model.Forecast
	require.NoError(t, sonic.Unmarshal(body, &f))
	assert.Equal(t, "optimistic", f.Scenario)
	assert.Len(t, f.Projections, 3)

	resp, _ = doJSON(t, s, http.MethodGet, "/api/forecast?scenario=wild", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodGet, "/api/export?format=docx", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMockBundleServed(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/mock/financials.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fs model.FinancialSummary
	require.NoError(t, sonic.Unmarshal(body, &fs))
	assert.True(t, fs.Mock)

	resp, _ = doJSON(t, s, http.MethodGet, "/mock/missing.json", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestZstdResponse(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/risks", "", map[string]string{"Accept-Encoding": "zstd"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "zstd", resp.Header.Get("Content-Encoding"))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(body, nil)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "Customer concentration")
}

func TestZstdRequest(t *testing.T) {
	s := newTestServer(t, config.MockServerEnvConfig{})

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(`{"work_email":"admin@gmail.com","password":"admin123"}`), nil)
	require.NoError(t, enc.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(compressed))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "zstd")
	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "cfo_test_total", Help: "test"}))
	s := newTestServer(t, config.MockServerEnvConfig{}, WithMetrics(reg))

	resp, body := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = doJSON(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cfo_test_total")
}

func TestSecureFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", secureFilename("../../etc/report.pdf"))
	assert.Equal(t, "my_report.pdf", secureFilename("my report.pdf"))
	assert.Equal(t, "a.pdf", secureFilename(`C:\Users\x\a.pdf`))
	assert.Equal(t, "upload.pdf", secureFilename("..."))
}
