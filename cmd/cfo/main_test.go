package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/cfo/internal/config"
)

func testApp(t *testing.T, baseURL string, offline bool) *app {
	t.Helper()
	cfg, err := config.LoadConfigWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"API_BASE_URL":    baseURL,
		"SESSION_BACKEND": "memory",
		"RETRY_DELAY":     "1ms",
		"PROBE_RETRY_MAX": "0",
	}))
	require.NoError(t, err)
	a, cleanup, err := newApp(cfg, offline)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return a
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func TestRun_FinancialsLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"revenue":42}}`))
	}))
	defer srv.Close()

	out := capture(t)
	require.NoError(t, testApp(t, srv.URL, false).run(context.Background(), "financials", nil))

	var got struct {
		Meta meta `json:"meta"`
		Data struct {
			Data struct {
				Revenue float64 `json:"revenue"`
			} `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "live", string(got.Meta.Source))
	assert.Equal(t, 42.0, got.Data.Data.Revenue)
}

func TestRun_OfflineUsesBundle(t *testing.T) {
	out := capture(t)
	a := testApp(t, "http://127.0.0.1:1", true)

	require.NoError(t, a.run(context.Background(), "risks", nil))
	var got output
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Meta.Degraded)
	assert.Equal(t, "offline", string(got.Meta.Reason))
	assert.Equal(t, 0, got.Meta.Attempts)

	out.Reset()
	require.NoError(t, a.run(context.Background(), "login", []string{"-email", "a@b.c", "-password", "x"}))
	require.NoError(t, a.run(context.Background(), "status", nil))
	var status statusReport
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &status))
	assert.False(t, status.Online)
	assert.True(t, status.Demo)
}

func TestRun_Usage(t *testing.T) {
	a := testApp(t, "http://127.0.0.1:1", true)
	assert.ErrorIs(t, a.run(context.Background(), "nope", nil), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), "ask", nil), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), "forecast", []string{"-months", "x"}), errUsage)
}

func TestFilters(t *testing.T) {
	assert.Equal(t, url.Values{"period": {"7d"}}, filters("status", "", "period", "7d"))
}
