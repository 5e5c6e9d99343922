package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigWith_Defaults(t *testing.T) {
	cfg, err := LoadConfigWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "file", cfg.SessionBackend)
	assert.Equal(t, "127.0.0.1:5000", cfg.ServerListenAddr())
	assert.Equal(t, cfg.BaseURL, cfg.ProbeTarget())
}

func TestLoadConfigWith_Overrides(t *testing.T) {
	cfg, err := LoadConfigWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"API_BASE_URL":    "https://cfo.example.com",
		"CLIENT_TIMEOUT":  "2s",
		"RETRY_ATTEMPTS":  "5",
		"RETRY_DELAY":     "250ms",
		"PROBE_URL":       "https://cfo.example.com/health",
		"SESSION_BACKEND": "memory",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://cfo.example.com", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.ClientTimeout)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "https://cfo.example.com/health", cfg.ProbeTarget())
}

func TestLoadConfigWith_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"no scheme":       {"API_BASE_URL": "localhost:5000"},
		"zero timeout":    {"CLIENT_TIMEOUT": "0s"},
		"zero attempts":   {"RETRY_ATTEMPTS": "0"},
		"negative delay":  {"RETRY_DELAY": "-1s"},
		"unknown backend": {"SESSION_BACKEND": "cookie"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigWith(context.Background(), envconfig.MapLookuper(env))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestNewIntervalConfig(t *testing.T) {
	assert.Same(t, ProdIntervalConfig, NewIntervalConfig("PROD"))
	assert.Same(t, DevIntervalConfig, NewIntervalConfig("test"))
	assert.Same(t, DevIntervalConfig, NewIntervalConfig("unknown"))
}
