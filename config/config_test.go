package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := ParseFlags([]string{"-token-secret", "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:80", cfg.Addr)
	assert.Equal(t, "crowdsourcing.sqlite", cfg.DBUrl)
	assert.Equal(t, 120*time.Second, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 5*time.Second, cfg.GeocoderTimeout)
	assert.False(t, cfg.ModerateSubmissions)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "http://localhost:80", cfg.Url())
}

func TestParseFlags_Overrides(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-token-secret", "s3cret",
		"-host", "127.0.0.1",
		"-port", "8080",
		"-page-size", "25",
		"-moderate-submissions",
		"-geocoder-timeout", "2",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
	assert.Equal(t, 25, cfg.PageSize)
	assert.True(t, cfg.ModerateSubmissions)
	assert.Equal(t, 2*time.Second, cfg.GeocoderTimeout)
}

func TestParseFlags_EnvFallback(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "from-env")
	t.Setenv("PORT", "9000")
	t.Setenv("MODERATE_SUBMISSIONS", "true")

	cfg, err := ParseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TokenSecret)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.True(t, cfg.ModerateSubmissions)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing secret", nil},
		{"zero page size", []string{"-token-secret", "x", "-page-size", "0"}},
		{"admin without password", []string{"-token-secret", "x", "-admin-user", "root"}},
		{"bad log format", []string{"-token-secret", "x", "-log-format", "xml"}},
		{"unknown flag", []string{"-token-secret", "x", "-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFlags(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CROWDSOURCING_TEST_KEY=hello\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CROWDSOURCING_TEST_KEY") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "hello", os.Getenv("CROWDSOURCING_TEST_KEY"))
}
