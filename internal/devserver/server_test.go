package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpov/usagevault/internal/shell"
	"github.com/mkarpov/usagevault/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(shell.FS(), testutil.NewLogger(t)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServesShellAssets(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path     string
		wantMime string
	}{
		{"/", "text/html; charset=utf-8"},
		{"/index.html", "text/html; charset=utf-8"},
		{"/app.js", "application/javascript"},
		{"/styles.css", "text/css"},
		{"/manifest.webmanifest", "application/manifest+json"},
	}
	for _, tc := range tests {
		resp := get(t, srv.URL+tc.path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, tc.path)
		assert.Equal(t, tc.wantMime, resp.Header.Get("Content-Type"), tc.path)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.NotEmpty(t, body, tc.path)
	}
}

func TestNoCacheHeaders(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv.URL+"/index.html")
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/usage", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "OPTIONS")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestValidateAcceptsAnything(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv.URL+"/api/validate")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["valid"])
}

func TestMockUsagePayload(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv.URL+"/api/usage")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload usagePayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	require.Len(t, payload.DailyUsage, 7)
	assert.NotZero(t, payload.TotalTokens)
	assert.Greater(t, payload.TotalCost, 0.0)
	assert.Equal(t, payload.TotalTokens, payload.WebTokens+payload.CodeTokens)

	var sum uint64
	for _, d := range payload.DailyUsage {
		sum += d.Tokens
	}
	assert.Equal(t, payload.TotalTokens, sum)

	last, err := time.Parse(time.RFC3339, payload.LastUpdated)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), last, time.Minute)
}
