package offline

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Strategy
	}{
		{"google auth host", "https://accounts.google.com/o/oauth2/v2/auth", NetworkFirst},
		{"token endpoint", "https://oauth2.googleapis.com/token", NetworkFirst},
		{"api path", "https://app.example.com/api/usage", NetworkFirst},
		{"shell root", "https://app.example.com/", CacheFirst},
		{"shell index", "https://app.example.com/index.html", CacheFirst},
		{"shell script", "https://app.example.com/app.js", CacheFirst},
		{"shell manifest", "https://app.example.com/manifest.webmanifest", CacheFirst},
		{"other asset", "https://app.example.com/img/logo.png", StaleWhileRevalidate},
		{"other page", "https://app.example.com/docs", StaleWhileRevalidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Classify(req))
		})
	}
}

func TestClassifyAuthHostBeatsShellPath(t *testing.T) {
	// An auth host wins even when the path looks like a shell asset.
	req, err := http.NewRequest(http.MethodGet, "https://accounts.google.com/index.html", nil)
	require.NoError(t, err)
	assert.Equal(t, NetworkFirst, Classify(req))
}

func TestCacheNamesCarryVersion(t *testing.T) {
	assert.Contains(t, StaticCacheName(), Version)
	assert.Contains(t, DynamicCacheName(), Version)
	assert.NotEqual(t, StaticCacheName(), DynamicCacheName())
}
