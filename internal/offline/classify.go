// Package offline is the service-worker equivalent: it intercepts outbound
// HTTP requests, serves them from a durable response cache when appropriate,
// and defers writes made while offline into a replayable sync queue.
package offline

import (
	"net/http"
	"path"
	"strings"
)

// Version is the build version baked into cache generation names. Bumping it
// retires every previously written cache wholesale on activation.
const Version = "1.2.0"

// StaticCacheName is the generation holding pre-installed app-shell assets.
func StaticCacheName() string { return "usagevault-static-" + Version }

// DynamicCacheName is the generation holding runtime-fetched content.
func DynamicCacheName() string { return "usagevault-dynamic-" + Version }

// Strategy selects how an intercepted request is served.
type Strategy int

const (
	// NetworkFirst always tries the network, falling back to cache, then to
	// a synthetic offline response.
	NetworkFirst Strategy = iota
	// CacheFirst serves from cache when present, fetching and populating on
	// a miss. Entries are pre-installed so first-load-offline works.
	CacheFirst
	// StaleWhileRevalidate serves the cached copy immediately while
	// refreshing it in the background.
	StaleWhileRevalidate
)

func (s Strategy) String() string {
	switch s {
	case NetworkFirst:
		return "network-first"
	case CacheFirst:
		return "cache-first"
	default:
		return "stale-while-revalidate"
	}
}

// authHosts are authentication-provider and API domains that must never be
// served stale.
var authHosts = map[string]struct{}{
	"accounts.google.com":   {},
	"www.googleapis.com":    {},
	"oauth2.googleapis.com": {},
	"api.anthropic.com":     {},
}

// ShellAssets is the fixed app-shell manifest pre-populated at install time.
var ShellAssets = []string{
	"/",
	"/index.html",
	"/styles.css",
	"/app.js",
	"/manifest.webmanifest",
}

var shellAssetSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(ShellAssets))
	for _, p := range ShellAssets {
		m[p] = struct{}{}
	}
	return m
}()

// Classify maps a request to exactly one strategy. Precedence order:
// network-first (auth hosts, API paths), then cache-first (app shell), then
// stale-while-revalidate for everything else.
func Classify(req *http.Request) Strategy {
	host := req.URL.Hostname()
	if _, ok := authHosts[host]; ok {
		return NetworkFirst
	}
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return NetworkFirst
	}
	if _, ok := shellAssetSet[req.URL.Path]; ok {
		return CacheFirst
	}
	return StaleWhileRevalidate
}

// staticExts mark auth-adjacent static assets that network-first is allowed
// to cache for its offline fallback. API payloads themselves are never
// cached here.
var staticExts = map[string]struct{}{
	".js": {}, ".css": {}, ".woff": {}, ".woff2": {}, ".svg": {}, ".png": {},
}

func cacheableNetworkFirst(req *http.Request) bool {
	_, ok := staticExts[path.Ext(req.URL.Path)]
	return ok
}
