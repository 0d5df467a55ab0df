package offline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/models"
	"github.com/mkarpov/usagevault/internal/repositories/syncqueue"
)

// Transport is an http.RoundTripper that applies a caching strategy per
// request. GET requests go through Classify; other methods are forwarded,
// and queued for background sync when the network is down.
type Transport struct {
	Base    http.RoundTripper
	Static  Store
	Dynamic Store
	Queue   syncqueue.Repository
	Logger  logging.Logger

	// Now is a seam for tests; nil means time.Now.
	Now func() time.Time
}

func NewTransport(base http.RoundTripper, static, dynamic Store, queue syncqueue.Repository, logger logging.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Static: static, Dynamic: dynamic, Queue: queue, Logger: logger}
}

func (t *Transport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.roundTripWrite(req)
	}

	switch Classify(req) {
	case NetworkFirst:
		return t.networkFirst(req)
	case CacheFirst:
		return t.cacheFirst(req)
	default:
		return t.staleWhileRevalidate(req)
	}
}

// roundTripWrite forwards a mutating request. If the network is unreachable
// the request is enqueued for replay and a synthetic 202 is returned so the
// caller can proceed; the queue guarantees at-least-once delivery later.
func (t *Transport) roundTripWrite(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	resp, err := t.Base.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	item := models.SyncItem{
		Key:        uuid.NewString(),
		Type:       req.Method + " " + req.URL.Path,
		Payload:    body,
		EnqueuedAt: t.now(),
	}
	if qerr := t.Queue.Enqueue(req.Context(), &item); qerr != nil {
		t.Logger.Error(req.Context(), "failed to queue request for sync", "type", item.Type, "error", qerr)
		return nil, err
	}
	t.Logger.Info(req.Context(), "request queued for background sync", "type", item.Type, "key", item.Key)
	return syntheticResponse(req, http.StatusAccepted, `{"queued":true}`), nil
}

// networkFirst tries the network, caches a successful response in the
// dynamic generation, and falls back to the cache when the network fails.
func (t *Transport) networkFirst(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)
	if err == nil {
		if cacheableNetworkFirst(req) && resp.StatusCode == http.StatusOK {
			t.store(t.Dynamic, req, resp)
		}
		return resp, nil
	}

	if cached, ok := t.load(t.Dynamic, req); ok {
		t.Logger.Debug(req.Context(), "network unavailable, serving cached response", "url", req.URL.String())
		return cached, nil
	}
	t.Logger.Debug(req.Context(), "network unavailable, no cached response", "url", req.URL.String(), "error", err)
	return syntheticResponse(req, http.StatusServiceUnavailable, `{"offline":true}`), nil
}

// cacheFirst serves the static cache and only touches the network on a
// miss, filling the cache on the way back.
func (t *Transport) cacheFirst(req *http.Request) (*http.Response, error) {
	if cached, ok := t.load(t.Static, req); ok {
		return cached, nil
	}

	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		t.store(t.Static, req, resp)
	}
	return resp, nil
}

// staleWhileRevalidate serves the cached response immediately and refreshes
// the cache in the background. On a miss it degrades to network-first.
func (t *Transport) staleWhileRevalidate(req *http.Request) (*http.Response, error) {
	cached, ok := t.load(t.Dynamic, req)
	if !ok {
		return t.networkFirst(req)
	}

	revalidate := req.Clone(context.Background())
	go func() {
		resp, err := t.Base.RoundTrip(revalidate)
		if err != nil {
			t.Logger.Debug(context.Background(), "background revalidation failed", "url", revalidate.URL.String(), "error", err)
			return
		}
		if resp.StatusCode == http.StatusOK {
			t.store(t.Dynamic, revalidate, resp)
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}()

	return cached, nil
}

func cacheKey(req *http.Request) string {
	return req.URL.String()
}

// store serializes resp into the given cache and replaces resp.Body so the
// caller can still read it.
func (t *Transport) store(cache Store, req *http.Request, resp *http.Response) {
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		t.Logger.Warn(req.Context(), "failed to serialize response for cache", "url", req.URL.String(), "error", err)
		return
	}
	cache.Set(cacheKey(req), dump)

	restored, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(dump)), req)
	if err != nil {
		return
	}
	resp.Body = restored.Body
}

func (t *Transport) load(cache Store, req *http.Request) (*http.Response, bool) {
	dump, ok := cache.Get(cacheKey(req))
	if !ok {
		return nil, false
	}
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(dump)), req)
	if err != nil {
		t.Logger.Warn(req.Context(), "corrupt cached response, dropping", "url", req.URL.String(), "error", err)
		cache.Delete(cacheKey(req))
		return nil, false
	}
	return resp, true
}

func syntheticResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
