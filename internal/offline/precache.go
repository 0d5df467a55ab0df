package offline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// Precache fetches every app-shell asset and stores it in the static cache.
// It fails on the first error so a partial shell is never installed,
// leaving any previous generation intact.
func Precache(ctx context.Context, client *http.Client, baseURL string, cache Store) error {
	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}

	for _, asset := range ShellAssets {
		ref, err := url.Parse(asset)
		if err != nil {
			return fmt.Errorf("invalid shell asset %q: %w", asset, err)
		}
		u := base.ResolveReference(ref)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to precache %q: %w", asset, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("failed to precache %q: unexpected status %d", asset, resp.StatusCode)
		}

		dump, err := httputil.DumpResponse(resp, true)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to serialize %q: %w", asset, err)
		}
		cache.Set(u.String(), dump)
	}
	return nil
}
