// Package shell embeds the static app-shell assets served by the dev
// server and pre-installed into the offline cache.
package shell

import (
	"embed"
	"io/fs"
)

//go:embed assets
var assets embed.FS

// FS returns the app-shell filesystem rooted at the asset directory.
func FS() fs.FS {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// The subdirectory is embedded at compile time.
		panic(err)
	}
	return sub
}
