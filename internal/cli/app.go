// Package cli wires the usagevault components together and drives them
// from an interactive read-eval-print loop.
package cli

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mkarpov/usagevault/internal/config"
	"github.com/mkarpov/usagevault/internal/cryptox"
	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/offline"
	"github.com/mkarpov/usagevault/internal/session"
	"github.com/mkarpov/usagevault/internal/stats"
	"github.com/mkarpov/usagevault/internal/storage"
)

const cacheFileName = "httpcache.db"

// App owns every long-lived component. Wiring is explicit so tests can
// assemble an App from fakes; nothing here reaches for globals.
type App struct {
	config   *config.Config
	logger   logging.Logger
	store    *storage.Storage
	sessions *session.Manager
	worker   *offline.Worker
	usage    *stats.Service
	refresh  *stats.Refresher
	client   *http.Client

	caches struct {
		static  offline.Store
		dynamic offline.Store
	}

	reader  *bufio.Reader
	cancels []func()
}

// NewApp opens storage, derives the vault key from the device identity and
// wires the offline machinery. The returned App is ready to Run.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}

	vault := storage.NewVault(store.Secure, cryptox.DeviceID(), logger)
	sessions := session.NewManager(vault, logger)

	cacheDB, err := offline.OpenCacheDB(ctx, filepath.Join(cfg.DataDir, cacheFileName))
	if err != nil {
		store.Close()
		return nil, err
	}
	static := offline.NewSQLiteStore(cacheDB, offline.StaticCacheName(), logger)
	dynamic := offline.NewSQLiteStore(cacheDB, offline.DynamicCacheName(), logger)

	transport := offline.NewTransport(http.DefaultTransport, static, dynamic, store.Sync, logger)
	client := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	// The replayer bypasses the caching transport so a replayed write can
	// never re-queue itself.
	replayer := &offline.HTTPReplayer{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: cfg.APIBaseURL,
	}
	cleanup := func(ctx context.Context) error {
		_, err := offline.CleanupGenerations(ctx, cacheDB, []string{
			offline.StaticCacheName(), offline.DynamicCacheName(),
		})
		return err
	}
	worker := offline.NewWorker(store.Sync, replayer, []offline.Store{static, dynamic}, cleanup, cfg.SyncInterval, logger)

	usage := stats.NewService(store.Records, store.Cache, cfg.SummaryCacheTTL, logger)
	generator := stats.NewGenerator(time.Now().UnixNano())
	refresh := stats.NewRefresher(usage, generator, cfg.PollInterval, 3, logger)

	app := &App{
		config:   cfg,
		logger:   logger,
		store:    store,
		sessions: sessions,
		worker:   worker,
		usage:    usage,
		refresh:  refresh,
		client:   client,
		reader:   bufio.NewReader(os.Stdin),
	}
	app.caches.static = static
	app.caches.dynamic = dynamic
	return app, nil
}

// Run restores any remembered session, installs the app shell into the
// static cache, starts the background loops and enters the REPL. It returns
// when the user quits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.sessions.Restore(ctx) {
		a.logger.Info(ctx, "welcome back", "email", a.sessions.CurrentUser().Email)
	}

	// Best effort: without it the shell is still populated lazily on the
	// first online fetch, it just cannot be served first-load-offline.
	if err := a.precacheShell(ctx); err != nil {
		a.logger.Warn(ctx, "app shell precache failed", "error", err)
	}

	go a.worker.Run(ctx)
	go a.refresh.Run(ctx)
	go a.store.StartCacheSweeper(ctx, a.config.SummaryCacheTTL)
	a.sessions.StartExpiryWatcher(ctx, a.config.SessionCheckInterval)

	a.Root(ctx)
}

// precacheShell eagerly installs the app-shell manifest into the static
// cache. It fetches with a plain client: going through the caching
// transport would race the install against lazy cache-first population.
func (a *App) precacheShell(ctx context.Context) error {
	return offline.Precache(ctx, &http.Client{Timeout: 30 * time.Second}, a.config.APIBaseURL, a.caches.static)
}

// Close releases storage handles.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) isSignedIn() bool {
	return a.sessions.IsSignedIn()
}
