package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/models"
	"github.com/mkarpov/usagevault/internal/repositories/syncqueue"
)

// MessageType identifies a control message sent to the worker.
type MessageType string

const (
	MsgClearCache   MessageType = "CLEAR_CACHE"
	MsgSkipWaiting  MessageType = "SKIP_WAITING"
	MsgCheckVersion MessageType = "CHECK_VERSION"
	MsgSyncTrigger  MessageType = "SYNC_TRIGGER"
)

// Reply is the worker's answer to a control message.
type Reply struct {
	OK      bool
	Version string
	Err     error
}

type message struct {
	typ   MessageType
	reply chan Reply
}

// Replayer delivers one queued item to the server. Replay must be safe to
// call more than once for the same item: delivery is at-least-once and the
// item's key deduplicates on the receiving side.
type Replayer interface {
	Replay(ctx context.Context, item models.SyncItem) error
}

// HTTPReplayer posts queued items to the sync endpoint, carrying the item
// key as an idempotency header.
type HTTPReplayer struct {
	Client  *http.Client
	BaseURL string
}

func (r *HTTPReplayer) Replay(ctx context.Context, item models.SyncItem) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/sync", bytes.NewReader(item.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.IdempotencyKeyHeader, item.Key)

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrOffline, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: sync replay returned %d", common.ErrServer, resp.StatusCode)
	}
	// 4xx means the item itself is bad; retrying will never help, so it
	// counts as delivered.
	return nil
}

// Worker owns the offline machinery: it answers control messages, replays
// the sync queue, and retires stale cache generations on activation.
type Worker struct {
	queue    syncqueue.Repository
	replayer Replayer
	caches   []Store
	cleanup  func(ctx context.Context) error
	logger   logging.Logger

	inbox        chan message
	syncInterval time.Duration
}

// NewWorker wires a worker. cleanup runs once on activation (Run) and is
// typically CleanupGenerations bound to the cache DB; it may be nil.
func NewWorker(queue syncqueue.Repository, replayer Replayer, caches []Store, cleanup func(ctx context.Context) error, syncInterval time.Duration, logger logging.Logger) *Worker {
	return &Worker{
		queue:        queue,
		replayer:     replayer,
		caches:       caches,
		cleanup:      cleanup,
		logger:       logger,
		inbox:        make(chan message),
		syncInterval: syncInterval,
	}
}

// Send delivers a control message and waits for the reply.
func (w *Worker) Send(ctx context.Context, typ MessageType) (Reply, error) {
	m := message{typ: typ, reply: make(chan Reply, 1)}
	select {
	case w.inbox <- m:
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
	select {
	case r := <-m.reply:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Run activates the worker and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.cleanup != nil {
		if err := w.cleanup(ctx); err != nil {
			w.logger.Warn(ctx, "cache generation cleanup failed", "error", err)
		}
	}
	w.logger.Info(ctx, "offline worker activated", "version", Version)

	var tick <-chan time.Time
	if w.syncInterval > 0 {
		ticker := time.NewTicker(w.syncInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if err := w.Sync(ctx); err != nil {
				w.logger.Debug(ctx, "periodic sync incomplete", "error", err)
			}
		case m := <-w.inbox:
			m.reply <- w.handle(ctx, m.typ)
		}
	}
}

func (w *Worker) handle(ctx context.Context, typ MessageType) Reply {
	switch typ {
	case MsgClearCache:
		for _, c := range w.caches {
			if err := c.Clear(); err != nil {
				return Reply{Err: err}
			}
		}
		return Reply{OK: true}
	case MsgSkipWaiting:
		// A single-process worker has no waiting phase; acknowledging keeps
		// the protocol uniform for callers.
		return Reply{OK: true}
	case MsgCheckVersion:
		return Reply{OK: true, Version: Version}
	case MsgSyncTrigger:
		if err := w.Sync(ctx); err != nil {
			return Reply{Err: err}
		}
		return Reply{OK: true}
	default:
		return Reply{Err: fmt.Errorf("unknown message type %q", typ)}
	}
}

// Sync replays the queue in enqueue order. Each item is deleted only after
// a successful replay; the first failure stops the pass so ordering holds
// on the next attempt.
func (w *Worker) Sync(ctx context.Context) error {
	items, err := w.queue.List(ctx)
	if err != nil {
		return common.WrapStorage(err)
	}
	for _, item := range items {
		if err := w.replayer.Replay(ctx, item); err != nil {
			if errors.Is(err, common.ErrOffline) {
				w.logger.Debug(ctx, "sync paused, still offline", "pending", len(items))
			} else {
				w.logger.Warn(ctx, "sync replay failed", "key", item.Key, "error", err)
			}
			return err
		}
		if err := w.queue.Delete(ctx, item.ID); err != nil {
			return common.WrapStorage(err)
		}
		w.logger.Info(ctx, "sync item delivered", "key", item.Key, "type", item.Type)
	}
	return nil
}
