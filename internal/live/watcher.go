package live

import (
	"context"
	"log/slog"
	"time"
)

// RevisionSource reports the registry head and can drop cached state.
type RevisionSource interface {
	Revision(ctx context.Context) (string, error)
	Invalidate()
}

// Watcher polls a RevisionSource and announces changes on a Hub.
type Watcher struct {
	source   RevisionSource
	hub      *Hub
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	last string
}

// NewWatcher creates a Watcher.
func NewWatcher(source RevisionSource, hub *Hub, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		source:   source,
		hub:      hub,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks the revision once and reports whether it changed. The first
// successful poll only records the baseline.
func (w *Watcher) Poll(ctx context.Context) bool {
	sha, err := w.source.Revision(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("failed to read registry revision", "error", err)
		}
		return false
	}
	if sha == w.last {
		return false
	}

	ev := Event{Type: EventRevision, SHA: sha, Previous: w.last, At: w.now().UTC()}
	if w.last == "" {
		w.last = sha
		w.hub.SetCurrent(ev)
		w.logger.Debug("registry revision baseline", "sha", sha)
		return false
	}

	w.last = sha
	w.source.Invalidate()
	w.hub.Broadcast(ev)
	w.logger.Info("registry revision changed", "sha", sha, "previous", ev.Previous, "subscribers", w.hub.Count())
	return true
}
