// Package watcher watches the plans inbox directory and imports plan
// JSON files dropped into it, so plans produced by an external planning
// service can be loaded without touching the API.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/framecast/framecast-agent/internal/library"
	"github.com/framecast/framecast-agent/internal/plan"
)

// settleDelay gives the writing process time to finish before the file
// is read.
const settleDelay = 200 * time.Millisecond

// InboxWatcher imports plan files from a watched directory.
type InboxWatcher struct {
	dir      string
	library  library.LibraryService
	onPlan   func(record *library.PlanRecord, p *plan.RenderPlan)
	logger   *slog.Logger
	imported map[string]bool
}

// NewInboxWatcher creates a watcher over dir. onPlan is invoked for
// every successfully imported plan; it may be nil.
func NewInboxWatcher(dir string, svc library.LibraryService, onPlan func(*library.PlanRecord, *plan.RenderPlan), logger *slog.Logger) *InboxWatcher {
	return &InboxWatcher{
		dir:      dir,
		library:  svc,
		onPlan:   onPlan,
		logger:   logger,
		imported: make(map[string]bool),
	}
}

// Run watches the inbox until the context is cancelled.
func (w *InboxWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}

	if w.logger != nil {
		w.logger.Info("plans inbox watcher started", "dir", w.dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			if w.imported[event.Name] {
				continue
			}
			time.Sleep(settleDelay)
			w.importFile(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.Warn("inbox watcher error", "error", err)
			}
		}
	}
}

func (w *InboxWatcher) importFile(ctx context.Context, path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("failed to read plan file", "path", path, "error", err)
		}
		return
	}

	record, p, err := w.library.ImportPlan(ctx, payload, library.PlanSourceImport)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("failed to import plan file", "path", path, "error", err)
		}
		return
	}

	w.imported[path] = true
	if w.logger != nil {
		w.logger.Info("plan imported from inbox", "path", path, "plan_id", record.ID)
	}
	if w.onPlan != nil {
		w.onPlan(record, p)
	}
}
