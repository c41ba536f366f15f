package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/retry"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the catalog when one of its files changes. It watches the
// parent directories so atomic rename-on-save is seen.
type Watcher struct {
	reloader mission.Reloader
	files    map[string]struct{}
	debounce time.Duration
	log      *logger.Logger

	// OnReload, if set, is called after every reload attempt.
	OnReload func(err error)

	watcher *fsnotify.Watcher
}

// NewWatcher prepares a watcher over paths. Call Run to start it.
func NewWatcher(reloader mission.Reloader, paths []string, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog: create watcher: %w", err)
	}

	w := &Watcher{
		reloader: reloader,
		files:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		log:      log.With(logger.Component("catalog-watcher")),
		watcher:  fw,
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("catalog: resolve %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for d := range dirs {
		if err := fw.Add(d); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("catalog: watch %s: %w", d, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, reloading after each settled change.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("catalog file changed", logger.String("path", ev.Name), logger.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("catalog watcher error", logger.Err(err))

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) reload(ctx context.Context) {
	opts := append(retry.ReloadOptions(), retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		w.log.Debug("catalog reload retry", logger.Int("attempt", attempt), logger.Duration("delay", delay), logger.Err(err))
	}))
	err := retry.Do(ctx, w.reloader.Reload, opts...)
	if err != nil {
		w.log.Warn("catalog reload rejected, keeping previous catalog", logger.Err(err))
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
