package cli

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/petrijr/timeflow"
	"github.com/petrijr/timeflow/internal/config"
	"github.com/petrijr/timeflow/pkg/logx"
)

// reloadDelay lets editors finish writing before the script is re-read.
const reloadDelay = 250 * time.Millisecond

// watch runs script and restarts it whenever the file at path changes.
// A script that fails to load or build leaves the running timeline alone.
func (s *session) watch(ctx context.Context, path string, script *config.Script) error {
	var current *timeflow.Timeline

	launch := func(sc *config.Script) {
		tl, err := s.start(sc)
		if err != nil {
			s.log.Error("script rejected", logx.Err(err))
			return
		}
		current = tl
		s.log.Info("timeline started", logx.String("timeline_id", tl.ID()))
	}

	// Runs on the loop.
	reload := timeflow.Debounce(s.runner.Loop, reloadDelay, func(struct{}) {
		sc, err := config.Load(path)
		if err != nil {
			s.log.Warn("script reload failed", logx.Err(err))
			return
		}
		if current != nil {
			current.Cancel()
		}
		launch(sc)
	})
	defer reload.Cancel()

	if err := s.runner.Do(ctx, func() { launch(script) }); err != nil {
		return err
	}

	var w *fsnotify.Watcher
	err := timeflow.Retry(5).
		WithExponentialBackoff(reloadDelay, 2, 5*time.Second).
		Do(ctx, func(context.Context) error {
			nw, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			if err := nw.Add(filepath.Dir(path)); err != nil {
				_ = nw.Close()
				return err
			}
			w = nw
			return nil
		})
	if err != nil {
		return err
	}
	defer w.Close()

	file := filepath.Base(path)
	s.log.Info("watching script", logx.String("file", file))

	for {
		select {
		case <-ctx.Done():
			_ = s.runner.Do(context.Background(), func() {
				if current != nil {
					current.Cancel()
				}
			})
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Editors often replace the file, so match by name rather than inode.
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				s.log.Debug("script change detected", logx.String("op", ev.Op.String()))
				reload.Call(struct{}{})
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("script watcher error", logx.Err(err))
		}
	}
}
