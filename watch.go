package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aptible/cronman/crontab"
	"github.com/aptible/cronman/store"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// newCrontabWatcher watches the directory holding path: editors and
// Store.Save replace the file by rename, which would drop a watch on the
// file itself.
func newCrontabWatcher(path string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(resolvePath(path))); err != nil {
		watcher.Close()
		return nil, err
	}

	return watcher, nil
}

// resolvePath follows symlinks: saves replace the file a link points to,
// so that is where events show up.
func resolvePath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// watchCrontab reloads s whenever its file changes and hands the new
// crontab to onChange, until ctx is done.
func watchCrontab(ctx context.Context, s *store.Store, watcher *fsnotify.Watcher, logger *logrus.Entry, onChange func(*crontab.Crontab)) error {
	target := s.Target()
	if target.Kind != store.FileTarget {
		return fmt.Errorf("watch needs a crontab file, not %s", target)
	}

	path, err := filepath.Abs(resolvePath(target.Path))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("shutting down")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			name, err := filepath.Abs(event.Name)
			if err != nil || name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			logger.Debugf("event: %v", event)

			c, err := s.Reload()
			if err != nil {
				logger.Errorf("failed to reload crontab: %v", err)
				continue
			}

			logger.Infof("crontab changed, %d jobs", len(c.Jobs()))
			onChange(c)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("watcher error: %v", err)
		}
	}
}
