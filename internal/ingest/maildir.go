// Package ingest discovers saved message files (.eml) on disk, either as a
// one-shot scan or a filesystem watch.
package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// message files only; anything else in the directory is ignored
var allowedExts = map[string]struct{}{
	"eml": {},
}

// ScanDir walks root and returns every message file found, sorted by path.
func ScanDir(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && allowed(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

type WatchConfig struct {
	Root        string
	InitialScan bool          // emit files already present before watching
	Debounce    time.Duration // coalesce rapid write/rename bursts
}

// StartWatcher emits message file paths as they appear under the root. The
// channels close when the context is cancelled.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		return nil, nil, errors.New("no watch root provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watcher.create.failed", "error", err)
		return nil, nil, err
	}

	err = filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if cfg.InitialScan && allowed(path) {
			select {
			case evCh <- path:
			default:
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("watcher.add_root.failed", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			_ = w.Close()
		}()

		// pending is touched only on this goroutine; the debounce timer
		// just signals flush instead of draining the map itself
		var timer *time.Timer
		pending := map[string]struct{}{}
		flush := make(chan struct{}, 1)

		sendPending := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-flush:
				sendPending()
			case e := <-w.Events:
				if e.Op&fsnotify.Create == fsnotify.Create {
					// new subdirectory: watch it too (Add on a file errors, ignore)
					_ = w.Add(e.Name)
				}

				if allowed(e.Name) && (e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename)) != 0 {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.AfterFunc(cfg.Debounce, func() {
							select {
							case flush <- struct{}{}:
							default:
							}
						})
					} else {
						sendPending()
					}
				}
			case err := <-w.Errors:
				logger.Error("watcher.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func allowed(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := allowedExts[ext]
	return ok
}
