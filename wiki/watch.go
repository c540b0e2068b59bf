/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wiki

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// WatchedGraph is a StaticGraph that reloads itself when its file changes.
// A reload that fails to parse keeps the previous graph.
type WatchedGraph struct {
	path  string
	graph atomic.Pointer[StaticGraph]
	logf  func(format string, args ...any)
	done  chan struct{}
}

// WatchGraph loads the graph at path and keeps it current until ctx is
// cancelled.
func WatchGraph(ctx context.Context, path string, logf func(format string, args ...any)) (*WatchedGraph, error) {
	g, err := LoadGraph(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Editors often replace the file rather than write it, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	if logf == nil {
		logf = func(string, ...any) {}
	}

	w := &WatchedGraph{
		path: filepath.Clean(path),
		logf: logf,
		done: make(chan struct{}),
	}
	w.graph.Store(g)

	go w.run(ctx, watcher)

	return w, nil
}

func (w *WatchedGraph) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(w.done)
	defer watcher.Close()

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logf("GRAPH: Watch error for %s: %v", w.path, err)

		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *WatchedGraph) reload() {
	g, err := LoadGraph(w.path)
	if err != nil {
		w.logf("GRAPH: Keeping previous graph: %v", err)
		return
	}

	w.graph.Store(g)
	w.logf("GRAPH: Reloaded %s (%d articles)", w.path, len(g.Titles()))
}

// Done is closed once the watcher has shut down.
func (w *WatchedGraph) Done() <-chan struct{} {
	return w.done
}

// Graph returns the current graph.
func (w *WatchedGraph) Graph() *StaticGraph {
	return w.graph.Load()
}

func (w *WatchedGraph) Links(ctx context.Context, title string) ([]string, error) {
	return w.Graph().Links(ctx, title)
}

func (w *WatchedGraph) Extract(ctx context.Context, title string) (string, error) {
	return w.Graph().Extract(ctx, title)
}

func (w *WatchedGraph) Random(ctx context.Context) (string, error) {
	return w.Graph().Random(ctx)
}

func (w *WatchedGraph) Search(ctx context.Context, query string) ([]string, error) {
	return w.Graph().Search(ctx, query)
}
