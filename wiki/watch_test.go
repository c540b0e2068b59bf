package wiki

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchGraph_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testGraph), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	w, err := WatchGraph(ctx, path, t.Logf)
	require.NoError(t, err)
	defer func() {
		cancel()
		<-w.Done()
	}()

	links, err := w.Links(ctx, "Italy")
	require.NoError(t, err)
	assert.Equal(t, []string{"Naples", "Rome"}, links)

	updated := `
articles:
  Italy:
    links: [Rome, Milan]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		links, err := w.Links(ctx, "Italy")
		return err == nil && len(links) == 2 && links[1] == "Milan"
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{"Italy"}, w.Graph().Titles())
}

func TestWatchGraph_KeepsGraphOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testGraph), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan string, 16)
	w, err := WatchGraph(ctx, path, func(format string, args ...any) {
		select {
		case reloads <- format:
		default:
		}
	})
	require.NoError(t, err)
	defer func() {
		cancel()
		<-w.Done()
	}()

	require.NoError(t, os.WriteFile(path, []byte("articles: ["), 0o644))

	select {
	case format := <-reloads:
		assert.Contains(t, format, "Keeping previous graph")
	case <-time.After(5 * time.Second):
		t.Fatal("no reload attempt observed")
	}

	assert.Len(t, w.Graph().Titles(), 4)
}

func TestWatchGraph_MissingFile(t *testing.T) {
	_, err := WatchGraph(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestWatchGraph_StopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testGraph), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	w, err := WatchGraph(ctx, path, nil)
	require.NoError(t, err)

	cancel()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
