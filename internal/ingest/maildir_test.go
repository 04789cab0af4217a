package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebot/mailledger/internal/ingest"
)

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "archive")
	require.NoError(t, os.Mkdir(sub, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.eml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.EML"), []byte("x"), 0o644))

	paths, err := ingest.ScanDir(root)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Contains(t, paths, filepath.Join(root, "a.eml"))
	assert.Contains(t, paths, filepath.Join(sub, "b.EML"))
}

func TestScanDir_MissingRoot(t *testing.T) {
	_, err := ingest.ScanDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestStartWatcher_InitialScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "seed.eml"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{Root: root, InitialScan: true}, nil)
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "seed.eml"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan emitted nothing")
	}
}

// TestStartWatcher_DebouncedBurst hammers a debounced watcher with rapid file
// creations; run under -race it also guards the debounce flush against the
// event loop.
func TestStartWatcher_DebouncedBurst(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:     root,
		Debounce: time.Millisecond,
	}, nil)
	require.NoError(t, err)

	const n = 200
	want := map[string]bool{}
	for i := 0; i < n; i++ {
		path := filepath.Join(root, fmt.Sprintf("m%03d.eml", i))
		want[path] = false
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	got := 0
	deadline := time.After(10 * time.Second)
	for got < n {
		select {
		case p := <-events:
			if seen, ok := want[p]; ok && !seen {
				want[p] = true
				got++
			}
		case <-deadline:
			t.Fatalf("saw %d of %d files before timeout", got, n)
		}
	}
}
