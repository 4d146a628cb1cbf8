package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, fn Func) (*Watcher, context.CancelFunc, <-chan error) {
	t.Helper()
	w := New(root, fn, WithDebounce(30*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// give fsnotify time to register the tree
	time.Sleep(50 * time.Millisecond)
	return w, cancel, done
}

func TestWatcherCoalescesBursts(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	w, cancel, done := startWatcher(t, root, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for _, name := range []string{"sectors.csv", "flows.csv", "indicators.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("index,id\n"), 0o600))
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, w.Reloads())

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	_, cancel, done := startWatcher(t, root, func(context.Context) error {
		calls.Add(1)
		return errors.New("reload errors are logged, not fatal")
	})
	defer func() {
		cancel()
		<-done
	}()

	model := filepath.Join(root, "M1")
	require.NoError(t, os.Mkdir(model, 0o755))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(model, "L.bin"), []byte{1}, 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestWatcherMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), func(context.Context) error { return nil })
	assert.Error(t, w.Run(context.Background()))
}

func TestIgnoredEvents(t *testing.T) {
	assert.True(t, ignored(fsnotify.Event{Name: "/d/M1/L.bin.meta", Op: fsnotify.Write}))
	assert.True(t, ignored(fsnotify.Event{Name: "/d/M1/.tmp-123", Op: fsnotify.Create}))
	assert.True(t, ignored(fsnotify.Event{Name: "/d/M1/L.bin", Op: fsnotify.Chmod}))
	assert.False(t, ignored(fsnotify.Event{Name: "/d/M1/L.bin", Op: fsnotify.Write}))
	assert.False(t, ignored(fsnotify.Event{Name: "/d/M1/L.bin", Op: fsnotify.Remove}))
}
