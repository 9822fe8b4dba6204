package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func start(t *testing.T, w *Watcher) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() error {
		cancel()
		return <-done
	}
}

func TestRebuildsAfterChangesSettle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	var builds atomic.Int32
	w := New([]string{dir}, func(context.Context) error {
		builds.Add(1)
		return nil
	}, nil, WithDebounce(30*time.Millisecond))
	stop := start(t, w)

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "index.html"), []byte{byte('a' + i)}, 0o644))
	}

	assert.Eventually(t, func() bool { return builds.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, stop())
}

func TestIgnoredPathsDoNotTriggerRebuild(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(out, 0o755))
	var builds atomic.Int32
	w := New([]string{dir}, func(context.Context) error {
		builds.Add(1)
		return nil
	}, nil, WithDebounce(20*time.Millisecond), WithIgnore(out))
	stop := start(t, w)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int32(0), builds.Load())
	require.NoError(t, stop())
}

func TestRebuildFailureKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	var builds atomic.Int32
	w := New([]string{dir}, func(context.Context) error {
		builds.Add(1)
		return errors.New("template error")
	}, nil, WithDebounce(20*time.Millisecond))
	stop := start(t, w)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.css"), []byte("a"), 0o644))
	assert.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.css"), []byte("b"), 0o644))
	assert.Eventually(t, func() bool { return builds.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, stop())
}

func TestRunFailsWithNothingToWatch(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, func(context.Context) error { return nil }, nil)

	err := w.Run(context.Background())

	assert.EqualError(t, err, "nothing to watch")
}
