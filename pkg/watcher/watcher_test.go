package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/roadtrace/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) util.WatcherConfig {
	root := t.TempDir()
	cfg := util.WatcherConfig{
		Dir:          filepath.Join(root, "raw"),
		ProcessedDir: filepath.Join(root, "processed"),
		FailedDir:    filepath.Join(root, "failed"),
		PollInterval: 10 * time.Millisecond,
		StableFor:    3 * time.Second,
		Workers:      2,
		Prefix:       "RecWay_",
		Extension:    ".csv",
	}
	require.NoError(t, os.MkdirAll(cfg.Dir, 0o755))
	return cfg
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func noop(ctx context.Context, path string) error { return nil }

func TestScanStability(t *testing.T) {
	cfg := testConfig(t)
	w := NewWatcher(cfg, noop, zap.NewNop())
	path := filepath.Join(cfg.Dir, "RecWay_1.csv")
	write(t, path, "timestamp,lat,lon\n")
	write(t, filepath.Join(cfg.Dir, "other.csv"), "x")
	write(t, filepath.Join(cfg.Dir, "RecWay_2.txt"), "x")

	t0 := time.Now()
	ready, err := w.Scan(t0)
	require.NoError(t, err)
	assert.Empty(t, ready)
	st, ok := w.FileState(path)
	require.True(t, ok)
	assert.Equal(t, SEEN, st)
	_, ok = w.FileState(filepath.Join(cfg.Dir, "other.csv"))
	assert.False(t, ok)

	ready, err = w.Scan(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, ready)

	// growing file restarts the window
	write(t, path, "timestamp,lat,lon\n1,2,3\n")
	ready, err = w.Scan(t0.Add(3 * time.Second))
	require.NoError(t, err)
	assert.Empty(t, ready)

	ready, err = w.Scan(t0.Add(5 * time.Second))
	require.NoError(t, err)
	assert.Empty(t, ready)

	ready, err = w.Scan(t0.Add(6 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, ready)
	assert.Equal(t, 1, w.Status().Processing)

	// dispatched once only
	ready, err = w.Scan(t0.Add(20 * time.Second))
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestFinishMovesFile(t *testing.T) {
	cases := []struct {
		name    string
		procErr error
		wantDir func(cfg util.WatcherConfig) string
		want    State
	}{
		{"processed", nil, func(cfg util.WatcherConfig) string { return cfg.ProcessedDir }, PROCESSED},
		{"failed", errors.New("boom"), func(cfg util.WatcherConfig) string { return cfg.FailedDir }, FAILED},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.StableFor = 0
			w := NewWatcher(cfg, noop, zap.NewNop())
			path := filepath.Join(cfg.Dir, "RecWay_9.csv")
			write(t, path, "data")

			now := time.Now()
			_, err := w.Scan(now)
			require.NoError(t, err)
			ready, err := w.Scan(now.Add(time.Millisecond))
			require.NoError(t, err)
			require.Equal(t, []string{path}, ready)

			w.finish(path, tc.procErr)
			st, ok := w.FileState(path)
			require.True(t, ok)
			assert.Equal(t, tc.want, st)

			_, err = os.Stat(filepath.Join(tc.wantDir(cfg), "RecWay_9.csv"))
			assert.NoError(t, err)
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))

			// entry of the moved file is dropped on the next scan
			_, err = w.Scan(now.Add(time.Second))
			require.NoError(t, err)
			_, ok = w.FileState(path)
			assert.False(t, ok)

			status := w.Status()
			if tc.procErr == nil {
				assert.Equal(t, 1, status.Processed)
			} else {
				assert.Equal(t, 1, status.Failed)
			}
		})
	}
}

func TestFinishInterruptedFileStays(t *testing.T) {
	cfg := testConfig(t)
	cfg.StableFor = 0
	w := NewWatcher(cfg, noop, zap.NewNop())
	path := filepath.Join(cfg.Dir, "RecWay_3.csv")
	write(t, path, "data")

	now := time.Now()
	_, err := w.Scan(now)
	require.NoError(t, err)
	ready, err := w.Scan(now.Add(time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, []string{path}, ready)

	w.finish(path, util.WrapErrorf(context.Canceled, util.ErrInternalServerError, "process %s", path))

	_, err = os.Stat(path)
	assert.NoError(t, err)
	st, ok := w.FileState(path)
	require.True(t, ok)
	assert.Equal(t, SEEN, st)
	assert.Zero(t, w.Status().Failed)

	ready, err = w.Scan(now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, ready)
}

func TestScanDropsVanishedFiles(t *testing.T) {
	cfg := testConfig(t)
	w := NewWatcher(cfg, noop, zap.NewNop())
	path := filepath.Join(cfg.Dir, "RecWay_3.csv")
	write(t, path, "data")

	_, err := w.Scan(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, w.Status().Pending)

	require.NoError(t, os.Remove(path))
	_, err = w.Scan(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, w.Status().Pending)
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.StableFor = 0

	var (
		mu    sync.Mutex
		calls []string
	)
	handler := func(ctx context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, filepath.Base(path))
		if filepath.Base(path) == "RecWay_bad.csv" {
			return errors.New("cannot parse")
		}
		return nil
	}
	w := NewWatcher(cfg, handler, zap.NewNop())
	write(t, filepath.Join(cfg.Dir, "RecWay_good.csv"), "data")
	write(t, filepath.Join(cfg.Dir, "RecWay_bad.csv"), "data")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		st := w.Status()
		return st.Processed == 1 && st.Failed == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
	assert.False(t, w.Status().Running)

	mu.Lock()
	assert.ElementsMatch(t, []string{"RecWay_good.csv", "RecWay_bad.csv"}, calls)
	mu.Unlock()

	_, err := os.Stat(filepath.Join(cfg.ProcessedDir, "RecWay_good.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.FailedDir, "RecWay_bad.csv"))
	assert.NoError(t, err)
}
