package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lintang-b-s/roadtrace/pkg/concurrent"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

type State uint8

const (
	SEEN State = iota
	STABLE
	PROCESSING
	PROCESSED
	FAILED
)

func (s State) String() string {
	switch s {
	case SEEN:
		return "seen"
	case STABLE:
		return "stable"
	case PROCESSING:
		return "processing"
	case PROCESSED:
		return "processed"
	default:
		return "failed"
	}
}

// Handler processes one stable input file. A returned error quarantines the file.
type Handler func(ctx context.Context, path string) error

type entry struct {
	state       State
	size        int64
	mtime       time.Time
	stableSince time.Time
}

type Status struct {
	Running          bool          `json:"running"`
	Dir              string        `json:"dir"`
	Pending          int           `json:"pending"`
	Processing       int           `json:"processing"`
	Processed        int           `json:"processed"`
	Failed           int           `json:"failed"`
	LastScanDuration time.Duration `json:"last_scan_duration"`
	LastScanAt       time.Time     `json:"last_scan_at"`
}

type outcome struct {
	path string
	err  error
}

// Watcher polls an input directory and hands every file to the handler once it stopped changing.
// fsnotify events only trigger an early scan, the poll is what decides.
type Watcher struct {
	cfg     util.WatcherConfig
	handler Handler
	log     *zap.Logger

	mu        sync.Mutex
	entries   map[string]*entry
	processed int
	failed    int
	lastScan  time.Duration
	lastAt    time.Time

	wake    chan struct{}
	running atomic.Bool
}

func NewWatcher(cfg util.WatcherConfig, handler Handler, log *zap.Logger) *Watcher {
	return &Watcher{
		cfg:     cfg,
		handler: handler,
		log:     log,
		entries: make(map[string]*entry),
		wake:    make(chan struct{}, 1),
	}
}

// TriggerScan requests a scan ahead of the next poll tick.
func (w *Watcher) TriggerScan() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) matches(name string) bool {
	if w.cfg.Prefix != "" && !strings.HasPrefix(name, w.cfg.Prefix) {
		return false
	}
	if w.cfg.Extension != "" && !strings.EqualFold(filepath.Ext(name), w.cfg.Extension) {
		return false
	}
	return !strings.HasPrefix(name, ".")
}

// Scan updates the file states as of now and returns the files that just became stable,
// already marked as processing. Callers must report each of them back through finish.
func (w *Watcher) Scan(now time.Time) ([]string, error) {
	start := time.Now()
	dirEntries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "list %s", w.cfg.Dir)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	present := make(map[string]struct{}, len(dirEntries))
	var ready []string
	for _, de := range dirEntries {
		if de.IsDir() || !w.matches(de.Name()) {
			continue
		}
		path := filepath.Join(w.cfg.Dir, de.Name())
		info, err := de.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			w.log.Warn("stat input file", zap.String("path", path), zap.Error(err))
			continue
		}
		present[path] = struct{}{}

		e, ok := w.entries[path]
		if !ok {
			w.entries[path] = &entry{state: SEEN, size: info.Size(), mtime: info.ModTime(), stableSince: now}
			w.log.Info("input file detected", zap.String("path", path))
			continue
		}
		if e.state >= PROCESSING {
			continue
		}
		if info.Size() != e.size || !info.ModTime().Equal(e.mtime) {
			e.state, e.size, e.mtime, e.stableSince = SEEN, info.Size(), info.ModTime(), now
			continue
		}
		if now.Sub(e.stableSince) >= w.cfg.StableFor {
			e.state = STABLE
		}
		if e.state == STABLE && info.Size() > 0 {
			e.state = PROCESSING
			ready = append(ready, path)
		}
	}

	for path, e := range w.entries {
		if _, ok := present[path]; !ok && e.state != PROCESSING {
			delete(w.entries, path)
		}
	}

	w.lastScan = time.Since(start)
	w.lastAt = now
	sort.Strings(ready)
	return ready, nil
}

// finish records the outcome of a dispatched file and moves it out of the input directory.
// Files interrupted by shutdown stay in place and are picked up again on the next start.
func (w *Watcher) finish(path string, procErr error) {
	if errors.Is(procErr, context.Canceled) {
		w.log.Info("input file interrupted", zap.String("path", path))
		w.release([]string{path})
		return
	}

	target := w.cfg.ProcessedDir
	state := PROCESSED
	if procErr != nil {
		target = w.cfg.FailedDir
		state = FAILED
		w.log.Error("input file failed", zap.String("path", path), zap.Error(procErr))
	}

	if err := moveFile(path, target); err != nil {
		w.log.Error("move input file", zap.String("path", path), zap.String("to", target), zap.Error(err))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[path]; ok {
		e.state = state
	}
	if procErr != nil {
		w.failed++
	} else {
		w.processed++
	}
}

func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{
		Running:          w.running.Load(),
		Dir:              w.cfg.Dir,
		Processed:        w.processed,
		Failed:           w.failed,
		LastScanDuration: w.lastScan,
		LastScanAt:       w.lastAt,
	}
	for _, e := range w.entries {
		switch e.state {
		case SEEN, STABLE:
			st.Pending++
		case PROCESSING:
			st.Processing++
		}
	}
	return st
}

func (w *Watcher) FileState(path string) (State, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[path]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Run scans until ctx is done. In-flight files are finished before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.cfg.Dir, w.cfg.ProcessedDir, w.cfg.FailedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return util.WrapErrorf(err, util.ErrInternalServerError, "create %s", dir)
		}
	}
	w.running.Store(true)
	defer w.running.Store(false)

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("fsnotify unavailable, polling only", zap.Error(err))
	} else {
		defer notify.Close()
		if err := notify.Add(w.cfg.Dir); err != nil {
			w.log.Warn("fsnotify watch failed, polling only", zap.String("dir", w.cfg.Dir), zap.Error(err))
		}
		go w.forwardEvents(ctx, notify)
	}

	pool := concurrent.NewWorkerPool[string, outcome](w.cfg.Workers, w.cfg.Workers*4)
	pool.Start(ctx, func(ctx context.Context, path string) outcome {
		return outcome{path: path, err: w.handler(ctx, path)}
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for o := range pool.CollectResults() {
			w.finish(o.path, o.err)
		}
	}()

	w.log.Info("watcher started", zap.String("dir", w.cfg.Dir), zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Duration("stable_for", w.cfg.StableFor), zap.Int("workers", w.cfg.Workers))

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

loop:
	for {
		ready, err := w.Scan(time.Now())
		if err != nil {
			w.log.Error("watcher scan", zap.Error(err))
		}
		for i, path := range ready {
			if !pool.TryAddJob(ctx, path) {
				w.release(ready[i:])
				break loop
			}
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		case <-w.wake:
		}
	}

	pool.Close()
	pool.Wait()
	<-done
	w.log.Info("watcher stopped")
	return nil
}

// release puts files claimed by a scan but never dispatched back to seen.
func (w *Watcher) release(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		if e, ok := w.entries[p]; ok {
			e.state = SEEN
		}
	}
}

func (w *Watcher) forwardEvents(ctx context.Context, notify *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-notify.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				w.TriggerScan()
			}
		case err, ok := <-notify.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify", zap.Error(err))
		}
	}
}

func moveFile(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(target)
		target = strings.TrimSuffix(target, ext) + "_" + time.Now().Format("20060102T150405") + ext
	}
	return os.Rename(path, target)
}
