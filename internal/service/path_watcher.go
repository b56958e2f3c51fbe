package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonno85/bin-relay/internal/config"
	"github.com/jonno85/bin-relay/internal/domain"
)

// FsPathWatcher is an alias for fsnotify.Watcher, used for file system event watching.
type FsPathWatcher = fsnotify.Watcher

// PathWatcher uploads every file that settles in a watched directory, one at a
// time, through a single UploadCoordinator.
type PathWatcher struct {
	cfg           config.CoordinatorConfig
	coordinator   *UploadCoordinator
	fsPathWatcher *FsPathWatcher
	onProcessed   func(path string, snap Snapshot)

	ctx     context.Context
	cancel  context.CancelFunc
	settled chan string
	wg      sync.WaitGroup

	mu         sync.Mutex
	fileTimers map[string]*time.Timer
}

// NewPathWatcher creates a watcher feeding coordinator. onProcessed, if not
// nil, is called after each file has been uploaded and the coordinator reset.
func NewPathWatcher(cfg config.CoordinatorConfig, coordinator *UploadCoordinator, onProcessed func(string, Snapshot)) *PathWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &PathWatcher{
		cfg:         cfg,
		coordinator: coordinator,
		onProcessed: onProcessed,
		ctx:         ctx,
		cancel:      cancel,
		settled:     make(chan string, 64),
		fileTimers:  make(map[string]*time.Timer),
	}
}

// AddAndWatchPath starts watching dir and returns once events are being received.
func (pw *PathWatcher) AddAndWatchPath(dir string) error {
	fsPathWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create pathWatcher", "err", err)
		return err
	}
	if err := fsPathWatcher.Add(dir); err != nil {
		fsPathWatcher.Close()
		return err
	}
	pw.fsPathWatcher = fsPathWatcher
	slog.Info("Path added to watchlist", "path", dir)

	pw.wg.Add(2)
	go pw.handleWatcherEvents()
	go pw.processSettled()
	return nil
}

// Close stops watching, drops pending timers and waits for the current upload to finish.
func (pw *PathWatcher) Close() error {
	pw.cancel()
	pw.mu.Lock()
	for path, timer := range pw.fileTimers {
		timer.Stop()
		delete(pw.fileTimers, path)
	}
	pw.mu.Unlock()

	var err error
	if pw.fsPathWatcher != nil {
		err = pw.fsPathWatcher.Close()
	}
	pw.wg.Wait()
	return err
}

// handleWatcherEvents listens for file system events and debounces writes to matching files.
func (pw *PathWatcher) handleWatcherEvents() {
	defer pw.wg.Done()
	for {
		select {
		case event, ok := <-pw.fsPathWatcher.Events:
			if !ok {
				return
			}
			slog.Debug("event", "action", event.Op, "path", event.Name)
			if !strings.HasSuffix(event.Name, pw.cfg.FileExtension) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pw.startOrResetTimer(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				slog.Debug("file renamed/removed", "path", event.Name)
				pw.stopTimer(event.Name)
			}
		case err, ok := <-pw.fsPathWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "err", err)
		case <-pw.ctx.Done():
			slog.Info("Shutting down path watcher goroutine")
			return
		}
	}
}

// startOrResetTimer hands path to the upload loop once it has seen no writes for WatchSettle.
func (pw *PathWatcher) startOrResetTimer(path string) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if timer, exists := pw.fileTimers[path]; exists {
		timer.Stop()
	}

	pw.fileTimers[path] = time.AfterFunc(pw.cfg.WatchSettle, func() {
		slog.Info("No updates, processing file", "settle", pw.cfg.WatchSettle.String(), "path", path)
		pw.mu.Lock()
		delete(pw.fileTimers, path)
		pw.mu.Unlock()
		select {
		case pw.settled <- path:
		case <-pw.ctx.Done():
		}
	})
}

func (pw *PathWatcher) stopTimer(path string) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if timer, exists := pw.fileTimers[path]; exists {
		timer.Stop()
		delete(pw.fileTimers, path)
	}
}

// processSettled uploads settled files sequentially so the coordinator never sees two at once.
func (pw *PathWatcher) processSettled() {
	defer pw.wg.Done()
	for {
		select {
		case path := <-pw.settled:
			snap, csvPath, err := UploadFromPath(pw.ctx, pw.coordinator, path, pw.cfg.OutputDir)
			if err != nil {
				slog.Error("Error processing file", "path", path, "err", err)
			} else if snap.State == StateSuccess {
				slog.Info("CSV written", "path", path, "csv", csvPath, "processingTime", snap.ProcessingTime.String())
			} else {
				slog.Warn("Upload failed", "path", path, "result", snap.Result(), "message", snap.ErrorMessage)
			}
			if err := pw.coordinator.Reset(); err != nil {
				slog.Error("Failed to reset coordinator", "err", err)
			}
			if pw.onProcessed != nil {
				pw.onProcessed(path, snap)
			}
		case <-pw.ctx.Done():
			return
		}
	}
}

// UploadFromPath reads the file at path, uploads it through uc and, on
// success, writes the CSV artifact into outputDir.
func UploadFromPath(ctx context.Context, uc *UploadCoordinator, path, outputDir string) (Snapshot, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, "", err
	}
	if info.IsDir() {
		return Snapshot{}, "", errors.New("path is a directory")
	}
	req := domain.UploadRequest{FileName: filepath.Base(path), DeclaredSize: info.Size()}
	if limit := uc.cfg.MaxPayloadBytes; limit > 0 && info.Size() > limit {
		// Let the coordinator reject it on the declared size alone.
		snap, err := uc.Upload(ctx, req)
		return snap, "", err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, "", err
	}
	req.Payload = payload
	snap, err := uc.Upload(ctx, req)
	if err != nil || snap.State != StateSuccess {
		return snap, "", err
	}
	csvPath, err := uc.SaveCSV(outputDir)
	return snap, csvPath, err
}
