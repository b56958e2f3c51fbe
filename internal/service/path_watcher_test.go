package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonno85/bin-relay/internal/domain"
)

type processed struct {
	path string
	snap Snapshot
}

func TestPathWatcher_UploadsSettledFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := successEnvelope()
		env.CSVFileName = domain.CSVFileName(r.Header.Get(domain.FileNameHeader))
		writeEnvelope(w, http.StatusOK, env)
	}))
	defer srv.Close()

	inDir, outDir := t.TempDir(), t.TempDir()
	cfg := testCoordinatorConfig(srv.URL)
	cfg.WatchSettle = 50 * time.Millisecond
	cfg.OutputDir = outDir

	done := make(chan processed, 4)
	uc := NewUploadCoordinator(cfg)
	watcher := NewPathWatcher(cfg, uc, func(path string, snap Snapshot) {
		done <- processed{path: path, snap: snap}
	})
	require.NoError(t, watcher.AddAndWatchPath(inDir))
	defer watcher.Close()

	require.NoError(t, os.WriteFile(filepath.Join(inDir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "reading.bin"), []byte{1, 2, 3}, 0o644))

	select {
	case got := <-done:
		assert.Equal(t, filepath.Join(inDir, "reading.bin"), got.path)
		assert.Equal(t, StateSuccess, got.snap.State)
	case <-time.After(5 * time.Second):
		t.Fatal("file was never uploaded")
	}

	content, err := os.ReadFile(filepath.Join(outDir, "reading.csv"))
	require.NoError(t, err)
	assert.Equal(t, successEnvelope().CSVString, string(content))
	assert.Equal(t, StateIdle, uc.State())

	select {
	case got := <-done:
		t.Fatalf("unexpected upload of %s", got.path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUploadFromPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, successEnvelope())
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "reading.bin")
	require.NoError(t, os.WriteFile(path, []byte{9, 9}, 0o644))

	uc := NewUploadCoordinator(testCoordinatorConfig(srv.URL))
	snap, csvPath, err := UploadFromPath(context.Background(), uc, path, filepath.Join(dir, "out"))
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, snap.State)
	assert.Equal(t, filepath.Join(dir, "out", "reading.csv"), csvPath)
	assert.FileExists(t, csvPath)

	_, _, err = UploadFromPath(context.Background(), NewUploadCoordinator(testCoordinatorConfig(srv.URL)), filepath.Join(dir, "missing.bin"), dir)
	assert.Error(t, err)
}

func TestUploadFromPath_OversizedFileIsNotSent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeEnvelope(w, http.StatusOK, successEnvelope())
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "large.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	uc := NewUploadCoordinator(testCoordinatorConfig(srv.URL))
	snap, csvPath, err := UploadFromPath(context.Background(), uc, path, filepath.Join(dir, "out"))
	require.NoError(t, err)

	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, ResultSizeError, snap.Result())
	assert.Contains(t, snap.ErrorMessage, "File too large")
	assert.Empty(t, csvPath)
	assert.Zero(t, calls)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}
