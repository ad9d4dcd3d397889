package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), 0)

	assert.Error(t, err)
}

func TestNew_RejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))

	_, err := New(f, 0)

	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	root := t.TempDir()
	party := filepath.Join(root, "PLN-Liberacion-Nacional")
	require.NoError(t, os.Mkdir(party, 0o755))
	w, err := New(root, time.Second)
	require.NoError(t, err)
	defer w.Close()

	tests := []struct {
		name   string
		event  fsnotify.Event
		folder string
		ok     bool
	}{
		{"pdf written", fsnotify.Event{Name: filepath.Join(party, "PLN.pdf"), Op: fsnotify.Write}, party, true},
		{"metadata created", fsnotify.Event{Name: filepath.Join(party, "metadata.json"), Op: fsnotify.Create}, party, true},
		{"new folder", fsnotify.Event{Name: party, Op: fsnotify.Create}, party, true},
		{"other file", fsnotify.Event{Name: filepath.Join(party, "notes.txt"), Op: fsnotify.Write}, "", false},
		{"removal", fsnotify.Event{Name: filepath.Join(party, "PLN.pdf"), Op: fsnotify.Remove}, "", false},
		{"hidden folder", fsnotify.Event{Name: filepath.Join(root, ".git", "x.pdf"), Op: fsnotify.Write}, "", false},
		{"outside root", fsnotify.Event{Name: "/elsewhere/x.pdf", Op: fsnotify.Write}, "", false},
		{"root itself", fsnotify.Event{Name: root, Op: fsnotify.Write}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folder, ok := w.classify(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.folder, folder)
		})
	}
}

func TestRun_EmitsDebouncedBatch(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, 100*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out := make(chan Batch, 1)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, out) }()

	party := filepath.Join(root, "FA-Frente-Amplio")
	require.NoError(t, os.Mkdir(party, 0o755))
	// Give the watcher time to add the new folder before writing into it.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(party, "FA.pdf"), []byte("%PDF-1.4"), 0o600))

	select {
	case b := <-out:
		assert.Equal(t, []string{party}, b.Folders)
	case <-ctx.Done():
		t.Fatal("no batch emitted")
	}

	cancel()
	assert.NoError(t, <-done)
}
