package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

var testDefaults = map[string]string{
	driven.PromptPositionSystem:    "Eres un analista político.",
	driven.PromptPositionSynthesis: "Analiza {{.Category}} de {{.Party}}.\n{{.Context}}",
}

func newTestPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testDefaults)
	require.NoError(t, err)
	return store, dir
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("", nil)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".plataformas", "prompts"), store.Dir())
}

func TestNewPromptStore_NoIO(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	_, err := NewPromptStore(dir, testDefaults)

	require.NoError(t, err)
	assert.NoDirExists(t, dir)
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)

	_, err := store.Load(driven.PromptPositionSystem)
	require.NoError(t, err)

	for _, f := range []string{"position_system.txt", "position_synthesis.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, _ := newTestPromptStore(t)

	prompt, err := store.Load(driven.PromptPositionSynthesis)

	require.NoError(t, err)
	assert.Equal(t, testDefaults[driven.PromptPositionSynthesis], prompt)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	store, dir := newTestPromptStore(t)
	custom := "Resume {{.Category}} para {{.Party}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "position_synthesis.txt"), []byte("  "+custom+"\n"), 0o600))

	prompt, err := store.Load(driven.PromptPositionSynthesis)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)

	// Custom files are never overwritten by init.
	data, err := os.ReadFile(filepath.Join(dir, "position_synthesis.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), custom)
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	store, dir := newTestPromptStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "position_system.txt"), []byte("\n"), 0o600))

	prompt, err := store.Load(driven.PromptPositionSystem)

	require.NoError(t, err)
	assert.Equal(t, testDefaults[driven.PromptPositionSystem], prompt)
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, _ := newTestPromptStore(t)

	_, err := store.Load("missing")

	assert.Error(t, err)
}

func TestPromptStore_Load_InitFailureUsesDefaults(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"), testDefaults)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptPositionSystem)
	require.NoError(t, err)
	assert.Equal(t, testDefaults[driven.PromptPositionSystem], prompt)

	_, err = store.Load("missing")
	assert.ErrorContains(t, err, "init failed")
}

func TestPromptStore_CachesUntilReload(t *testing.T) {
	store, dir := newTestPromptStore(t)
	path := filepath.Join(dir, "position_system.txt")

	first, err := store.Load(driven.PromptPositionSystem)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("editado"), 0o600))
	cached, err := store.Load(driven.PromptPositionSystem)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptPositionSystem)
	require.NoError(t, err)
	assert.Equal(t, "editado", fresh)
}

func TestPromptStore_Reset(t *testing.T) {
	store, dir := newTestPromptStore(t)
	path := filepath.Join(dir, "position_system.txt")
	require.NoError(t, os.WriteFile(path, []byte("editado"), 0o600))

	require.NoError(t, store.Reset(driven.PromptPositionSystem))

	prompt, err := store.Load(driven.PromptPositionSystem)
	require.NoError(t, err)
	assert.Equal(t, testDefaults[driven.PromptPositionSystem], prompt)

	assert.Error(t, store.Reset("missing"))
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, _ := newTestPromptStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptPositionSynthesis)
			assert.NoError(t, err)
			assert.NotEmpty(t, prompt)
		}()
	}
	wg.Wait()
}

func TestPromptStore_DefaultsAreCopied(t *testing.T) {
	defaults := map[string]string{"x": "uno"}
	store, err := NewPromptStore(t.TempDir(), defaults)
	require.NoError(t, err)

	defaults["x"] = "dos"

	prompt, err := store.Load("x")
	require.NoError(t, err)
	assert.Equal(t, "uno", prompt)
}
