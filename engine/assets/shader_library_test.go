package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeShader(t *testing.T, root, rel string, code []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, code, 0o644))
}

func TestShaderLibraryLoadsRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "shadow/shadow.vert.spv", []byte{3, 2, 35, 7})

	lib := NewShaderLibrary(root)
	code, err := lib.LoadShader("shadow/shadow.vert.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 35, 7}, code)
}

func TestShaderLibraryMissingShader(t *testing.T) {
	lib := NewShaderLibrary(t.TempDir())
	_, err := lib.LoadShader("cameraSpaceLight/opaque.frag.spv")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrShaderNotFound)
}

func TestShaderLibraryRejectsTruncatedBinary(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "blit.frag.spv", []byte{1, 2, 3})

	_, err := NewShaderLibrary(root).LoadShader("blit.frag.spv")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrShaderNotFound)
}

func TestShaderLibraryCachesUntilInvalidated(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "ssao/ssao.frag.spv", []byte{1, 1, 1, 1})

	lib := NewShaderLibrary(root)
	_, err := lib.LoadShader("ssao/ssao.frag.spv")
	require.NoError(t, err)

	writeShader(t, root, "ssao/ssao.frag.spv", []byte{2, 2, 2, 2})
	code, err := lib.LoadShader("ssao/ssao.frag.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1}, code)

	lib.Invalidate("ssao/ssao.frag.spv")
	code, err = lib.LoadShader("ssao/ssao.frag.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2, 2, 2}, code)
}

func TestShaderWatcherReportsChangedBinaries(t *testing.T) {
	root := t.TempDir()
	writeShader(t, root, "skybox/skybox.frag.spv", []byte{1, 1, 1, 1})

	lib := NewShaderLibrary(root)
	_, err := lib.LoadShader("skybox/skybox.frag.spv")
	require.NoError(t, err)

	var mu sync.Mutex
	var changed []string
	watcher, err := NewShaderWatcher(lib, func(path string) {
		mu.Lock()
		changed = append(changed, path)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer watcher.Close()

	writeShader(t, root, "skybox/skybox.frag.spv", []byte{2, 2, 2, 2})
	writeShader(t, root, "skybox/notes.txt", []byte("ignored"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	for _, p := range changed {
		assert.Equal(t, "skybox/skybox.frag.spv", p)
	}
	mu.Unlock()

	code, err := lib.LoadShader("skybox/skybox.frag.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2, 2, 2}, code)
}

func TestShaderWatcherCloseTwice(t *testing.T) {
	watcher, err := NewShaderWatcher(NewShaderLibrary(t.TempDir()), nil)
	require.NoError(t, err)
	require.NoError(t, watcher.Close())
	assert.Error(t, watcher.Close())
}
