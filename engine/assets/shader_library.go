package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spaghettifunk/penumbra/engine/core"
)

/**
 * @brief Serves compiled SPIR-V binaries from a directory tree, keyed by their
 * path relative to the root (e.g. "shadowMap/depth.vert.spv"). Binaries are
 * cached after the first read until invalidated by the watcher.
 */
type ShaderLibrary struct {
	root string

	mutex sync.RWMutex
	cache map[string][]byte
}

func NewShaderLibrary(root string) *ShaderLibrary {
	return &ShaderLibrary{
		root:  root,
		cache: make(map[string][]byte),
	}
}

func (sl *ShaderLibrary) Root() string {
	return sl.root
}

// LoadShader returns the binary stored at path. A missing file is reported
// as core.ErrShaderNotFound.
func (sl *ShaderLibrary) LoadShader(path string) ([]byte, error) {
	key := filepath.ToSlash(filepath.Clean(path))

	sl.mutex.RLock()
	code, ok := sl.cache[key]
	sl.mutex.RUnlock()
	if ok {
		return code, nil
	}

	code, err := os.ReadFile(filepath.Join(sl.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, core.ErrShaderNotFound)
		}
		return nil, fmt.Errorf("failed to read shader %s: %w", key, err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader %s is not a SPIR-V binary (%d bytes)", key, len(code))
	}

	sl.mutex.Lock()
	sl.cache[key] = code
	sl.mutex.Unlock()
	core.LogDebug("loaded shader %s (%d bytes)", key, len(code))
	return code, nil
}

// Invalidate drops the cached binary for path so the next load rereads it.
func (sl *ShaderLibrary) Invalidate(path string) {
	key := filepath.ToSlash(filepath.Clean(path))
	sl.mutex.Lock()
	delete(sl.cache, key)
	sl.mutex.Unlock()
}
