package rendertest

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// Shaders is an in-memory ShaderLoader that returns a fixed blob for any
// path, or fails for the paths listed in Missing.
type Shaders struct {
	mu      sync.Mutex
	Missing map[string]bool
	Loaded  []string
}

func NewShaders() *Shaders {
	return &Shaders{Missing: make(map[string]bool)}
}

func (s *Shaders) LoadShader(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Missing[path] {
		return nil, fmt.Errorf("%s: %w", path, core.ErrShaderNotFound)
	}
	s.Loaded = append(s.Loaded, path)
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}
