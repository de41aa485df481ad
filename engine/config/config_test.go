package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	content := `
[renderer]
msaa_samples = 8
hot_reload = true

[shadows]
directional_resolution = 4096

[post]
tone_mapping = "reinhard"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), cfg.Renderer.MSAASamples)
	assert.True(t, cfg.Renderer.HotReload)
	assert.Equal(t, uint32(4096), cfg.Shadows.DirectionalResolution)
	assert.Equal(t, ToneMappingReinhard, cfg.Post.ToneMapping)
	assert.Equal(t, uint32(1), cfg.Post.ToneMapping.Index())
	// untouched keys keep their defaults
	assert.Equal(t, Default().Shadows.PointResolution, cfg.Shadows.PointResolution)
	assert.Equal(t, "data/shaders", cfg.Renderer.ShaderDir)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "engine.toml")
	cfg := Default()
	cfg.SSAO.KernelSize = 16
	cfg.Application.Name = "roundtrip"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"msaa not power of two", func(c *EngineConfig) { c.Renderer.MSAASamples = 3 }},
		{"msaa zero", func(c *EngineConfig) { c.Renderer.MSAASamples = 0 }},
		{"kernel too large", func(c *EngineConfig) { c.SSAO.KernelSize = 65 }},
		{"kernel zero", func(c *EngineConfig) { c.SSAO.KernelSize = 0 }},
		{"zero shadow resolution", func(c *EngineConfig) { c.Shadows.PointResolution = 0 }},
		{"unknown tone mapping", func(c *EngineConfig) { c.Post.ToneMapping = "filmic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
