package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/penumbra/engine/core"
)

type ToneMapping string

const (
	ToneMappingACES     ToneMapping = "aces"
	ToneMappingReinhard ToneMapping = "reinhard"
	ToneMappingNone     ToneMapping = "none"
)

// Index returns the value pushed to the blit shader.
func (t ToneMapping) Index() uint32 {
	switch t {
	case ToneMappingReinhard:
		return 1
	case ToneMappingNone:
		return 2
	}
	return 0
}

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	StartPosX uint32 `toml:"x"`
	// Window starting position y axis.
	StartPosY uint32 `toml:"y"`
	// Window starting width.
	StartWidth uint32 `toml:"width"`
	// Window starting height.
	StartHeight uint32 `toml:"height"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RendererConfig struct {
	// Enables the validation layers and the debug messenger.
	Debug bool `toml:"debug"`
	VSync bool `toml:"vsync"`
	// Sample count of the G-buffer attachments. Must be a power of two.
	MSAASamples uint32 `toml:"msaa_samples"`
	// Root of the compiled SPIR-V tree, laid out as <shader_dir>/<pass>/<name>.spv.
	ShaderDir         string `toml:"shader_dir"`
	PipelineCachePath string `toml:"pipeline_cache_path"`
	// Rebuild pipelines when a shader binary changes on disk.
	HotReload bool `toml:"hot_reload"`
}

type ShadowConfig struct {
	DirectionalResolution uint32  `toml:"directional_resolution"`
	PointResolution       uint32  `toml:"point_resolution"`
	PCFKernel             uint32  `toml:"pcf_kernel"`
	DepthBiasConstant     float32 `toml:"depth_bias_constant"`
	DepthBiasSlope        float32 `toml:"depth_bias_slope"`
	// Bias applied in the lighting shader when comparing depths.
	DirectionalBias float32 `toml:"directional_bias"`
}

type SSAOConfig struct {
	KernelSize uint32  `toml:"kernel_size"`
	Radius     float32 `toml:"radius"`
	Bias       float32 `toml:"bias"`
	Seed       uint64  `toml:"seed"`
}

type PostConfig struct {
	Exposure    float32     `toml:"exposure"`
	Gamma       float32     `toml:"gamma"`
	ToneMapping ToneMapping `toml:"tone_mapping"`
	FXAA        bool        `toml:"fxaa"`
}

type EngineConfig struct {
	Application ApplicationConfig `toml:"application"`
	Log         LogConfig         `toml:"log"`
	Renderer    RendererConfig    `toml:"renderer"`
	Shadows     ShadowConfig      `toml:"shadows"`
	SSAO        SSAOConfig        `toml:"ssao"`
	Post        PostConfig        `toml:"post"`
}

const MaxSSAOKernelSize = 64

func Default() *EngineConfig {
	return &EngineConfig{
		Application: ApplicationConfig{
			Name:        "Penumbra Testbed",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Log: LogConfig{Level: "debug"},
		Renderer: RendererConfig{
			Debug:             true,
			VSync:             true,
			MSAASamples:       4,
			ShaderDir:         "data/shaders",
			PipelineCachePath: "cache/pipeline_cache.bin",
			HotReload:         false,
		},
		Shadows: ShadowConfig{
			DirectionalResolution: 2048,
			PointResolution:       1024,
			PCFKernel:             2,
			DepthBiasConstant:     1.25,
			DepthBiasSlope:        1.75,
			DirectionalBias:       0.005,
		},
		SSAO: SSAOConfig{
			KernelSize: MaxSSAOKernelSize,
			Radius:     0.5,
			Bias:       0.025,
			Seed:       1337,
		},
		Post: PostConfig{
			Exposure:    1.0,
			Gamma:       2.2,
			ToneMapping: ToneMappingACES,
			FXAA:        true,
		},
	}
}

// Load decodes the file at path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*EngineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *EngineConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *EngineConfig) Validate() error {
	r := c.Renderer
	if r.MSAASamples == 0 || r.MSAASamples > 64 || r.MSAASamples&(r.MSAASamples-1) != 0 {
		return fmt.Errorf("renderer.msaa_samples must be a power of two in [1, 64], got %d", r.MSAASamples)
	}
	if r.ShaderDir == "" {
		return errors.New("renderer.shader_dir must not be empty")
	}
	s := c.Shadows
	if s.DirectionalResolution == 0 || s.PointResolution == 0 {
		return fmt.Errorf("shadow resolutions must be non zero, got %d and %d", s.DirectionalResolution, s.PointResolution)
	}
	if c.SSAO.KernelSize == 0 || c.SSAO.KernelSize > MaxSSAOKernelSize {
		return fmt.Errorf("ssao.kernel_size must be in [1, %d], got %d", MaxSSAOKernelSize, c.SSAO.KernelSize)
	}
	switch c.Post.ToneMapping {
	case ToneMappingACES, ToneMappingReinhard, ToneMappingNone:
	default:
		return fmt.Errorf("post.tone_mapping %q is not one of aces, reinhard, none", c.Post.ToneMapping)
	}
	if c.Application.StartWidth == 0 || c.Application.StartHeight == 0 {
		return errors.New("application width and height must be non zero")
	}
	return nil
}
