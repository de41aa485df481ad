package metadata

// PipelineOption overrides one aspect of a pipeline configuration.
type PipelineOption func(*PipelineConfig)

func WithName(name string) PipelineOption {
	return func(c *PipelineConfig) {
		c.Name = name
	}
}

func WithRenderPass(pass *RenderPass) PipelineOption {
	return func(c *PipelineConfig) {
		c.Pass = pass
	}
}

// WithShader sets or replaces the binary for one stage.
func WithShader(stage ShaderStage, path string) PipelineOption {
	return func(c *PipelineConfig) {
		for i := range c.Stages {
			if c.Stages[i].Stage == stage {
				c.Stages[i] = ShaderStageConfig{Stage: stage, Path: path}
				return
			}
		}
		c.Stages = append(c.Stages, ShaderStageConfig{Stage: stage, Path: path})
	}
}

func WithVertexShader(path string) PipelineOption {
	return WithShader(SHADER_STAGE_VERTEX, path)
}

func WithFragmentShader(path string) PipelineOption {
	return WithShader(SHADER_STAGE_FRAGMENT, path)
}

func WithSetLayouts(layouts ...*DescriptorSetLayout) PipelineOption {
	return func(c *PipelineConfig) {
		c.SetLayouts = append([]*DescriptorSetLayout(nil), layouts...)
	}
}

func WithPushConstants(size uint32, stages ShaderStage) PipelineOption {
	return func(c *PipelineConfig) {
		c.PushConstantSize = size
		c.PushConstantStages = stages
	}
}

func WithVertexLayout(layout VertexLayout) PipelineOption {
	return func(c *PipelineConfig) {
		c.VertexLayout = layout
	}
}

func WithTopology(topology PrimitiveTopology) PipelineOption {
	return func(c *PipelineConfig) {
		c.Topology = topology
	}
}

func WithCullMode(mode CullMode) PipelineOption {
	return func(c *PipelineConfig) {
		c.CullMode = mode
	}
}

func WithColourAttachments(count uint32) PipelineOption {
	return func(c *PipelineConfig) {
		c.ColourAttachmentCount = count
	}
}

// WithBlend enables straight alpha blending on every colour attachment.
func WithBlend(enabled bool) PipelineOption {
	return func(c *PipelineConfig) {
		c.Blend = enabled
	}
}

func WithDepth(test, write bool, compare CompareOperation) PipelineOption {
	return func(c *PipelineConfig) {
		c.DepthTest = test
		c.DepthWrite = write
		c.DepthCompare = compare
	}
}

func WithDepthBias(constant, slope float32) PipelineOption {
	return func(c *PipelineConfig) {
		c.DepthBias = true
		c.DepthBiasConstant = constant
		c.DepthBiasSlope = slope
	}
}

func WithSamples(samples uint32) PipelineOption {
	return func(c *PipelineConfig) {
		c.Samples = samples
	}
}

/**
 * @brief Builds pipeline configurations from an immutable base.
 *
 * Variants are produced with Derive, which copies the base and applies
 * only the differing overrides. The base itself never changes.
 */
type PipelineBuilder struct {
	base PipelineConfig
}

// NewPipelineBuilder starts from an opaque, back face culled, depth tested triangle list.
func NewPipelineBuilder(options ...PipelineOption) *PipelineBuilder {
	b := &PipelineBuilder{
		base: PipelineConfig{
			VertexLayout:          VERTEX_LAYOUT_3D,
			Topology:              PRIMITIVE_TOPOLOGY_TRIANGLE_LIST,
			CullMode:              CULL_MODE_BACK,
			ColourAttachmentCount: 1,
			DepthTest:             true,
			DepthWrite:            true,
			DepthCompare:          COMPARE_OPERATION_LESS,
			Samples:               1,
		},
	}
	for _, opt := range options {
		opt(&b.base)
	}
	return b
}

// Build returns a copy of the base configuration.
func (b *PipelineBuilder) Build() *PipelineConfig {
	return b.Derive()
}

// Derive returns a copy of the base configuration with the overrides applied.
func (b *PipelineBuilder) Derive(overrides ...PipelineOption) *PipelineConfig {
	c := b.base
	c.Stages = append([]ShaderStageConfig(nil), b.base.Stages...)
	c.SetLayouts = append([]*DescriptorSetLayout(nil), b.base.SetLayouts...)
	for _, opt := range overrides {
		opt(&c)
	}
	return &c
}
