package metadata

type VertexLayout int

const (
	/** @brief No vertex input. Positions are generated in the vertex shader. */
	VERTEX_LAYOUT_NONE VertexLayout = iota
	/** @brief math.Vertex3D: position, normal, texcoord, colour, tangent. */
	VERTEX_LAYOUT_3D
)

type PrimitiveTopology int

const (
	PRIMITIVE_TOPOLOGY_TRIANGLE_LIST PrimitiveTopology = iota
	PRIMITIVE_TOPOLOGY_TRIANGLE_STRIP
)

type CullMode int

const (
	CULL_MODE_NONE CullMode = iota
	CULL_MODE_BACK
	CULL_MODE_FRONT
)

func (c CullMode) String() string {
	switch c {
	case CULL_MODE_BACK:
		return "back"
	case CULL_MODE_FRONT:
		return "front"
	}
	return "none"
}

type CompareOperation int

const (
	COMPARE_OPERATION_LESS CompareOperation = iota
	COMPARE_OPERATION_LESS_OR_EQUAL
	COMPARE_OPERATION_ALWAYS
)

/** @brief A shader stage binary referenced by its path relative to the shader root. */
type ShaderStageConfig struct {
	Stage ShaderStage
	Path  string
	/** @brief SPIR-V code, filled in from the shader library before creation. */
	Code []byte
}

/**
 * @brief Everything needed to create an immutable graphics pipeline.
 */
type PipelineConfig struct {
	Name                  string
	Pass                  *RenderPass
	Stages                []ShaderStageConfig
	/** @brief Set layouts in set order: view (0), material (1), lights (2). Per draw model data is pushed. */
	SetLayouts            []*DescriptorSetLayout
	PushConstantSize      uint32
	PushConstantStages    ShaderStage
	VertexLayout          VertexLayout
	Topology              PrimitiveTopology
	CullMode              CullMode
	/** @brief Number of colour attachments written; each gets the same blend state. */
	ColourAttachmentCount uint32
	Blend                 bool
	DepthTest             bool
	DepthWrite            bool
	DepthCompare          CompareOperation
	DepthBias             bool
	DepthBiasConstant     float32
	DepthBiasSlope        float32
	Samples               uint32
}

// Stage returns the stage config for the given shader stage, or nil.
func (c *PipelineConfig) Stage(stage ShaderStage) *ShaderStageConfig {
	for i := range c.Stages {
		if c.Stages[i].Stage == stage {
			return &c.Stages[i]
		}
	}
	return nil
}

type Pipeline struct {
	Config       PipelineConfig
	InternalData interface{}
}

type ComputePipelineConfig struct {
	Name             string
	Shader           ShaderStageConfig
	SetLayouts       []*DescriptorSetLayout
	PushConstantSize uint32
}

type ComputePipeline struct {
	Config       ComputePipelineConfig
	InternalData interface{}
}
