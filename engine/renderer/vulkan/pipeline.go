package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	Layout vk.PipelineLayout
	/** @brief The stages push constants are visible to. */
	PushConstantStages vk.ShaderStageFlags
}

// vertex3DStride is the size of math.Vertex3D: position, normal, texcoord, colour, tangent.
const vertex3DStride uint32 = 60

var vertex3DAttributes = []vk.VertexInputAttributeDescription{
	{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
	{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
	{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
	{Location: 3, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
	{Location: 4, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 48},
}

func vulkanPipeline(pipeline *metadata.Pipeline) *VulkanPipeline {
	return pipeline.InternalData.(*VulkanPipeline)
}

func vulkanComputePipeline(pipeline *metadata.ComputePipeline) *VulkanPipeline {
	return pipeline.InternalData.(*VulkanPipeline)
}

func (vr *VulkanBackend) createPipelineLayout(name string, setLayouts []*metadata.DescriptorSetLayout, pushConstantSize uint32, pushConstantStages vk.ShaderStageFlags) (vk.PipelineLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, l := range setLayouts {
		if l == nil || l.InternalData == nil {
			err := fmt.Errorf("pipeline %s: descriptor set layout %d is not created", name, i)
			core.LogError(err.Error())
			return vk.NullPipelineLayout, err
		}
		layouts[i] = l.InternalData.(vk.DescriptorSetLayout)
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	if pushConstantSize > 0 {
		if pushConstantSize > vr.context.Device.Properties.Limits.MaxPushConstantsSize {
			err := fmt.Errorf("pipeline %s: push constant block of %d bytes exceeds the device limit of %d",
				name, pushConstantSize, vr.context.Device.Properties.Limits.MaxPushConstantsSize)
			core.LogError(err.Error())
			return vk.NullPipelineLayout, err
		}
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{
			{StageFlags: pushConstantStages, Offset: 0, Size: pushConstantSize},
		}
	}

	var layout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(vr.context.Device.LogicalDevice, &pipelineLayoutCreateInfo, vr.context.Allocator, &layout), "vkCreatePipelineLayout"); err != nil {
		return vk.NullPipelineLayout, err
	}
	return layout, nil
}

func (vr *VulkanBackend) PipelineCreate(config metadata.PipelineConfig) (*metadata.Pipeline, error) {
	context := vr.context
	if config.Pass == nil || config.Pass.InternalData == nil {
		err := fmt.Errorf("pipeline %s: render pass is not created", config.Name)
		core.LogError(err.Error())
		return nil, err
	}

	stages := make([]*VulkanShaderStage, 0, len(config.Stages))
	defer func() {
		// Modules are only needed while the pipeline is being created.
		for _, s := range stages {
			s.Destroy(context)
		}
	}()
	stageInfos := make([]vk.PipelineShaderStageCreateInfo, 0, len(config.Stages))
	for _, sc := range config.Stages {
		stage, err := NewShaderStage(context, sc)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", config.Name, err)
		}
		stages = append(stages, stage)
		stageInfos = append(stageInfos, stage.ShaderStageCreateInfo)
	}

	// Viewport and scissor are dynamic.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                toVkCullMode(config.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.DepthBias {
		rasterizerCreateInfo.DepthBiasEnable = vk.True
		rasterizerCreateInfo.DepthBiasConstantFactor = config.DepthBiasConstant
		rasterizerCreateInfo.DepthBiasSlopeFactor = config.DepthBiasSlope
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  toVkSamples(config.Samples),
		MinSampleShading:      1.0,
		PSampleMask:           []vk.SampleMask{vk.SampleMask(vk.MaxUint32)},
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.False,
		DepthWriteEnable:      vk.False,
		DepthCompareOp:        toVkCompareOp(config.DepthCompare),
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	writeMask := vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit)
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, config.ColourAttachmentCount)
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:    vk.False,
			ColorWriteMask: writeMask,
		}
		if config.Blend {
			blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
				DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      writeMask,
			}
		}
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if config.VertexLayout == metadata.VERTEX_LAYOUT_3D {
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{
			{Binding: 0, Stride: vertex3DStride, InputRate: vk.VertexInputRateVertex},
		}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(vertex3DAttributes))
		vertexInputInfo.PVertexAttributeDescriptions = vertex3DAttributes
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               toVkTopology(config.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	pushStages := toVkShaderStages(config.PushConstantStages)
	layout, err := vr.createPipelineLayout(config.Name, config.SetLayouts, config.PushConstantSize, pushStages)
	if err != nil {
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stageInfos)),
		PStages:             stageInfos,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          config.Pass.InternalData.(*VulkanRenderpass).Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := check(vk.CreateGraphicsPipelines(context.Device.LogicalDevice, context.PipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines), "vkCreateGraphicsPipelines"); err != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout, context.Allocator)
		return nil, err
	}

	core.LogDebug("graphics pipeline %s created", config.Name)
	return &metadata.Pipeline{
		Config: config,
		InternalData: &VulkanPipeline{
			Handle:             pipelines[0],
			Layout:             layout,
			PushConstantStages: pushStages,
		},
	}, nil
}

func (vr *VulkanBackend) PipelineDestroy(pipeline *metadata.Pipeline) {
	if pipeline == nil || pipeline.InternalData == nil {
		return
	}
	vulkanPipeline(pipeline).destroy(vr.context)
	pipeline.InternalData = nil
}

func (vr *VulkanBackend) ComputePipelineCreate(config metadata.ComputePipelineConfig) (*metadata.ComputePipeline, error) {
	context := vr.context

	stage, err := NewShaderStage(context, config.Shader)
	if err != nil {
		return nil, fmt.Errorf("compute pipeline %s: %w", config.Name, err)
	}
	defer stage.Destroy(context)

	pushStages := vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	layout, err := vr.createPipelineLayout(config.Name, config.SetLayouts, config.PushConstantSize, pushStages)
	if err != nil {
		return nil, err
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage.ShaderStageCreateInfo,
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	if err := check(vk.CreateComputePipelines(context.Device.LogicalDevice, context.PipelineCache, 1,
		[]vk.ComputePipelineCreateInfo{createInfo}, context.Allocator, pipelines), "vkCreateComputePipelines"); err != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout, context.Allocator)
		return nil, err
	}

	core.LogDebug("compute pipeline %s created", config.Name)
	return &metadata.ComputePipeline{
		Config: config,
		InternalData: &VulkanPipeline{
			Handle:             pipelines[0],
			Layout:             layout,
			PushConstantStages: pushStages,
		},
	}, nil
}

func (vr *VulkanBackend) ComputePipelineDestroy(pipeline *metadata.ComputePipeline) {
	if pipeline == nil || pipeline.InternalData == nil {
		return
	}
	vulkanComputePipeline(pipeline).destroy(vr.context)
	pipeline.InternalData = nil
}

func (pipeline *VulkanPipeline) destroy(context *VulkanContext) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
	if pipeline.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.Layout, context.Allocator)
		pipeline.Layout = vk.NullPipelineLayout
	}
}
