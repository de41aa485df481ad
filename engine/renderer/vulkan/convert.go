package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

var imageFormats = map[metadata.ImageFormat]vk.Format{
	metadata.IMAGE_FORMAT_UNDEFINED:          vk.FormatUndefined,
	metadata.IMAGE_FORMAT_RGBA8_UNORM:        vk.FormatR8g8b8a8Unorm,
	metadata.IMAGE_FORMAT_RGBA8_SRGB:         vk.FormatR8g8b8a8Srgb,
	metadata.IMAGE_FORMAT_BGRA8_SRGB:         vk.FormatB8g8r8a8Srgb,
	metadata.IMAGE_FORMAT_RGBA16_SFLOAT:      vk.FormatR16g16b16a16Sfloat,
	metadata.IMAGE_FORMAT_R16_SFLOAT:         vk.FormatR16Sfloat,
	metadata.IMAGE_FORMAT_R32_SFLOAT:         vk.FormatR32Sfloat,
	metadata.IMAGE_FORMAT_D32_SFLOAT:         vk.FormatD32Sfloat,
	metadata.IMAGE_FORMAT_D32_SFLOAT_S8_UINT: vk.FormatD32SfloatS8Uint,
	metadata.IMAGE_FORMAT_D24_UNORM_S8_UINT:  vk.FormatD24UnormS8Uint,
}

func toVkFormat(format metadata.ImageFormat) vk.Format {
	if f, ok := imageFormats[format]; ok {
		return f
	}
	return vk.FormatUndefined
}

// toImageFormat is the inverse of toVkFormat. Formats the renderer never
// allocates map to IMAGE_FORMAT_UNDEFINED.
func toImageFormat(format vk.Format) metadata.ImageFormat {
	for k, v := range imageFormats {
		if v == format {
			return k
		}
	}
	return metadata.IMAGE_FORMAT_UNDEFINED
}

func toVkImageUsage(usage metadata.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if usage&metadata.IMAGE_USAGE_TRANSFER_SRC != 0 {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if usage&metadata.IMAGE_USAGE_TRANSFER_DST != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	if usage&metadata.IMAGE_USAGE_SAMPLED != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if usage&metadata.IMAGE_USAGE_STORAGE != 0 {
		flags |= vk.ImageUsageStorageBit
	}
	if usage&metadata.IMAGE_USAGE_COLOUR_ATTACHMENT != 0 {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if usage&metadata.IMAGE_USAGE_DEPTH_STENCIL_ATTACHMENT != 0 {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}
	if usage&metadata.IMAGE_USAGE_TRANSIENT_ATTACHMENT != 0 {
		flags |= vk.ImageUsageTransientAttachmentBit
	}
	return vk.ImageUsageFlags(flags)
}

func toVkAspect(aspect metadata.ImageAspect) vk.ImageAspectFlags {
	var flags vk.ImageAspectFlagBits
	if aspect&metadata.IMAGE_ASPECT_COLOUR != 0 {
		flags |= vk.ImageAspectColorBit
	}
	if aspect&metadata.IMAGE_ASPECT_DEPTH != 0 {
		flags |= vk.ImageAspectDepthBit
	}
	return vk.ImageAspectFlags(flags)
}

func toVkLayout(layout metadata.ImageLayout) vk.ImageLayout {
	switch layout {
	case metadata.IMAGE_LAYOUT_GENERAL:
		return vk.ImageLayoutGeneral
	case metadata.IMAGE_LAYOUT_COLOUR_ATTACHMENT:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.IMAGE_LAYOUT_SHADER_READ_ONLY:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.IMAGE_LAYOUT_TRANSFER_SRC:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.IMAGE_LAYOUT_TRANSFER_DST:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.IMAGE_LAYOUT_PRESENT_SRC:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

// layoutAccess returns the access mask and pipeline stage that reads or
// writes an image while it sits in layout.
func layoutAccess(layout metadata.ImageLayout) (vk.AccessFlagBits, vk.PipelineStageFlagBits) {
	switch layout {
	case metadata.IMAGE_LAYOUT_GENERAL:
		return vk.AccessShaderReadBit | vk.AccessShaderWriteBit, vk.PipelineStageComputeShaderBit
	case metadata.IMAGE_LAYOUT_COLOUR_ATTACHMENT:
		return vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit, vk.PipelineStageColorAttachmentOutputBit
	case metadata.IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT:
		return vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit,
			vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	case metadata.IMAGE_LAYOUT_SHADER_READ_ONLY:
		return vk.AccessShaderReadBit, vk.PipelineStageFragmentShaderBit | vk.PipelineStageComputeShaderBit
	case metadata.IMAGE_LAYOUT_TRANSFER_SRC:
		return vk.AccessTransferReadBit, vk.PipelineStageTransferBit
	case metadata.IMAGE_LAYOUT_TRANSFER_DST:
		return vk.AccessTransferWriteBit, vk.PipelineStageTransferBit
	case metadata.IMAGE_LAYOUT_PRESENT_SRC:
		return 0, vk.PipelineStageBottomOfPipeBit
	}
	return 0, vk.PipelineStageTopOfPipeBit
}

func toVkSamples(samples uint32) vk.SampleCountFlagBits {
	if samples == 0 {
		return vk.SampleCount1Bit
	}
	// The sample count bits carry the count as their value.
	return vk.SampleCountFlagBits(samples)
}

func toVkLoadOp(op metadata.AttachmentLoadOperation) vk.AttachmentLoadOp {
	switch op {
	case metadata.ATTACHMENT_LOAD_OPERATION_CLEAR:
		return vk.AttachmentLoadOpClear
	case metadata.ATTACHMENT_LOAD_OPERATION_LOAD:
		return vk.AttachmentLoadOpLoad
	}
	return vk.AttachmentLoadOpDontCare
}

func toVkStoreOp(op metadata.AttachmentStoreOperation) vk.AttachmentStoreOp {
	if op == metadata.ATTACHMENT_STORE_OPERATION_STORE {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

func toVkDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	switch t {
	case metadata.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER:
		return vk.DescriptorTypeCombinedImageSampler
	case metadata.DESCRIPTOR_TYPE_STORAGE_IMAGE:
		return vk.DescriptorTypeStorageImage
	}
	return vk.DescriptorTypeUniformBuffer
}

func toVkShaderStages(stages metadata.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if stages&metadata.SHADER_STAGE_VERTEX != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if stages&metadata.SHADER_STAGE_FRAGMENT != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	if stages&metadata.SHADER_STAGE_COMPUTE != 0 {
		flags |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(flags)
}

func toVkCullMode(mode metadata.CullMode) vk.CullModeFlags {
	switch mode {
	case metadata.CULL_MODE_BACK:
		return vk.CullModeFlags(vk.CullModeBackBit)
	case metadata.CULL_MODE_FRONT:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

func toVkCompareOp(op metadata.CompareOperation) vk.CompareOp {
	switch op {
	case metadata.COMPARE_OPERATION_LESS_OR_EQUAL:
		return vk.CompareOpLessOrEqual
	case metadata.COMPARE_OPERATION_ALWAYS:
		return vk.CompareOpAlways
	}
	return vk.CompareOpLess
}

func toVkTopology(topology metadata.PrimitiveTopology) vk.PrimitiveTopology {
	if topology == metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_STRIP {
		return vk.PrimitiveTopologyTriangleStrip
	}
	return vk.PrimitiveTopologyTriangleList
}

func toVkFilter(filter metadata.SamplerFilter) vk.Filter {
	if filter == metadata.SAMPLER_FILTER_NEAREST {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func toVkAddressMode(mode metadata.SamplerAddressMode) vk.SamplerAddressMode {
	switch mode {
	case metadata.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE:
		return vk.SamplerAddressModeClampToEdge
	case metadata.SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER:
		return vk.SamplerAddressModeClampToBorder
	}
	return vk.SamplerAddressModeRepeat
}

func toVkBufferUsage(usage metadata.BufferUsage) vk.BufferUsageFlags {
	switch usage {
	case metadata.BUFFER_USAGE_VERTEX:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit)
	case metadata.BUFFER_USAGE_INDEX:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit | vk.BufferUsageTransferDstBit)
	case metadata.BUFFER_USAGE_UNIFORM:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit | vk.BufferUsageTransferDstBit)
	}
	return vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
}
