package vulkan

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFormatRoundTrip(t *testing.T) {
	for format := range imageFormats {
		assert.Equal(t, format, toImageFormat(toVkFormat(format)), "format %d", format)
	}
	assert.Equal(t, vk.FormatUndefined, toVkFormat(metadata.ImageFormat(999)))
	assert.Equal(t, metadata.IMAGE_FORMAT_UNDEFINED, toImageFormat(vk.FormatBc1RgbUnormBlock))
}

func TestLayoutAccessOrdersTransfers(t *testing.T) {
	access, stage := layoutAccess(metadata.IMAGE_LAYOUT_TRANSFER_DST)
	assert.Equal(t, vk.AccessTransferWriteBit, access)
	assert.Equal(t, vk.PipelineStageTransferBit, stage)

	access, stage = layoutAccess(metadata.IMAGE_LAYOUT_SHADER_READ_ONLY)
	assert.Equal(t, vk.AccessShaderReadBit, access)
	assert.NotZero(t, stage&vk.PipelineStageFragmentShaderBit)

	access, stage = layoutAccess(metadata.IMAGE_LAYOUT_UNDEFINED)
	assert.Zero(t, access)
	assert.Equal(t, vk.PipelineStageTopOfPipeBit, stage)
}

func TestToVkSamples(t *testing.T) {
	assert.Equal(t, vk.SampleCount1Bit, toVkSamples(0))
	assert.Equal(t, vk.SampleCount1Bit, toVkSamples(1))
	assert.Equal(t, vk.SampleCount4Bit, toVkSamples(4))
	assert.Equal(t, vk.SampleCount8Bit, toVkSamples(8))
}

func TestToVkBufferUsage(t *testing.T) {
	vertex := vk.BufferUsageFlagBits(toVkBufferUsage(metadata.BUFFER_USAGE_VERTEX))
	assert.NotZero(t, vertex&vk.BufferUsageVertexBufferBit)
	assert.NotZero(t, vertex&vk.BufferUsageTransferDstBit)

	staging := vk.BufferUsageFlagBits(toVkBufferUsage(metadata.BUFFER_USAGE_STAGING))
	assert.Equal(t, vk.BufferUsageTransferSrcBit, staging)
}

func TestToVkShaderStages(t *testing.T) {
	flags := vk.ShaderStageFlagBits(toVkShaderStages(metadata.SHADER_STAGE_VERTEX | metadata.SHADER_STAGE_FRAGMENT))
	assert.Equal(t, vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit, flags)
}

func TestVulkanResult(t *testing.T) {
	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorOutOfDate))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorDeviceLost))

	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Contains(t, VulkanResultString(vk.Success, true), "successfully")
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))
	assert.Equal(t, "\x00", VulkanSafeString(""))

	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0])
}

func TestFindFirstZeroInByteArray(t *testing.T) {
	assert.Equal(t, 3, FindFirstZeroInByteArray([]byte{'a', 'b', 'c', 0, 'd'}))
	assert.Equal(t, 2, FindFirstZeroInByteArray([]byte{'a', 'b'}))
}

func TestSpirvWords(t *testing.T) {
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code[0:4], 0x07230203)
	binary.LittleEndian.PutUint32(code[4:8], 0x00010000)

	words := spirvWords(code)
	require.Len(t, words, 2)
	assert.Equal(t, uint32(0x07230203), words[0])
	assert.Nil(t, spirvWords(nil))
}
