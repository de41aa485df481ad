package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// VulkanCommandBuffer implements metadata.CommandBuffer.
type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	cb := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles), "vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	cb.Handle = handles[0]
	cb.State = COMMAND_BUFFER_STATE_READY

	return cb, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v == nil || v.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := check(vk.BeginCommandBuffer(v.Handle, &beginInfo), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := check(vk.EndCommandBuffer(v.Handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

// AllocateAndBeginSingleUse allocates a primary command buffer and starts recording into it.
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends recording, submits to the queue, waits for it and frees the command buffer.
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue, queueFamilyIndex uint32) error {
	defer v.Free(context, pool)

	if err := v.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	return context.queues.SafeQueueCall(queueFamilyIndex, func() error {
		if err := check(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence), "vkQueueSubmit"); err != nil {
			return err
		}
		return check(vk.QueueWaitIdle(queue), "vkQueueWaitIdle")
	})
}

func (v *VulkanCommandBuffer) BeginRenderPass(pass *metadata.RenderPass, framebuffer *metadata.Framebuffer, clearValues []metadata.ClearValue) {
	rp := pass.InternalData.(*VulkanRenderpass)
	fb := framebuffer.InternalData.(*VulkanFramebuffer)

	values := make([]vk.ClearValue, len(pass.Config.Attachments))
	for i, attachment := range pass.Config.Attachments {
		if i >= len(clearValues) {
			break
		}
		if attachment.Role == metadata.ATTACHMENT_ROLE_DEPTH {
			values[i] = vk.NewClearDepthStencil(clearValues[i].Depth, clearValues[i].Stencil)
		} else {
			values[i] = vk.NewClearValue(clearValues[i].Colour[:])
		}
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: fb.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: framebuffer.Config.Width, Height: framebuffer.Config.Height},
		},
		ClearValueCount: uint32(len(values)),
		PClearValues:    values,
	}
	vk.CmdBeginRenderPass(v.Handle, &beginInfo, vk.SubpassContentsInline)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *VulkanCommandBuffer) SetViewport(x, y, width, height float32) {
	viewport := vk.Viewport{
		X:        x,
		Y:        y,
		Width:    width,
		Height:   height,
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{viewport})
}

func (v *VulkanCommandBuffer) SetScissor(x, y int32, width, height uint32) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: x, Y: y},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline *metadata.Pipeline) {
	vk.CmdBindPipeline(v.Handle, vk.PipelineBindPointGraphics, vulkanPipeline(pipeline).Handle)
}

func (v *VulkanCommandBuffer) BindDescriptorSets(pipeline *metadata.Pipeline, firstSet uint32, sets ...*metadata.DescriptorSet) {
	handles := descriptorSetHandles(sets)
	vk.CmdBindDescriptorSets(v.Handle, vk.PipelineBindPointGraphics, vulkanPipeline(pipeline).Layout,
		firstSet, uint32(len(handles)), handles, 0, nil)
}

func (v *VulkanCommandBuffer) PushConstants(pipeline *metadata.Pipeline, data []byte) {
	if len(data) == 0 {
		return
	}
	p := vulkanPipeline(pipeline)
	vk.CmdPushConstants(v.Handle, p.Layout, p.PushConstantStages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (v *VulkanCommandBuffer) BindVertexBuffer(buffer *metadata.Buffer) {
	vk.CmdBindVertexBuffers(v.Handle, 0, 1, []vk.Buffer{vulkanBuffer(buffer).Handle}, []vk.DeviceSize{0})
}

func (v *VulkanCommandBuffer) BindIndexBuffer(buffer *metadata.Buffer) {
	vk.CmdBindIndexBuffer(v.Handle, vulkanBuffer(buffer).Handle, 0, vk.IndexTypeUint32)
}

func (v *VulkanCommandBuffer) Draw(vertexCount uint32) {
	vk.CmdDraw(v.Handle, vertexCount, 1, 0, 0)
}

func (v *VulkanCommandBuffer) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(v.Handle, indexCount, 1, 0, 0, 0)
}

func (v *VulkanCommandBuffer) BindComputePipeline(pipeline *metadata.ComputePipeline) {
	vk.CmdBindPipeline(v.Handle, vk.PipelineBindPointCompute, vulkanComputePipeline(pipeline).Handle)
}

func (v *VulkanCommandBuffer) BindComputeDescriptorSets(pipeline *metadata.ComputePipeline, sets ...*metadata.DescriptorSet) {
	handles := descriptorSetHandles(sets)
	vk.CmdBindDescriptorSets(v.Handle, vk.PipelineBindPointCompute, vulkanComputePipeline(pipeline).Layout,
		0, uint32(len(handles)), handles, 0, nil)
}

func (v *VulkanCommandBuffer) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(v.Handle, x, y, z)
}

func (v *VulkanCommandBuffer) TransitionImageLayout(image *metadata.Image, from, to metadata.ImageLayout, baseLayer, layerCount uint32) {
	img := vulkanImage(image)
	srcAccess, srcStage := layoutAccess(from)
	dstAccess, dstStage := layoutAccess(to)

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           toVkLayout(from),
		NewLayout:           toVkLayout(to),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     img.Aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
	vk.CmdPipelineBarrier(v.Handle, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (v *VulkanCommandBuffer) CopyImage(src, dst *metadata.Image, dstLayer uint32) {
	s := vulkanImage(src)
	d := vulkanImage(dst)
	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     s.Aspect,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     d.Aspect,
			MipLevel:       0,
			BaseArrayLayer: dstLayer,
			LayerCount:     1,
		},
		Extent: vk.Extent3D{Width: s.Width, Height: s.Height, Depth: 1},
	}
	vk.CmdCopyImage(v.Handle, s.Handle, vk.ImageLayoutTransferSrcOptimal, d.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{region})
}

func (v *VulkanCommandBuffer) ClearDepthImage(image *metadata.Image, depth float32) {
	img := vulkanImage(image)
	clear := vk.ClearDepthStencilValue{Depth: depth}
	subresourceRange := vk.ImageSubresourceRange{
		AspectMask:     img.Aspect,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     img.Layers,
	}
	vk.CmdClearDepthStencilImage(v.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, &clear, 1,
		[]vk.ImageSubresourceRange{subresourceRange})
}

func descriptorSetHandles(sets []*metadata.DescriptorSet) []vk.DescriptorSet {
	handles := make([]vk.DescriptorSet, len(sets))
	for i, set := range sets {
		handles[i] = set.InternalData.(vk.DescriptorSet)
	}
	return handles
}
