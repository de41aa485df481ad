package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type VulkanRenderpass struct {
	Handle          vk.RenderPass
	ColourCount     uint32
	HasDepth        bool
	AttachmentCount uint32
}

// RenderPassCreate builds a single subpass render pass. Colour attachments are
// referenced in order, resolve attachments pair with them in the same order.
func (vr *VulkanBackend) RenderPassCreate(config metadata.RenderPassConfig) (*metadata.RenderPass, error) {
	context := vr.context
	outRenderpass := &VulkanRenderpass{
		AttachmentCount: uint32(len(config.Attachments)),
	}

	attachmentDescriptions := make([]vk.AttachmentDescription, 0, len(config.Attachments))
	var colourRefs, resolveRefs []vk.AttachmentReference
	var depthRef *vk.AttachmentReference

	for i, attachment := range config.Attachments {
		format := toVkFormat(attachment.Format)
		if format == vk.FormatUndefined {
			err := fmt.Errorf("render pass %s: attachment %d has no usable format", config.Name, i)
			core.LogError(err.Error())
			return nil, err
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         format,
			Samples:        toVkSamples(attachment.Samples),
			LoadOp:         toVkLoadOp(attachment.Load),
			StoreOp:        toVkStoreOp(attachment.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  toVkLayout(attachment.InitialLayout),
			FinalLayout:    toVkLayout(attachment.FinalLayout),
		})

		switch attachment.Role {
		case metadata.ATTACHMENT_ROLE_COLOUR:
			colourRefs = append(colourRefs, vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		case metadata.ATTACHMENT_ROLE_RESOLVE:
			resolveRefs = append(resolveRefs, vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		case metadata.ATTACHMENT_ROLE_DEPTH:
			if depthRef != nil {
				err := fmt.Errorf("render pass %s: more than one depth attachment", config.Name)
				core.LogError(err.Error())
				return nil, err
			}
			depthRef = &vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		}
	}

	if len(resolveRefs) > 0 && len(resolveRefs) != len(colourRefs) {
		err := fmt.Errorf("render pass %s: %d resolve attachments for %d colour attachments", config.Name, len(resolveRefs), len(colourRefs))
		core.LogError(err.Error())
		return nil, err
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colourRefs)),
		PColorAttachments:       colourRefs,
		PResolveAttachments:     resolveRefs,
		PDepthStencilAttachment: depthRef,
	}
	outRenderpass.ColourCount = uint32(len(colourRefs))
	outRenderpass.HasDepth = depthRef != nil

	// Previous work writing or sampling the attachments finishes before this pass, and
	// whatever follows may sample what this pass wrote.
	attachmentStages := vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	attachmentAccess := vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit
	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(attachmentStages | vk.PipelineStageFragmentShaderBit | vk.PipelineStageComputeShaderBit),
			SrcAccessMask: vk.AccessFlags(attachmentAccess | vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
			DstStageMask:  vk.PipelineStageFlags(attachmentStages),
			DstAccessMask: vk.AccessFlags(attachmentAccess | vk.AccessColorAttachmentReadBit | vk.AccessDepthStencilAttachmentReadBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(attachmentStages),
			SrcAccessMask: vk.AccessFlags(attachmentAccess),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit | vk.PipelineStageComputeShaderBit | vk.PipelineStageTransferBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessTransferReadBit),
		},
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var handle vk.RenderPass
	if err := check(vk.CreateRenderPass(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle), "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	outRenderpass.Handle = handle

	return &metadata.RenderPass{Config: config, InternalData: outRenderpass}, nil
}

func (vr *VulkanBackend) RenderPassDestroy(pass *metadata.RenderPass) {
	if pass == nil || pass.InternalData == nil {
		return
	}
	rp := pass.InternalData.(*VulkanRenderpass)
	if rp.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(vr.context.Device.LogicalDevice, rp.Handle, vr.context.Allocator)
		rp.Handle = vk.NullRenderPass
	}
	pass.InternalData = nil
}
