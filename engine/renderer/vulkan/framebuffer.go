package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func (vr *VulkanBackend) FramebufferCreate(config metadata.FramebufferConfig) (*metadata.Framebuffer, error) {
	if config.Pass == nil || config.Pass.InternalData == nil {
		err := fmt.Errorf("framebuffer %s: render pass is not created", config.Name)
		core.LogError(err.Error())
		return nil, err
	}
	renderpass := config.Pass.InternalData.(*VulkanRenderpass)
	if uint32(len(config.Attachments)) != renderpass.AttachmentCount {
		err := fmt.Errorf("framebuffer %s: %d attachments for a render pass with %d", config.Name, len(config.Attachments), renderpass.AttachmentCount)
		core.LogError(err.Error())
		return nil, err
	}

	outFramebuffer := &VulkanFramebuffer{
		Attachments: make([]vk.ImageView, len(config.Attachments)),
		Renderpass:  renderpass,
	}
	for i, image := range config.Attachments {
		outFramebuffer.Attachments[i] = vulkanImage(image).View
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           config.Width,
		Height:          config.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := check(vk.CreateFramebuffer(vr.context.Device.LogicalDevice, &framebufferCreateInfo, vr.context.Allocator, &handle), "vkCreateFramebuffer"); err != nil {
		return nil, err
	}
	outFramebuffer.Handle = handle
	return &metadata.Framebuffer{Config: config, InternalData: outFramebuffer}, nil
}

func (vr *VulkanBackend) FramebufferDestroy(framebuffer *metadata.Framebuffer) {
	if framebuffer == nil || framebuffer.InternalData == nil {
		return
	}
	vfb := framebuffer.InternalData.(*VulkanFramebuffer)
	vk.DestroyFramebuffer(vr.context.Device.LogicalDevice, vfb.Handle, vr.context.Allocator)
	vfb.Attachments = nil
	vfb.Handle = vk.NullFramebuffer
	vfb.Renderpass = nil
	framebuffer.InternalData = nil
}
