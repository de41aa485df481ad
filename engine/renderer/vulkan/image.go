package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Layers uint32
	Aspect vk.ImageAspectFlags
	// Swapchain images are borrowed and never destroyed through the backend.
	Borrowed bool
}

func vulkanImage(image *metadata.Image) *VulkanImage {
	return image.InternalData.(*VulkanImage)
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, viewType vk.ImageViewType, aspect vk.ImageAspectFlags, layers uint32) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}
	var view vk.ImageView
	if err := check(vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view), "vkCreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (vr *VulkanBackend) ImageCreate(config metadata.ImageConfig) (*metadata.Image, error) {
	context := vr.context
	format := toVkFormat(config.Format)
	if format == vk.FormatUndefined {
		err := fmt.Errorf("image %s: unsupported format %d", config.Name, config.Format)
		core.LogError(err.Error())
		return nil, err
	}

	layers := config.Layers()
	img := &VulkanImage{
		Width:  config.Width,
		Height: config.Height,
		Layers: layers,
		Aspect: toVkAspect(config.Aspect),
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   layers,
		Samples:       toVkSamples(config.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         toVkImageUsage(config.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	viewType := vk.ImageViewType2d
	if config.Type == metadata.IMAGE_TYPE_CUBE {
		imageCreateInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
		viewType = vk.ImageViewTypeCube
	}

	if err := check(vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &img.Handle), "vkCreateImage"); err != nil {
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, img.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if memoryType == -1 {
		vr.destroyVulkanImage(img)
		err := fmt.Errorf("image %s: required memory type not found", config.Name)
		core.LogError(err.Error())
		return nil, err
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if err := check(vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &img.Memory), "vkAllocateMemory"); err != nil {
		vr.destroyVulkanImage(img)
		return nil, err
	}
	if err := check(vk.BindImageMemory(context.Device.LogicalDevice, img.Handle, img.Memory, 0), "vkBindImageMemory"); err != nil {
		vr.destroyVulkanImage(img)
		return nil, err
	}

	view, err := createImageView(context, img.Handle, format, viewType, img.Aspect, layers)
	if err != nil {
		vr.destroyVulkanImage(img)
		return nil, err
	}
	img.View = view

	return &metadata.Image{Config: config, InternalData: img}, nil
}

func (vr *VulkanBackend) ImageDestroy(image *metadata.Image) {
	if image == nil || image.InternalData == nil {
		return
	}
	img := vulkanImage(image)
	if img.Borrowed {
		return
	}
	vr.destroyVulkanImage(img)
	image.InternalData = nil
}

func (vr *VulkanBackend) destroyVulkanImage(img *VulkanImage) {
	device := vr.context.Device.LogicalDevice
	if img.View != vk.NullImageView {
		vk.DestroyImageView(device, img.View, vr.context.Allocator)
		img.View = vk.NullImageView
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, img.Memory, vr.context.Allocator)
		img.Memory = vk.NullDeviceMemory
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(device, img.Handle, vr.context.Allocator)
		img.Handle = vk.NullImage
	}
}

func (vr *VulkanBackend) ImageUpload(image *metadata.Image, pixels []byte) error {
	img := vulkanImage(image)
	if len(pixels) == 0 || len(pixels)%int(img.Layers) != 0 {
		err := fmt.Errorf("image %s: %d bytes cannot fill %d layers", image.Config.Name, len(pixels), img.Layers)
		core.LogError(err.Error())
		return err
	}
	layerSize := uint64(len(pixels)) / uint64(img.Layers)

	staging, err := vr.BufferCreate(metadata.BufferConfig{
		Name:        image.Config.Name + "_staging",
		Usage:       metadata.BUFFER_USAGE_STAGING,
		Size:        uint64(len(pixels)),
		HostVisible: true,
	})
	if err != nil {
		return err
	}
	defer vr.BufferDestroy(staging)
	if err := vr.BufferLoad(staging, pixels); err != nil {
		return err
	}

	regions := make([]vk.BufferImageCopy, img.Layers)
	for layer := uint32(0); layer < img.Layers; layer++ {
		regions[layer] = vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(uint64(layer) * layerSize),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     img.Aspect,
				MipLevel:       0,
				BaseArrayLayer: layer,
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: img.Width, Height: img.Height, Depth: 1},
		}
	}

	return vr.ImmediateSubmit(func(cmd metadata.CommandBuffer) {
		cmd.TransitionImageLayout(image, metadata.IMAGE_LAYOUT_UNDEFINED, metadata.IMAGE_LAYOUT_TRANSFER_DST, 0, img.Layers)
		vk.CmdCopyBufferToImage(cmd.(*VulkanCommandBuffer).Handle, vulkanBuffer(staging).Handle, img.Handle,
			vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
		cmd.TransitionImageLayout(image, metadata.IMAGE_LAYOUT_TRANSFER_DST, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, 0, img.Layers)
	})
}

func (vr *VulkanBackend) SamplerCreate(config metadata.SamplerConfig) (*metadata.Sampler, error) {
	filter := toVkFilter(config.Filter)
	addressMode := toVkAddressMode(config.AddressMode)
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		AddressModeU:            addressMode,
		AddressModeV:            addressMode,
		AddressModeW:            addressMode,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MaxLod:                  1,
	}
	if config.Compare {
		samplerInfo.CompareEnable = vk.True
		samplerInfo.CompareOp = vk.CompareOpLessOrEqual
	}
	if filter == vk.FilterLinear && vr.context.Device.Features.SamplerAnisotropy == vk.True {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = vr.context.Device.Properties.Limits.MaxSamplerAnisotropy
	}

	var sampler vk.Sampler
	if err := check(vk.CreateSampler(vr.context.Device.LogicalDevice, &samplerInfo, vr.context.Allocator, &sampler), "vkCreateSampler"); err != nil {
		return nil, err
	}
	return &metadata.Sampler{Config: config, InternalData: sampler}, nil
}

func (vr *VulkanBackend) SamplerDestroy(sampler *metadata.Sampler) {
	if sampler == nil || sampler.InternalData == nil {
		return
	}
	vk.DestroySampler(vr.context.Device.LogicalDevice, sampler.InternalData.(vk.Sampler), vr.context.Allocator)
	sampler.InternalData = nil
}
