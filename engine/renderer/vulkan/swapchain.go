package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
	pmath "github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	ImageCount  uint32
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView

	// The swapchain images as seen by the renderer. They are owned by the swapchain.
	Targets []*metadata.Image
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

// SwapchainCreate creates a swapchain with at least minImageCount images. Zero
// lets the surface capabilities decide.
func SwapchainCreate(context *VulkanContext, width, height, minImageCount uint32, vsync bool) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height, minImageCount, vsync, vk.NullSwapchain)
}

// SwapchainRecreate builds a replacement swapchain keeping the image count and destroys the old one.
func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	sc, err := createSwapchain(context, width, height, vs.ImageCount, vsync, vs.Handle)
	vs.destroySwapchain(context)
	if err != nil {
		return nil, err
	}
	if sc.ImageCount != vs.ImageCount {
		core.LogWarn("swapchain image count changed from %d to %d", vs.ImageCount, sc.ImageCount)
	}
	return sc, nil
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

// SwapchainAcquireNextImageIndex returns core.ErrSwapchainBooting when the
// swapchain is out of date and has to be recreated before rendering.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, fence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		context.FramebufferSizeGeneration++
		return 0, core.ErrSwapchainBooting
	}
	return 0, check(result, "vkAcquireNextImageKHR")
}

func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		// Recreated at the start of the next frame.
		context.FramebufferSizeGeneration++
		return nil
	}
	return check(result, "vkQueuePresentKHR")
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	preferred := []vk.Format{vk.FormatB8g8r8a8Srgb, vk.FormatR8g8b8a8Srgb}
	for _, want := range preferred {
		for _, format := range formats {
			if format.Format == want && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				return format
			}
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		// FIFO is the only mode every implementation supports.
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	for _, mode := range modes {
		if mode == vk.PresentModeImmediate {
			return mode
		}
	}
	return vk.PresentModeFifo
}

func createSwapchain(context *VulkanContext, width, height, minImageCount uint32, vsync bool, oldSwapchain vk.Swapchain) (*VulkanSwapchain, error) {
	support := context.Device.SwapchainSupport
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, support); err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 {
		err := fmt.Errorf("surface reports no formats")
		core.LogError(err.Error())
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		Extent:      vk.Extent2D{Width: width, Height: height},
	}
	presentMode := choosePresentMode(support.PresentModes, vsync)

	capabilities := support.Capabilities
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		swapchain.Extent = capabilities.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	swapchain.Extent.Width = pmath.Clamp(swapchain.Extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	swapchain.Extent.Height = pmath.Clamp(swapchain.Extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)

	imageCount := minImageCount
	if imageCount == 0 {
		imageCount = capabilities.MinImageCount + 1
	}
	if imageCount < capabilities.MinImageCount {
		imageCount = capabilities.MinImageCount
	}
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if err := check(vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle), "vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	if err := check(vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.destroySwapchain(context)
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	swapchain.Targets = make([]*metadata.Image, swapchain.ImageCount)
	if err := check(vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.destroySwapchain(context)
		return nil, err
	}

	for i := range swapchain.Images {
		view, err := createImageView(context, swapchain.Images[i], swapchain.ImageFormat.Format, vk.ImageViewType2d, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			swapchain.destroySwapchain(context)
			return nil, err
		}
		swapchain.Views[i] = view
		swapchain.Targets[i] = &metadata.Image{
			Config: metadata.ImageConfig{
				Name:    fmt.Sprintf("swapchain_%d", i),
				Type:    metadata.IMAGE_TYPE_2D,
				Format:  toImageFormat(swapchain.ImageFormat.Format),
				Width:   swapchain.Extent.Width,
				Height:  swapchain.Extent.Height,
				Samples: 1,
				Usage:   metadata.IMAGE_USAGE_COLOUR_ATTACHMENT,
				Aspect:  metadata.IMAGE_ASPECT_COLOUR,
			},
			InternalData: &VulkanImage{
				Handle:   swapchain.Images[i],
				View:     view,
				Width:    swapchain.Extent.Width,
				Height:   swapchain.Extent.Height,
				Layers:   1,
				Aspect:   vk.ImageAspectFlags(vk.ImageAspectColorBit),
				Borrowed: true,
			},
		}
	}

	core.LogInfo("Swapchain created (%dx%d, %d images).", swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount)
	return swapchain, nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	// Only destroy the views, not the images, since those are owned by the swapchain.
	for i := range vs.Views {
		if vs.Views[i] != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
		}
	}
	vs.Views = nil
	vs.Targets = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
