package vulkan

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/platform"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// VulkanBackend implements metadata.RendererBackend on top of goki/vulkan.
// Frames in flight match the swapchain image count.
type VulkanBackend struct {
	platform *platform.Platform
	config   config.RendererConfig
	context  *VulkanContext

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32
	framesInFlight          uint32
}

var _ metadata.RendererBackend = (*VulkanBackend)(nil)

func NewVulkanBackend(p *platform.Platform, cfg *config.EngineConfig) (*VulkanBackend, error) {
	vr := &VulkanBackend{
		platform: p,
		config:   cfg.Renderer,
		context: &VulkanContext{
			Allocator: nil,
			queues:    NewVulkanLockPool(),
		},
	}
	if err := vr.initialize(cfg.Application.Name); err != nil {
		vr.Shutdown()
		return nil, err
	}
	return vr, nil
}

func (vr *VulkanBackend) initialize(appName string) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogFatal(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vk: %s", err)
		return err
	}

	if err := vr.createInstance(appName); err != nil {
		return err
	}

	if vr.config.Debug {
		if err := vr.createDebugCallback(); err != nil {
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		err = fmt.Errorf("vkCreateWindowSurface failed with %s", err)
		core.LogError(err.Error())
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	vr.context.FramebufferWidth, vr.context.FramebufferHeight = vr.platform.FramebufferSize()
	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight, 0, vr.config.VSync)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc
	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height
	vr.framesInFlight = sc.ImageCount

	if err := createDescriptorPool(vr.context); err != nil {
		return err
	}
	if err := createPipelineCache(vr.context, vr.config.PipelineCachePath); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully (%d frames in flight).", vr.framesInFlight)
	return nil
}

func (vr *VulkanBackend) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Penumbra"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := vr.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if vr.config.Debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	for _, ext := range requiredExtensions {
		core.LogDebug("Required extension: %s", ext)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers are only requested with the debug renderer.
	var layers []string
	if vr.config.Debug {
		layers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := checkValidationLayers(layers); err != nil {
			return err
		}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if err := check(vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance), "vkCreateInstance"); err != nil {
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayers(required []string) error {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, available), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}

	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			end := FindFirstZeroInByteArray(available[j].LayerName[:])
			if name == string(available[j].LayerName[:end]) {
				found = true
				break
			}
		}
		if !found {
			err := fmt.Errorf("required validation layer is missing: %s", name)
			core.LogError(err.Error())
			return err
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (vr *VulkanBackend) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := check(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg), "vkCreateDebugReportCallbackEXT"); err != nil {
		return err
	}
	vr.context.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func (vr *VulkanBackend) createCommandBuffers() error {
	vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.framesInFlight)
	for i := range vr.context.GraphicsCommandBuffers {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanBackend) createSyncObjects() error {
	ctx := vr.context
	ctx.ImageAvailableSemaphores = make([]vk.Semaphore, vr.framesInFlight)
	ctx.QueueCompleteSemaphores = make([]vk.Semaphore, vr.framesInFlight)
	ctx.InFlightFences = make([]*VulkanFence, vr.framesInFlight)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := uint32(0); i < vr.framesInFlight; i++ {
		if err := check(vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreCreateInfo, ctx.Allocator, &ctx.ImageAvailableSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}
		if err := check(vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreCreateInfo, ctx.Allocator, &ctx.QueueCompleteSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}
		// Signaled so the first wait on each frame slot returns immediately.
		f, err := NewFence(ctx, true)
		if err != nil {
			return err
		}
		ctx.InFlightFences[i] = f
	}

	// Not owned. Points at the in flight fence of the frame last using the image.
	ctx.ImagesInFlight = make([]*VulkanFence, ctx.Swapchain.ImageCount)
	return nil
}

// Shutdown saves the pipeline cache and destroys everything in reverse creation order.
func (vr *VulkanBackend) Shutdown() error {
	ctx := vr.context
	if ctx.Device != nil && ctx.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(ctx.Device.LogicalDevice)

		if err := savePipelineCache(ctx, vr.config.PipelineCachePath); err != nil {
			core.LogWarn("pipeline cache not saved: %s", err.Error())
		}

		for i := range ctx.InFlightFences {
			if ctx.ImageAvailableSemaphores[i] != vk.NullSemaphore {
				vk.DestroySemaphore(ctx.Device.LogicalDevice, ctx.ImageAvailableSemaphores[i], ctx.Allocator)
			}
			if ctx.QueueCompleteSemaphores[i] != vk.NullSemaphore {
				vk.DestroySemaphore(ctx.Device.LogicalDevice, ctx.QueueCompleteSemaphores[i], ctx.Allocator)
			}
			ctx.InFlightFences[i].FenceDestroy(ctx)
		}
		ctx.ImageAvailableSemaphores = nil
		ctx.QueueCompleteSemaphores = nil
		ctx.InFlightFences = nil
		ctx.ImagesInFlight = nil

		for _, cb := range ctx.GraphicsCommandBuffers {
			cb.Free(ctx, ctx.Device.GraphicsCommandPool)
		}
		ctx.GraphicsCommandBuffers = nil

		destroyPipelineCache(ctx)
		destroyDescriptorPool(ctx)

		if ctx.Swapchain != nil {
			ctx.Swapchain.SwapchainDestroy(ctx)
			ctx.Swapchain = nil
		}
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(ctx)

	if ctx.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	}
	if ctx.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(ctx.Instance, ctx.debugMessenger, ctx.Allocator)
		ctx.debugMessenger = vk.NullDebugReportCallback
	}
	if ctx.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(ctx.Instance, ctx.Allocator)
		ctx.Instance = nil
	}
	return nil
}

// Resized records the new framebuffer size. The swapchain is recreated at the
// start of the next frame.
func (vr *VulkanBackend) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++

	core.LogInfo("Vulkan renderer backend resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
}

func (vr *VulkanBackend) BeginFrame(frame uint32) (metadata.CommandBuffer, uint32, error) {
	ctx := vr.context
	if ctx.RecreatingSwapchain {
		if err := vr.WaitIdle(); err != nil {
			return nil, 0, err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return nil, 0, core.ErrSwapchainBooting
	}

	if ctx.FramebufferSizeGeneration != ctx.FramebufferSizeLastGeneration {
		if err := vr.recreateSwapchain(); err != nil {
			return nil, 0, err
		}
		core.LogInfo("Resized, booting.")
		return nil, 0, core.ErrSwapchainBooting
	}

	// Wait until the previous use of this frame slot has finished on the device.
	if !ctx.InFlightFences[frame].FenceWait(ctx, math.MaxUint64) {
		err := fmt.Errorf("in-flight fence wait failure on frame %d", frame)
		core.LogWarn(err.Error())
		return nil, 0, err
	}

	imageIndex, err := ctx.Swapchain.SwapchainAcquireNextImageIndex(ctx, math.MaxUint64, ctx.ImageAvailableSemaphores[frame], vk.NullFence)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			if rerr := vr.recreateSwapchain(); rerr != nil {
				return nil, 0, rerr
			}
		}
		return nil, 0, err
	}
	ctx.ImageIndex = imageIndex

	cb := ctx.GraphicsCommandBuffers[frame]
	if err := check(vk.ResetCommandBuffer(cb.Handle, 0), "vkResetCommandBuffer"); err != nil {
		return nil, 0, err
	}
	cb.Reset()
	if err := cb.Begin(false, false, false); err != nil {
		return nil, 0, err
	}
	return cb, imageIndex, nil
}

func (vr *VulkanBackend) EndFrame(frame uint32) error {
	ctx := vr.context
	cb := ctx.GraphicsCommandBuffers[frame]
	if err := cb.End(); err != nil {
		return err
	}

	// Make sure the previous frame is not using this image.
	if f := ctx.ImagesInFlight[ctx.ImageIndex]; f != nil {
		f.FenceWait(ctx, math.MaxUint64)
	}
	ctx.ImagesInFlight[ctx.ImageIndex] = ctx.InFlightFences[frame]

	if err := ctx.InFlightFences[frame].FenceReset(ctx); err != nil {
		return err
	}

	// Colour attachment writes wait for the image to be released by the presentation engine.
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{ctx.ImageAvailableSemaphores[frame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{ctx.QueueCompleteSemaphores[frame]},
	}
	if err := ctx.queues.SafeQueueCall(uint32(ctx.Device.GraphicsQueueIndex), func() error {
		return check(vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, ctx.InFlightFences[frame].Handle), "vkQueueSubmit")
	}); err != nil {
		return err
	}
	cb.UpdateSubmitted()

	return ctx.queues.SafeQueueCall(uint32(ctx.Device.PresentQueueIndex), func() error {
		return ctx.Swapchain.SwapchainPresent(ctx, ctx.Device.PresentQueue, ctx.QueueCompleteSemaphores[frame], ctx.ImageIndex)
	})
}

func (vr *VulkanBackend) ImmediateSubmit(record func(cmd metadata.CommandBuffer)) error {
	ctx := vr.context
	cb, err := AllocateAndBeginSingleUse(ctx, ctx.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	record(cb)
	return cb.EndSingleUse(ctx, ctx.Device.GraphicsCommandPool, ctx.Device.GraphicsQueue, uint32(ctx.Device.GraphicsQueueIndex))
}

func (vr *VulkanBackend) WaitIdle() error {
	return check(vk.DeviceWaitIdle(vr.context.Device.LogicalDevice), "vkDeviceWaitIdle")
}

func (vr *VulkanBackend) SwapchainImageCount() uint32 {
	return vr.framesInFlight
}

func (vr *VulkanBackend) SwapchainImages() []*metadata.Image {
	return vr.context.Swapchain.Targets
}

func (vr *VulkanBackend) SwapchainFormat() metadata.ImageFormat {
	return toImageFormat(vr.context.Swapchain.ImageFormat.Format)
}

func (vr *VulkanBackend) FramebufferSize() (uint32, uint32) {
	return vr.context.FramebufferWidth, vr.context.FramebufferHeight
}

func (vr *VulkanBackend) DepthFormat() metadata.ImageFormat {
	return toImageFormat(vr.context.Device.DepthFormat)
}

// recreateSwapchain rebuilds the swapchain for the current window size. A
// minimized window keeps the old swapchain and the generation mismatch, so
// the next frame tries again.
func (vr *VulkanBackend) recreateSwapchain() error {
	ctx := vr.context
	if ctx.RecreatingSwapchain {
		core.LogDebug("recreateSwapchain called when already recreating. Booting.")
		return nil
	}

	width, height := vr.cachedFramebufferWidth, vr.cachedFramebufferHeight
	if vr.platform != nil && vr.platform.Window != nil {
		width, height = vr.platform.FramebufferSize()
	}
	if width == 0 || height == 0 {
		core.LogDebug("recreateSwapchain called when window is < 1 in a dimension. Booting.")
		return nil
	}

	ctx.RecreatingSwapchain = true
	defer func() { ctx.RecreatingSwapchain = false }()

	if err := vr.WaitIdle(); err != nil {
		return err
	}

	if err := DeviceQuerySwapchainSupport(ctx.Device.PhysicalDevice, ctx.Surface, ctx.Device.SwapchainSupport); err != nil {
		return err
	}

	sc, err := ctx.Swapchain.SwapchainRecreate(ctx, width, height, vr.config.VSync)
	if err != nil {
		return err
	}
	ctx.Swapchain = sc
	ctx.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)

	ctx.FramebufferWidth = sc.Extent.Width
	ctx.FramebufferHeight = sc.Extent.Height
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0
	ctx.FramebufferSizeLastGeneration = ctx.FramebufferSizeGeneration
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
