package vulkan

import (
	"errors"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/pipelinecache"
)

func pipelineCacheKey(device *VulkanDevice) pipelinecache.Key {
	return pipelinecache.Key{
		VendorID: device.Properties.VendorID,
		DeviceID: device.Properties.DeviceID,
		UUID:     uuid.UUID(device.Properties.PipelineCacheUUID),
	}
}

// createPipelineCache seeds the device pipeline cache from path. A missing,
// stale or rejected file leaves an empty cache.
func createPipelineCache(context *VulkanContext, path string) error {
	key := pipelineCacheKey(context.Device)

	var data []byte
	if path != "" {
		var err error
		data, err = pipelinecache.Load(path, key)
		if err != nil && !errors.Is(err, core.ErrPipelineCacheStale) {
			core.LogWarn("starting with an empty pipeline cache: %s", err.Error())
		}
	}

	createInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if len(data) > 0 {
		createInfo.InitialDataSize = uint64(len(data))
		createInfo.PInitialData = unsafe.Pointer(&data[0])
	}

	var cache vk.PipelineCache
	result := vk.CreatePipelineCache(context.Device.LogicalDevice, &createInfo, context.Allocator, &cache)
	if !VulkanResultIsSuccess(result) && len(data) > 0 {
		core.LogWarn("driver rejected pipeline cache %s (%s), creating an empty one", path, VulkanResultString(result, false))
		createInfo.InitialDataSize = 0
		createInfo.PInitialData = nil
		result = vk.CreatePipelineCache(context.Device.LogicalDevice, &createInfo, context.Allocator, &cache)
	}
	if err := check(result, "vkCreatePipelineCache"); err != nil {
		return err
	}
	context.PipelineCache = cache
	core.LogDebug("pipeline cache created for %s (%d bytes seeded)", key, len(data))
	return nil
}

// savePipelineCache writes the device pipeline cache to path.
func savePipelineCache(context *VulkanContext, path string) error {
	if path == "" || context.PipelineCache == vk.NullPipelineCache {
		return nil
	}
	var size uint64
	if err := check(vk.GetPipelineCacheData(context.Device.LogicalDevice, context.PipelineCache, &size, nil), "vkGetPipelineCacheData"); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	data := make([]byte, size)
	if err := check(vk.GetPipelineCacheData(context.Device.LogicalDevice, context.PipelineCache, &size, unsafe.Pointer(&data[0])), "vkGetPipelineCacheData"); err != nil {
		return err
	}
	if err := pipelinecache.Save(path, data[:size]); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("pipeline cache saved to %s (%d bytes)", path, size)
	return nil
}

func destroyPipelineCache(context *VulkanContext) {
	if context.PipelineCache != vk.NullPipelineCache {
		vk.DestroyPipelineCache(context.Device.LogicalDevice, context.PipelineCache, context.Allocator)
		context.PipelineCache = vk.NullPipelineCache
	}
}
