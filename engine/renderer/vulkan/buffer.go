package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	Size        uint64
	HostVisible bool
}

func vulkanBuffer(buffer *metadata.Buffer) *VulkanBuffer {
	return buffer.InternalData.(*VulkanBuffer)
}

func (vr *VulkanBackend) BufferCreate(config metadata.BufferConfig) (*metadata.Buffer, error) {
	context := vr.context
	if config.Size == 0 {
		err := fmt.Errorf("buffer %s: size must be greater than zero", config.Name)
		core.LogError(err.Error())
		return nil, err
	}

	buf := &VulkanBuffer{
		Size:        config.Size,
		HostVisible: config.HostVisible,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(config.Size),
		Usage:       toVkBufferUsage(config.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := check(vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buf.Handle), "vkCreateBuffer"); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buf.Handle, &requirements)
	requirements.Deref()

	properties := vk.MemoryPropertyDeviceLocalBit
	if config.HostVisible {
		properties = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if memoryType == -1 {
		vr.destroyVulkanBuffer(buf)
		err := fmt.Errorf("buffer %s: required memory type not found", config.Name)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if err := check(vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &buf.Memory), "vkAllocateMemory"); err != nil {
		vr.destroyVulkanBuffer(buf)
		return nil, err
	}
	if err := check(vk.BindBufferMemory(context.Device.LogicalDevice, buf.Handle, buf.Memory, 0), "vkBindBufferMemory"); err != nil {
		vr.destroyVulkanBuffer(buf)
		return nil, err
	}

	return &metadata.Buffer{Config: config, InternalData: buf}, nil
}

func (vr *VulkanBackend) BufferDestroy(buffer *metadata.Buffer) {
	if buffer == nil || buffer.InternalData == nil {
		return
	}
	vr.destroyVulkanBuffer(vulkanBuffer(buffer))
	buffer.InternalData = nil
}

func (vr *VulkanBackend) destroyVulkanBuffer(buf *VulkanBuffer) {
	device := vr.context.Device.LogicalDevice
	if buf.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, buf.Memory, vr.context.Allocator)
		buf.Memory = vk.NullDeviceMemory
	}
	if buf.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, buf.Handle, vr.context.Allocator)
		buf.Handle = vk.NullBuffer
	}
}

// BufferLoad replaces the buffer contents. Device local buffers go through a
// temporary staging buffer and a blocking copy.
func (vr *VulkanBackend) BufferLoad(buffer *metadata.Buffer, data []byte) error {
	buf := vulkanBuffer(buffer)
	if uint64(len(data)) > buf.Size {
		err := fmt.Errorf("buffer %s: %d bytes do not fit in %d", buffer.Config.Name, len(data), buf.Size)
		core.LogError(err.Error())
		return err
	}
	if len(data) == 0 {
		return nil
	}

	if buf.HostVisible {
		var ptr unsafe.Pointer
		if err := check(vk.MapMemory(vr.context.Device.LogicalDevice, buf.Memory, 0, vk.DeviceSize(len(data)), 0, &ptr), "vkMapMemory"); err != nil {
			return err
		}
		vk.Memcopy(ptr, data)
		vk.UnmapMemory(vr.context.Device.LogicalDevice, buf.Memory)
		return nil
	}

	staging, err := vr.BufferCreate(metadata.BufferConfig{
		Name:        buffer.Config.Name + "_staging",
		Usage:       metadata.BUFFER_USAGE_STAGING,
		Size:        uint64(len(data)),
		HostVisible: true,
	})
	if err != nil {
		return err
	}
	defer vr.BufferDestroy(staging)
	if err := vr.BufferLoad(staging, data); err != nil {
		return err
	}

	return vr.ImmediateSubmit(func(cmd metadata.CommandBuffer) {
		region := vk.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: vk.DeviceSize(len(data))}
		vk.CmdCopyBuffer(cmd.(*VulkanCommandBuffer).Handle, vulkanBuffer(staging).Handle, buf.Handle, 1, []vk.BufferCopy{region})
	})
}
