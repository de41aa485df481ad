package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// createDescriptorPool creates the pool every descriptor set of the renderer
// is allocated from. Sets can be freed individually.
func createDescriptorPool(context *VulkanContext) error {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: VULKAN_MAX_UNIFORM_BUFFERS},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: VULKAN_MAX_IMAGE_SAMPLERS},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: VULKAN_MAX_STORAGE_IMAGES},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       VULKAN_MAX_DESCRIPTOR_SETS,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	return check(vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &context.DescriptorPool), "vkCreateDescriptorPool")
}

func destroyDescriptorPool(context *VulkanContext) {
	if context.DescriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, context.DescriptorPool, context.Allocator)
		context.DescriptorPool = vk.NullDescriptorPool
	}
}

func (vr *VulkanBackend) DescriptorSetLayoutCreate(config metadata.DescriptorSetLayoutConfig) (*metadata.DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(config.Bindings))
	for i, b := range config.Bindings {
		count := b.Count
		if count == 0 {
			count = 1
		}
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  toVkDescriptorType(b.Type),
			DescriptorCount: count,
			StageFlags:      toVkShaderStages(b.Stages),
		}
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &layoutInfo, vr.context.Allocator, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	return &metadata.DescriptorSetLayout{Config: config, InternalData: layout}, nil
}

func (vr *VulkanBackend) DescriptorSetLayoutDestroy(layout *metadata.DescriptorSetLayout) {
	if layout == nil || layout.InternalData == nil {
		return
	}
	vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, layout.InternalData.(vk.DescriptorSetLayout), vr.context.Allocator)
	layout.InternalData = nil
}

func (vr *VulkanBackend) DescriptorSetAllocate(layout *metadata.DescriptorSetLayout) (*metadata.DescriptorSet, error) {
	if layout == nil || layout.InternalData == nil {
		err := fmt.Errorf("descriptor set allocation needs a created layout")
		core.LogError(err.Error())
		return nil, err
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vr.context.DescriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.InternalData.(vk.DescriptorSetLayout)},
	}
	var set vk.DescriptorSet
	if err := check(vk.AllocateDescriptorSets(vr.context.Device.LogicalDevice, &allocateInfo, &set), "vkAllocateDescriptorSets"); err != nil {
		return nil, fmt.Errorf("descriptor set for %s: %w", layout.Config.Name, err)
	}
	return &metadata.DescriptorSet{Layout: layout, InternalData: set}, nil
}

func (vr *VulkanBackend) DescriptorSetFree(set *metadata.DescriptorSet) {
	if set == nil || set.InternalData == nil {
		return
	}
	check(vk.FreeDescriptorSets(vr.context.Device.LogicalDevice, vr.context.DescriptorPool, 1,
		[]vk.DescriptorSet{set.InternalData.(vk.DescriptorSet)}), "vkFreeDescriptorSets")
	set.InternalData = nil
}

// DescriptorSetWrite points bindings of set at buffers or images. The binding
// type comes from the layout the set was allocated with.
func (vr *VulkanBackend) DescriptorSetWrite(set *metadata.DescriptorSet, writes ...metadata.DescriptorWrite) {
	if len(writes) == 0 {
		return
	}
	handle := set.InternalData.(vk.DescriptorSet)

	descriptorWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		binding, ok := layoutBinding(set.Layout, w.Binding)
		if !ok {
			core.LogWarn("descriptor set %s has no binding %d", set.Layout.Config.Name, w.Binding)
			continue
		}
		write := vk.WriteDescriptorSet{
			SType:          vk.StructureTypeWriteDescriptorSet,
			DstSet:         handle,
			DstBinding:     w.Binding,
			DescriptorType: toVkDescriptorType(binding.Type),
		}
		if len(w.Buffers) > 0 {
			infos := make([]vk.DescriptorBufferInfo, len(w.Buffers))
			for i, b := range w.Buffers {
				vb := vulkanBuffer(b)
				infos[i] = vk.DescriptorBufferInfo{Buffer: vb.Handle, Offset: 0, Range: vk.DeviceSize(vb.Size)}
			}
			write.DescriptorCount = uint32(len(infos))
			write.PBufferInfo = infos
		} else {
			infos := make([]vk.DescriptorImageInfo, len(w.Images))
			for i, img := range w.Images {
				info := vk.DescriptorImageInfo{
					ImageView:   vulkanImage(img.Image).View,
					ImageLayout: toVkLayout(img.Layout),
				}
				if img.Sampler != nil {
					info.Sampler = img.Sampler.InternalData.(vk.Sampler)
				}
				infos[i] = info
			}
			write.DescriptorCount = uint32(len(infos))
			write.PImageInfo = infos
		}
		descriptorWrites = append(descriptorWrites, write)
	}

	vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(descriptorWrites)), descriptorWrites, 0, nil)
}

func layoutBinding(layout *metadata.DescriptorSetLayout, binding uint32) (metadata.DescriptorBinding, bool) {
	for _, b := range layout.Config.Bindings {
		if b.Binding == binding {
			return b, true
		}
	}
	return metadata.DescriptorBinding{}, false
}
