package shadow

import (
	"fmt"

	"github.com/spaghettifunk/penumbra/engine/containers"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

// CreateLightShadowMappingResources assigns a shadow slot of the light's
// category to light and records it in light.ShadowSlot. Slots are handed out
// in increasing order while fewer than the category capacity exist; once the
// capacity is reached only released slots are reused. A light that already
// owns a slot gets the same slot back. When no slot is free it returns
// NoShadowSlot and core.ErrNoShadowSlot, and the light renders unshadowed.
func (sm *ShadowMapper) CreateLightShadowMappingResources(light *scene.Light) (int, error) {
	sm.reclaim()
	c := sm.categories[light.Type]
	if slot, ok := c.table.Find(light); ok {
		light.ShadowSlot = slot
		return slot, nil
	}

	slot, fresh := c.table.Acquire(light)
	if slot == containers.InvalidSlot {
		light.ShadowSlot = containers.InvalidSlot
		return NoShadowSlot, fmt.Errorf("%s light %s: %w", light.Type, light.Name, core.ErrNoShadowSlot)
	}

	if c.slots[slot] == nil {
		resources, err := sm.createSlot(c, slot)
		if err != nil {
			_ = c.table.Release(slot)
			light.ShadowSlot = containers.InvalidSlot
			return NoShadowSlot, err
		}
		c.slots[slot] = resources
	}
	if fresh {
		core.LogDebug("created %s shadow slot %d for light %s", light.Type, slot, light.Name)
	} else {
		core.LogDebug("reused %s shadow slot %d for light %s", light.Type, slot, light.Name)
	}
	light.ShadowSlot = slot
	return slot, nil
}

// ReleaseLightShadowMappingResources detaches light from its slot. The slot
// returns to the free list once every frame that may still sample it has
// completed. Its images and buffers are kept for the next owner.
func (sm *ShadowMapper) ReleaseLightShadowMappingResources(light *scene.Light) error {
	c := sm.categories[light.Type]
	slot, ok := c.table.Find(light)
	if !ok {
		light.ShadowSlot = containers.InvalidSlot
		return nil
	}
	if err := c.pending.Enqueue(pendingRelease{slot: slot, readyAt: sm.frameNumber + uint64(sm.imageCount)}); err != nil {
		return fmt.Errorf("%s light %s: %w", light.Type, light.Name, err)
	}
	// the slot keeps a placeholder owner so it cannot be found or handed out
	// again until the release matures
	var none *scene.Light
	c.table.SetOwner(slot, none)
	light.ShadowSlot = containers.InvalidSlot
	return nil
}

// reclaim returns matured releases to their free lists.
func (sm *ShadowMapper) reclaim() {
	for _, c := range sm.categories {
		for !c.pending.IsEmpty() {
			next, _ := c.pending.Peek()
			if next.readyAt > sm.frameNumber {
				break
			}
			_, _ = c.pending.Dequeue()
			if err := c.table.Release(next.slot); err != nil {
				core.LogError("failed to release %s shadow slot %d: %s", c.lightType, next.slot, err.Error())
			}
		}
	}
}

func (sm *ShadowMapper) createSlot(c *category, slot int) (*slotResources, error) {
	s := &slotResources{}
	var err error
	s.shadowMap, err = sm.createShadowMap(fmt.Sprintf("shadow_map_%s_%d", c.lightType, slot), c.imageType, c.resolution)
	if err != nil {
		return nil, err
	}
	size := uint64(len(metadata.Bytes(shadowPassUniform{})))
	for frame := uint32(0); frame < sm.imageCount; frame++ {
		buf, err := sm.backend.BufferCreate(metadata.BufferConfig{
			Name:        fmt.Sprintf("shadow_pass_%s_%d_%d", c.lightType, slot, frame),
			Usage:       metadata.BUFFER_USAGE_UNIFORM,
			Size:        size,
			HostVisible: true,
		})
		if err != nil {
			sm.destroySlot(s)
			return nil, err
		}
		s.uniforms = append(s.uniforms, buf)

		set, err := sm.backend.DescriptorSetAllocate(sm.passSetLayout)
		if err != nil {
			sm.destroySlot(s)
			return nil, err
		}
		s.sets = append(s.sets, set)
		sm.backend.DescriptorSetWrite(set, metadata.BufferWrite(shadowPassBindingUniform, buf))
	}
	return s, nil
}

// OwnsShadowSlot reports whether light currently holds a slot of its category.
func (sm *ShadowMapper) OwnsShadowSlot(light *scene.Light) bool {
	_, ok := sm.categories[light.Type].table.Find(light)
	return ok
}

// ShadowMapFor returns the image the forward pass samples for light: the
// light's own shadow map when it owns a slot, the shared dummy otherwise.
func (sm *ShadowMapper) ShadowMapFor(light *scene.Light) *metadata.Image {
	if s := sm.ownedSlot(light); s != nil {
		return s.shadowMap
	}
	return sm.categories[light.Type].dummy
}
