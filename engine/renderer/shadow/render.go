package shadow

import (
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

// RenderShadowMaps records the depth passes of every light owning a shadow
// slot, then refreshes the frame's light arrays and shadow map bindings.
// Lights past a category's capacity are ignored; array entries without a real
// shadow map point at the category's dummy map.
func (sm *ShadowMapper) RenderShadowMaps(cmd metadata.CommandBuffer, frame uint32, lights []*scene.Light, nodes []*scene.MeshNode) LightCounts {
	sm.reclaim()

	bounds := make([]math.Extents3D, 0, len(nodes))
	for _, n := range nodes {
		bounds = append(bounds, n.WorldExtents())
	}

	var directional directionalLightsUniform
	var point pointLightsUniform
	directionalMaps := sm.dummyArray(scene.LIGHT_TYPE_DIRECTIONAL)
	pointMaps := sm.dummyArray(scene.LIGHT_TYPE_POINT)
	var counts LightCounts

	for _, light := range lights {
		switch light.Type {
		case scene.LIGHT_TYPE_DIRECTIONAL:
			if counts.Directional >= MAX_DIRECTIONAL_LIGHTS {
				continue
			}
			i := counts.Directional
			counts.Directional++
			directional.Lights[i] = sm.renderDirectional(cmd, frame, light, nodes, bounds)
			directionalMaps[i] = sm.ShadowMapFor(light)
		case scene.LIGHT_TYPE_POINT:
			if counts.Point >= MAX_POINT_LIGHTS {
				continue
			}
			i := counts.Point
			counts.Point++
			point.Lights[i] = sm.renderPoint(cmd, frame, light, nodes)
			pointMaps[i] = sm.ShadowMapFor(light)
		}
	}

	f := sm.frames[frame]
	if err := sm.backend.BufferLoad(f.directional, metadata.Bytes(directional)); err != nil {
		core.LogError("failed to update directional lights: %s", err.Error())
	}
	if err := sm.backend.BufferLoad(f.point, metadata.Bytes(point)); err != nil {
		core.LogError("failed to update point lights: %s", err.Error())
	}
	sm.writeShadowMaps(f, directionalMaps, pointMaps)

	sm.frameNumber++
	return counts
}

func (sm *ShadowMapper) shadowParams(c *category, hasShadow bool) math.Vec4 {
	params := math.NewVec4(1.0/float32(c.resolution), float32(sm.config.PCFKernel), sm.config.DirectionalBias, 0)
	if hasShadow {
		params.W = 1
	}
	return params
}

// ownedSlot returns the resources of light's slot when it casts shadows through one.
// Ownership comes from the slot table, never from light.ShadowSlot.
func (sm *ShadowMapper) ownedSlot(light *scene.Light) *slotResources {
	if !light.CastsShadows {
		return nil
	}
	c := sm.categories[light.Type]
	slot, ok := c.table.Find(light)
	if !ok {
		return nil
	}
	return c.slots[slot]
}

func (sm *ShadowMapper) renderDirectional(cmd metadata.CommandBuffer, frame uint32, light *scene.Light, nodes []*scene.MeshNode, bounds []math.Extents3D) DirectionalLightData {
	c := sm.categories[scene.LIGHT_TYPE_DIRECTIONAL]
	fit := FitDirectionalShadow(light.WorldRotation(), bounds)
	data := DirectionalLightData{
		ViewProj:  fit.ViewProj,
		Colour:    math.NewVec4FromVec3(light.Colour.MulScalar(light.Intensity), 1),
		Direction: math.NewVec4FromVec3(light.Direction(), 0),
	}

	slot := sm.ownedSlot(light)
	data.ShadowParams = sm.shadowParams(c, slot != nil)
	if slot == nil {
		return data
	}

	uniform := shadowPassUniform{}
	uniform.ViewProj[0] = fit.ViewProj
	if err := sm.backend.BufferLoad(slot.uniforms[frame], metadata.Bytes(uniform)); err != nil {
		core.LogError("failed to update shadow uniform of %s: %s", light.Name, err.Error())
	}
	sm.renderDepth(cmd, c, slot.sets[frame], nodes, 0)
	sm.copyToShadowMap(cmd, c, slot.shadowMap, 0)
	return data
}

func (sm *ShadowMapper) renderPoint(cmd metadata.CommandBuffer, frame uint32, light *scene.Light, nodes []*scene.MeshNode) PointLightData {
	c := sm.categories[scene.LIGHT_TYPE_POINT]
	position := light.WorldPosition()
	data := PointLightData{
		Position: math.NewVec4FromVec3(position, light.Radius),
		Colour:   math.NewVec4FromVec3(light.Colour.MulScalar(light.Intensity), 1),
	}

	slot := sm.ownedSlot(light)
	data.ShadowParams = sm.shadowParams(c, slot != nil)
	if slot == nil {
		return data
	}

	uniform := shadowPassUniform{PositionFar: data.Position}
	for i, face := range PointShadowFaces(position, light.Radius) {
		uniform.ViewProj[i] = face.ViewProj
	}
	if err := sm.backend.BufferLoad(slot.uniforms[frame], metadata.Bytes(uniform)); err != nil {
		core.LogError("failed to update shadow uniform of %s: %s", light.Name, err.Error())
	}
	for face := uint32(0); face < 6; face++ {
		sm.renderDepth(cmd, c, slot.sets[frame], nodes, face)
		sm.copyToShadowMap(cmd, c, slot.shadowMap, face)
	}
	return data
}

// renderDepth draws every node into the category's intermediate target.
func (sm *ShadowMapper) renderDepth(cmd metadata.CommandBuffer, c *category, set *metadata.DescriptorSet, nodes []*scene.MeshNode, face uint32) {
	size := float32(c.target.resolution)
	cmd.BeginRenderPass(sm.pass, c.target.framebuffer, []metadata.ClearValue{metadata.ClearDepth(1.0)})
	cmd.SetViewport(0, 0, size, size)
	cmd.SetScissor(0, 0, c.target.resolution, c.target.resolution)
	cmd.BindPipeline(c.pipeline)
	cmd.BindDescriptorSets(c.pipeline, 0, set)
	for _, n := range nodes {
		if n.Mesh == nil {
			continue
		}
		cmd.PushConstants(c.pipeline, metadata.Bytes(shadowPushConstants{Model: n.World(), Face: face}))
		cmd.BindVertexBuffer(n.Mesh.VertexBuffer)
		cmd.BindIndexBuffer(n.Mesh.IndexBuffer)
		cmd.DrawIndexed(n.Mesh.IndexCount)
	}
	cmd.EndRenderPass()
}

// copyToShadowMap copies the intermediate target into one layer of shadowMap.
// The shadow map is sampled by other frames, so it only leaves the shader
// read layout for the duration of the copy.
func (sm *ShadowMapper) copyToShadowMap(cmd metadata.CommandBuffer, c *category, shadowMap *metadata.Image, layer uint32) {
	cmd.TransitionImageLayout(shadowMap, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, metadata.IMAGE_LAYOUT_TRANSFER_DST, layer, 1)
	cmd.CopyImage(c.target.image, shadowMap, layer)
	cmd.TransitionImageLayout(shadowMap, metadata.IMAGE_LAYOUT_TRANSFER_DST, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, layer, 1)
}
