package forward

import (
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/renderer/shadow"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

const (
	setView     = 0
	setMaterial = 1
	setLights   = 2
)

// RenderForward records the G-buffer pass of frame: opaque and cutout groups,
// then the skybox, then the transparent groups twice, first with back faces
// culled and then with front faces culled. lightSet must hold the light data
// and shadow maps written for this frame.
func (fr *ForwardRenderer) RenderForward(cmd metadata.CommandBuffer, frame uint32, list DrawList, counts shadow.LightCounts, lightSet *metadata.DescriptorSet) {
	f := fr.frames[frame]
	clears := make([]metadata.ClearValue, 0, 2*gbufferColourTargets+1)
	for i := 0; i < gbufferColourTargets; i++ {
		clears = append(clears, metadata.ClearColour(0, 0, 0, 0))
	}
	clears = append(clears, metadata.ClearDepth(1.0))
	if fr.multisampled() {
		for i := 0; i < gbufferColourTargets; i++ {
			clears = append(clears, metadata.ClearColour(0, 0, 0, 0))
		}
	}

	cmd.BeginRenderPass(fr.gbufferPass, f.targets.gbuffer, clears)
	fr.setFullViewport(cmd)

	var bound *metadata.Pipeline
	draw := func(pipeline *metadata.Pipeline, group DrawGroup) {
		if pipeline != bound {
			cmd.BindPipeline(pipeline)
			cmd.BindDescriptorSets(pipeline, setView, f.viewSet)
			cmd.BindDescriptorSets(pipeline, setLights, lightSet)
			bound = pipeline
		}
		resources := fr.materials[group.Material]
		if resources == nil {
			return
		}
		cmd.BindDescriptorSets(pipeline, setMaterial, resources.sets[frame])
		for _, node := range group.Nodes {
			if node.Mesh == nil || node.Mesh.IndexCount == 0 {
				continue
			}
			cmd.PushConstants(pipeline, modelConstants(node, counts))
			cmd.BindVertexBuffer(node.Mesh.VertexBuffer)
			cmd.BindIndexBuffer(node.Mesh.IndexBuffer)
			cmd.DrawIndexed(node.Mesh.IndexCount)
		}
	}

	for _, group := range list.Opaque {
		pipeline := fr.pipelines.opaque
		if group.Material.AlphaMode == scene.ALPHA_MODE_MASK {
			pipeline = fr.pipelines.cutout
		}
		draw(pipeline, group)
	}

	cmd.BindPipeline(fr.pipelines.skybox)
	cmd.BindDescriptorSets(fr.pipelines.skybox, setView, f.viewSet)
	cmd.Draw(skyboxVertexCount)
	bound = nil

	for _, pipeline := range []*metadata.Pipeline{fr.pipelines.transparentCullBack, fr.pipelines.transparentCullFront} {
		for _, group := range list.Transparent {
			draw(pipeline, group)
		}
	}
	cmd.EndRenderPass()
}

// RenderPostProcess records the SSAO pass, the occlusion blur and the final
// blit of frame into the swapchain image imageIndex.
func (fr *ForwardRenderer) RenderPostProcess(cmd metadata.CommandBuffer, frame, imageIndex uint32) {
	f := fr.frames[frame]

	cmd.BeginRenderPass(fr.ssaoPass, f.targets.ssao, []metadata.ClearValue{metadata.ClearColour(1, 1, 1, 1)})
	fr.setFullViewport(cmd)
	cmd.BindPipeline(fr.pipelines.ssao)
	cmd.BindDescriptorSets(fr.pipelines.ssao, 0, f.ssaoSet)
	cmd.Draw(fullscreenVertexCount)
	cmd.EndRenderPass()

	cmd.TransitionImageLayout(f.targets.blurred, metadata.IMAGE_LAYOUT_UNDEFINED, metadata.IMAGE_LAYOUT_GENERAL, 0, 1)
	cmd.BindComputePipeline(fr.pipelines.ssaoBlur)
	cmd.BindComputeDescriptorSets(fr.pipelines.ssaoBlur, f.blurSet)
	cmd.Dispatch(dispatchSize(fr.width), dispatchSize(fr.height), 1)
	cmd.TransitionImageLayout(f.targets.blurred, metadata.IMAGE_LAYOUT_GENERAL, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, 0, 1)

	cmd.BeginRenderPass(fr.blitPass, fr.blitFramebuffers[imageIndex], []metadata.ClearValue{metadata.ClearColour(0, 0, 0, 1)})
	fr.setFullViewport(cmd)
	cmd.BindPipeline(fr.pipelines.blit)
	cmd.BindDescriptorSets(fr.pipelines.blit, 0, f.blitSet)
	var fxaa uint32
	if fr.config.Post.FXAA {
		fxaa = 1
	}
	cmd.PushConstants(fr.pipelines.blit, metadata.Bytes(blitPushConstants{
		Exposure:    fr.config.Post.Exposure,
		Gamma:       fr.config.Post.Gamma,
		ToneMapping: fr.config.Post.ToneMapping.Index(),
		FXAA:        fxaa,
		InverseSize: math.NewVec2(1/float32(fr.width), 1/float32(fr.height)),
	}))
	cmd.Draw(fullscreenVertexCount)
	cmd.EndRenderPass()
}

func (fr *ForwardRenderer) setFullViewport(cmd metadata.CommandBuffer) {
	cmd.SetViewport(0, 0, float32(fr.width), float32(fr.height))
	cmd.SetScissor(0, 0, fr.width, fr.height)
}
