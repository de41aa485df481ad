package forward

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/renderer/rendertest"
	"github.com/spaghettifunk/penumbra/engine/renderer/shadow"
	"github.com/spaghettifunk/penumbra/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testImageCount = 3

func testConfig(samples uint32) Config {
	cfg := config.Default()
	return Config{MSAASamples: samples, SSAO: cfg.SSAO, Post: cfg.Post}
}

type fixture struct {
	backend  *rendertest.Backend
	renderer *ForwardRenderer
	lightSet *metadata.DescriptorSet
	layout   *metadata.DescriptorSetLayout
}

func newFixture(t *testing.T, samples uint32) *fixture {
	t.Helper()
	backend := rendertest.NewBackend(testImageCount, 800, 600)
	layout, err := backend.DescriptorSetLayoutCreate(metadata.DescriptorSetLayoutConfig{Name: "lights"})
	require.NoError(t, err)
	set, err := backend.DescriptorSetAllocate(layout)
	require.NoError(t, err)
	fr, err := NewForwardRenderer(backend, rendertest.NewShaders(), layout, testConfig(samples))
	require.NoError(t, err)
	return &fixture{backend: backend, renderer: fr, lightSet: set, layout: layout}
}

func testMesh(name string) *scene.Mesh {
	return &scene.Mesh{
		Name:         name,
		VertexBuffer: &metadata.Buffer{},
		IndexBuffer:  &metadata.Buffer{},
		IndexCount:   36,
		Extents:      math.NewExtents3D(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1)),
	}
}

func testScene(nodes ...*scene.MeshNode) *scene.Scene {
	camera := scene.NewCamera(math.DegToRad(60), 800.0/600.0, 0.1, 100)
	camera.SetPosition(math.NewVec3(0, 2, 8))
	s := scene.NewScene(camera)
	for _, n := range nodes {
		s.AddNode(n)
	}
	return s
}

// render records one frame of the forward and post passes.
func (f *fixture) render(t *testing.T, s *scene.Scene, frame uint32) *rendertest.CommandBuffer {
	t.Helper()
	list := BuildDrawList(s.VisibleNodes())
	require.NoError(t, f.renderer.UpdateUniformBuffers(frame, s, list))
	cmd := &rendertest.CommandBuffer{}
	f.renderer.RenderForward(cmd, frame, list, shadow.LightCounts{Directional: 1, Point: 2}, f.lightSet)
	f.renderer.RenderPostProcess(cmd, frame, frame)
	return cmd
}

func TestCreateAndDestroyReleasesEverything(t *testing.T) {
	for _, samples := range []uint32{1, 4} {
		f := newFixture(t, samples)
		assert.Equal(t, 3, f.backend.Live("renderpass"))
		assert.Equal(t, 7, f.backend.Live("pipeline"))
		assert.Equal(t, 1, f.backend.Live("compute"))

		f.render(t, testScene(scene.NewMeshNode("cube", testMesh("cube"), scene.NewMaterial("stone", scene.ALPHA_MODE_OPAQUE))), 0)

		f.renderer.Destroy()
		f.backend.DescriptorSetFree(f.lightSet)
		f.backend.DescriptorSetLayoutDestroy(f.layout)
		assert.Zero(t, f.backend.Live(), "samples %d", samples)
	}
}

func TestGBufferAttachmentLayout(t *testing.T) {
	f := newFixture(t, 4)
	attachments := f.renderer.gbufferPass.Config.Attachments
	require.Len(t, attachments, 2*gbufferColourTargets+1)
	for i := 0; i < gbufferColourTargets; i++ {
		assert.Equal(t, metadata.ATTACHMENT_ROLE_COLOUR, attachments[i].Role)
		assert.Equal(t, uint32(4), attachments[i].Samples)
		assert.Equal(t, metadata.ATTACHMENT_STORE_OPERATION_DONT_CARE, attachments[i].Store)
	}
	depth := attachments[gbufferColourTargets]
	assert.Equal(t, metadata.ATTACHMENT_ROLE_DEPTH, depth.Role)
	assert.Equal(t, metadata.ATTACHMENT_STORE_OPERATION_DONT_CARE, depth.Store)
	for _, resolve := range attachments[gbufferColourTargets+1:] {
		assert.Equal(t, metadata.ATTACHMENT_ROLE_RESOLVE, resolve.Role)
		assert.Equal(t, uint32(1), resolve.Samples)
		assert.Equal(t, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, resolve.FinalLayout)
	}

	single := newFixture(t, 1)
	attachments = single.renderer.gbufferPass.Config.Attachments
	require.Len(t, attachments, gbufferColourTargets+1)
	assert.Equal(t, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, attachments[0].FinalLayout)
	assert.Equal(t, metadata.ATTACHMENT_STORE_OPERATION_STORE, attachments[0].Store)
}

func TestPipelineVariants(t *testing.T) {
	f := newFixture(t, 4)
	p := f.renderer.pipelines

	assert.Equal(t, metadata.CULL_MODE_BACK, p.opaque.Config.CullMode)
	assert.Equal(t, cutoutFragmentShader, p.cutout.Config.Stage(metadata.SHADER_STAGE_FRAGMENT).Path)
	assert.Equal(t, uint32(4), p.opaque.Config.Samples)
	assert.Equal(t, uint32(gbufferColourTargets), p.opaque.Config.ColourAttachmentCount)
	assert.Len(t, p.opaque.Config.SetLayouts, 3)
	assert.Same(t, f.layout, p.opaque.Config.SetLayouts[setLights])

	for _, tp := range []*metadata.Pipeline{p.transparentCullBack, p.transparentCullFront} {
		assert.True(t, tp.Config.Blend)
		assert.True(t, tp.Config.DepthTest)
		assert.False(t, tp.Config.DepthWrite)
		assert.Equal(t, metadata.COMPARE_OPERATION_LESS_OR_EQUAL, tp.Config.DepthCompare)
	}
	assert.Equal(t, metadata.CULL_MODE_BACK, p.transparentCullBack.Config.CullMode)
	assert.Equal(t, metadata.CULL_MODE_FRONT, p.transparentCullFront.Config.CullMode)

	assert.Equal(t, metadata.VERTEX_LAYOUT_NONE, p.skybox.Config.VertexLayout)
	assert.Equal(t, metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_STRIP, p.blit.Config.Topology)
	assert.Equal(t, uint32(blitPushConstantSize), p.blit.Config.PushConstantSize)
	assert.Equal(t, uint32(1), p.ssao.Config.Samples)
}

func TestRenderForwardDrawOrder(t *testing.T) {
	f := newFixture(t, 4)
	opaque := scene.NewMaterial("b_stone", scene.ALPHA_MODE_OPAQUE)
	cutout := scene.NewMaterial("a_leaves", scene.ALPHA_MODE_MASK)
	glass := scene.NewMaterial("glass", scene.ALPHA_MODE_BLEND)
	s := testScene(
		scene.NewMeshNode("wall", testMesh("wall"), opaque),
		scene.NewMeshNode("bush", testMesh("bush"), cutout),
		scene.NewMeshNode("window", testMesh("window"), glass),
		scene.NewMeshNode("floor", testMesh("floor"), opaque),
	)
	cmd := f.render(t, s, 0)

	// 3 opaque nodes once, the transparent node once per cull mode
	assert.Equal(t, 5, cmd.Count(rendertest.OpDrawIndexed))
	// one model push per draw plus the blit parameters
	assert.Equal(t, 6, cmd.Count(rendertest.OpPushConstants))

	var pipelines []string
	for _, call := range cmd.Filter(rendertest.OpBindPipeline) {
		pipelines = append(pipelines, call.Pipeline.Config.Name)
	}
	assert.Equal(t, []string{"cutout", "opaque", "skybox", "transparent_cull_back", "transparent_cull_front", "ssao", "blit"}, pipelines)

	// the skybox sits between the last opaque and the first transparent draw
	ops := cmd.Ops()
	skybox := -1
	for i, call := range cmd.Calls {
		if call.Op == rendertest.OpDraw && call.Count == skyboxVertexCount {
			skybox = i
		}
	}
	require.NotEqual(t, -1, skybox)
	assert.Equal(t, rendertest.OpDrawIndexed, ops[skybox-3])
	assert.Contains(t, ops[skybox+1:], rendertest.OpDrawIndexed)
}

func TestRenderForwardBindsSetsPerPipeline(t *testing.T) {
	f := newFixture(t, 1)
	stone := scene.NewMaterial("stone", scene.ALPHA_MODE_OPAQUE)
	moss := scene.NewMaterial("moss", scene.ALPHA_MODE_OPAQUE)
	s := testScene(
		scene.NewMeshNode("a", testMesh("a"), stone),
		scene.NewMeshNode("b", testMesh("b"), moss),
		scene.NewMeshNode("c", testMesh("c"), stone),
	)
	cmd := f.render(t, s, 1)

	var lightBinds int
	var materialSets []*metadata.DescriptorSet
	for _, call := range cmd.Filter(rendertest.OpBindDescriptorSets) {
		switch call.FirstSet {
		case setLights:
			lightBinds++
			assert.Same(t, f.lightSet, call.Sets[0])
		case setMaterial:
			materialSets = append(materialSets, call.Sets[0])
		}
	}
	assert.Equal(t, 1, lightBinds)
	require.Len(t, materialSets, 2)
	assert.Same(t, f.renderer.materials[moss].sets[1], materialSets[0])
	assert.Same(t, f.renderer.materials[stone].sets[1], materialSets[1])
}

func TestModelPushConstants(t *testing.T) {
	node := scene.NewMeshNode("a", testMesh("a"), scene.NewMaterial("m", scene.ALPHA_MODE_OPAQUE))
	node.Transform.SetPosition(math.NewVec3(1, 2, 3))
	data := modelConstants(node, shadow.LightCounts{Directional: 2, Point: 3})
	require.Len(t, data, modelPushConstantSize)
	assert.Equal(t, metadata.Bytes(node.World())[:64], data[:64])
	assert.Equal(t, []byte{2, 0, 0, 0, 3, 0, 0, 0}, data[64:72])
}

func TestUniformUploads(t *testing.T) {
	f := newFixture(t, 1)
	m := scene.NewMaterial("stone", scene.ALPHA_MODE_OPAQUE)
	albedo := &scene.Texture{Name: "albedo", Image: &metadata.Image{}}
	m.Textures[scene.TEXTURE_USE_ALBEDO] = albedo
	s := testScene(scene.NewMeshNode("a", testMesh("a"), m))
	f.render(t, s, 2)

	frame := f.renderer.frames[2]
	camera := f.backend.BufferData[frame.camera]
	require.NotEmpty(t, camera)
	assert.Equal(t, metadata.Bytes(s.Camera.GetView()), camera[:64])
	assert.Len(t, f.backend.BufferData[frame.ssaoParams], len(metadata.Bytes(ssaoUniform{})))

	// a scene without environment falls back to the black cube
	env := f.backend.SetWrites[frame.viewSet][viewBindingEnvironment]
	assert.Same(t, f.renderer.defaults.environment, env.Images[0].Image)

	res := f.renderer.materials[m]
	require.NotNil(t, res)
	assert.Len(t, res.sets, testImageCount)
	assert.Equal(t, metadata.Bytes(m.Params), f.backend.BufferData[res.uniforms[2]])
	writes := f.backend.SetWrites[res.sets[2]]
	assert.Same(t, albedo.Image, writes[materialBindingTextures+uint32(scene.TEXTURE_USE_ALBEDO)].Images[0].Image)
	assert.Same(t, f.renderer.defaults.flatNormal, writes[materialBindingTextures+uint32(scene.TEXTURE_USE_NORMAL)].Images[0].Image)
	assert.Same(t, f.renderer.defaults.white, writes[materialBindingTextures+uint32(scene.TEXTURE_USE_EMISSIVE)].Images[0].Image)

	f.renderer.ReleaseMaterial(m)
	assert.NotContains(t, f.renderer.materials, m)
	assert.False(t, f.backend.IsLive(res.sets[0]))
}

func TestRenderPostProcess(t *testing.T) {
	f := newFixture(t, 4)
	cmd := &rendertest.CommandBuffer{}
	f.renderer.RenderPostProcess(cmd, 1, 2)

	assert.Equal(t, []string{"ssao", "blit"}, cmd.PassOrder())
	passes := cmd.Filter(rendertest.OpBeginRenderPass)
	assert.Same(t, f.renderer.frames[1].targets.ssao, passes[0].Framebuffer)
	assert.Same(t, f.renderer.blitFramebuffers[2], passes[1].Framebuffer)
	assert.Same(t, f.backend.SwapchainImages()[2], passes[1].Framebuffer.Config.Attachments[0])

	dispatch := cmd.Filter(rendertest.OpDispatch)
	require.Len(t, dispatch, 1)
	assert.Equal(t, [3]uint32{50, 38, 1}, dispatch[0].Groups)

	transitions := cmd.Filter(rendertest.OpTransition)
	require.Len(t, transitions, 2)
	assert.Equal(t, metadata.IMAGE_LAYOUT_GENERAL, transitions[0].To)
	assert.Equal(t, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, transitions[1].To)

	for _, draw := range cmd.Filter(rendertest.OpDraw) {
		assert.Equal(t, uint32(fullscreenVertexCount), draw.Count)
	}
	push := cmd.Filter(rendertest.OpPushConstants)
	require.Len(t, push, 1)
	assert.Len(t, push[0].Data, blitPushConstantSize)
}

func TestResizeRecreatesTargets(t *testing.T) {
	f := newFixture(t, 4)
	old := f.renderer.frames[0].targets
	oldImages := append([]*metadata.Image(nil), old.images...)
	liveImages := f.backend.Live("image")

	f.backend.Resized(1024, 768)
	require.NoError(t, f.renderer.Resize(1024, 768))

	for _, img := range oldImages {
		assert.False(t, f.backend.IsLive(img))
	}
	assert.Equal(t, liveImages, f.backend.Live("image"))
	frame := f.renderer.frames[0]
	assert.Equal(t, uint32(1024), frame.targets.colour.Config.Width)
	assert.Same(t, frame.targets.blurred, f.backend.SetWrites[frame.blitSet][blitBindingOcclusion].Images[0].Image)
	assert.Same(t, f.backend.SwapchainImages()[0], f.renderer.blitFramebuffers[0].Config.Attachments[0])

	// minimised windows keep the old targets
	require.NoError(t, f.renderer.Resize(0, 0))
	assert.Same(t, frame.targets, f.renderer.frames[0].targets)
}

func TestLightTargetIsResolvedColour(t *testing.T) {
	for _, samples := range []uint32{1, 4} {
		f := newFixture(t, samples)
		for frame := uint32(0); frame < testImageCount; frame++ {
			target := f.renderer.LightTarget(frame)
			require.NotNil(t, target)
			assert.Equal(t, uint32(1), target.Config.Samples)
			assert.Equal(t, fmt.Sprintf("colour_%d", frame), target.Config.Name)
			blitSet := f.renderer.frames[frame].blitSet
			assert.Same(t, target, f.backend.SetWrites[blitSet][blitBindingColour].Images[0].Image)
		}
		assert.NotSame(t, f.renderer.LightTarget(0), f.renderer.LightTarget(1))
	}
}

func TestConstructionFailureCleansUp(t *testing.T) {
	for _, kind := range []string{"renderpass", "layout", "sampler", "image", "pipeline", "compute", "buffer", "framebuffer"} {
		t.Run(kind, func(t *testing.T) {
			backend := rendertest.NewBackend(testImageCount, 800, 600)
			backend.FailOn = kind
			_, err := NewForwardRenderer(backend, rendertest.NewShaders(), nil, testConfig(4))
			require.Error(t, err)
			assert.Zero(t, backend.Live())
		})
	}
}

func TestMissingShader(t *testing.T) {
	backend := rendertest.NewBackend(testImageCount, 800, 600)
	shaders := rendertest.NewShaders()
	shaders.Missing[ssaoBlurComputeShader] = true
	_, err := NewForwardRenderer(backend, shaders, nil, testConfig(1))
	require.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.Zero(t, backend.Live())
}

func TestRebuildPipelines(t *testing.T) {
	f := newFixture(t, 1)
	old := f.renderer.pipelines.opaque
	require.NoError(t, f.renderer.RebuildPipelines())
	assert.False(t, f.backend.IsLive(old))
	assert.True(t, f.backend.IsLive(f.renderer.pipelines.opaque))
	assert.Equal(t, 7, f.backend.Live("pipeline"))
}
