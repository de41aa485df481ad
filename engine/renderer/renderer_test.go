package renderer

import (
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

func newRenderer(t *testing.T) (*Renderer, *rendertest.Backend) {
	t.Helper()
	backend := rendertest.NewBackend(testImageCount, 800, 600)
	r, err := NewRenderer(backend, rendertest.NewShaders(), config.Default())
	require.NoError(t, err)
	return r, backend
}

func testScene(t *testing.T, r *Renderer) *scene.Scene {
	t.Helper()
	camera := scene.NewCamera(math.DegToRad(60), 800.0/600.0, 0.1, 100)
	camera.SetPosition(math.NewVec3(0, 3, 10))
	camera.LookAt(math.NewVec3Zero())
	s := scene.NewScene(camera)

	vertices, indices := math.GeometryGenerateCube(1, 1, 1, math.NewVec4(1, 1, 1, 1))
	cube, err := r.UploadMesh("cube", vertices, indices)
	require.NoError(t, err)
	s.AddNode(scene.NewMeshNode("box", cube, scene.NewMaterial("stone", scene.ALPHA_MODE_OPAQUE)))
	s.AddNode(scene.NewMeshNode("pane", cube, scene.NewMaterial("glass", scene.ALPHA_MODE_BLEND)))

	sun := scene.NewDirectionalLight("sun", math.NewQuatFromAxisAngle(math.NewVec3Right(), math.DegToRad(-45)), math.NewVec3One(), 3)
	sun.CastsShadows = true
	s.AddLight(sun)
	return s
}

func TestDrawFramePassOrder(t *testing.T) {
	r, backend := newRenderer(t)
	s := testScene(t, r)
	require.NoError(t, r.DrawFrame(s, 0.016))

	cmd := backend.LastFrame()
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"shadow", "gbuffer", "ssao", "blit"}, cmd.PassOrder())
	// both nodes into the shadow map, then the box once and the pane twice
	assert.Equal(t, 2+1+2, cmd.Count(rendertest.OpDrawIndexed))
	assert.Equal(t, []uint32{0}, backend.Ended)
}

func TestFrameIndexRoundRobin(t *testing.T) {
	r, backend := newRenderer(t)
	s := testScene(t, r)
	for i := 0; i < 4; i++ {
		require.NoError(t, r.DrawFrame(s, 0.016))
	}
	assert.Equal(t, []uint32{0, 1, 2, 0}, backend.FrameIndex)
	assert.Equal(t, []uint32{0, 1, 2, 0}, backend.Ended)
	assert.Equal(t, uint32(1), r.Frame())
}

func TestDrawFrameSkipsWhileBooting(t *testing.T) {
	r, backend := newRenderer(t)
	s := testScene(t, r)
	backend.Resized(1024, 768)
	backend.Booting = true

	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.Empty(t, backend.Frames)
	assert.Empty(t, backend.Ended)
	assert.Equal(t, uint32(0), r.Frame())

	require.NoError(t, r.DrawFrame(s, 0.016))
	blit := backend.LastFrame().Filter(rendertest.OpBeginRenderPass)[3]
	assert.Equal(t, uint32(1024), blit.Framebuffer.Config.Width)
}

func TestShadowSlotAssignment(t *testing.T) {
	r, _ := newRenderer(t)
	s := testScene(t, r)
	var bulbs []*scene.Light
	for i := 0; i < shadow.MAX_POINT_LIGHTS+1; i++ {
		bulb := scene.NewPointLight("bulb", math.NewVec3(float32(i), 2, 0), math.NewVec3One(), 1, 10)
		bulb.CastsShadows = true
		s.AddLight(bulb)
		bulbs = append(bulbs, bulb)
	}
	require.NoError(t, r.DrawFrame(s, 0.016))

	assert.Equal(t, 0, s.Lights[0].ShadowSlot)
	for i := 0; i < shadow.MAX_POINT_LIGHTS; i++ {
		assert.Equal(t, i, bulbs[i].ShadowSlot)
	}
	extra := bulbs[shadow.MAX_POINT_LIGHTS]
	assert.False(t, extra.HasShadowSlot())
	assert.True(t, r.noSlotLogged[extra])

	// removing a light frees its slot for the extra light once the frames in flight retire
	require.NoError(t, r.RemoveLight(s, bulbs[1]))
	assert.False(t, bulbs[1].HasShadowSlot())
	for i := 0; i < testImageCount; i++ {
		require.NoError(t, r.DrawFrame(s, 0.016))
	}
	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.Equal(t, 1, extra.ShadowSlot)
}

func TestLightStopsCastingShadows(t *testing.T) {
	r, _ := newRenderer(t)
	s := testScene(t, r)
	require.NoError(t, r.DrawFrame(s, 0.016))
	sun := s.Lights[0]
	require.True(t, sun.HasShadowSlot())

	sun.CastsShadows = false
	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.False(t, sun.HasShadowSlot())
}

func TestLiteralLightGetsShadowSlot(t *testing.T) {
	r, _ := newRenderer(t)
	s := testScene(t, r)
	// a zero ShadowSlot on a fresh light does not mean it owns slot 0
	lamp := &scene.Light{
		Name:         "lamp",
		Type:         scene.LIGHT_TYPE_POINT,
		Transform:    math.NewTransformFrom(math.NewVec3(0, 2, 0), math.NewQuatIdentity(), math.NewVec3One()),
		Colour:       math.NewVec3One(),
		Intensity:    1,
		Radius:       8,
		CastsShadows: true,
	}
	s.AddLight(lamp)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.DrawFrame(s, 0.016))
	}

	assert.True(t, r.shadows.OwnsShadowSlot(lamp))
	assert.Equal(t, 0, lamp.ShadowSlot)
	assert.NotContains(t, r.shadows.ShadowMapFor(lamp).Config.Name, "dummy")
}

func TestFailedFrameIsStillPresented(t *testing.T) {
	r, backend := newRenderer(t)
	s := testScene(t, r)
	require.NoError(t, r.DrawFrame(s, 0.016))

	// the new material needs buffers the backend refuses to create
	vertices, indices := math.GeometryGenerateCube(1, 1, 1, math.NewVec4(1, 1, 1, 1))
	cube, err := r.UploadMesh("brick", vertices, indices)
	require.NoError(t, err)
	s.AddNode(scene.NewMeshNode("wall", cube, scene.NewMaterial("brass", scene.ALPHA_MODE_OPAQUE)))
	backend.FailOn = "buffer"

	require.Error(t, r.DrawFrame(s, 0.016))
	assert.Equal(t, []uint32{0, 1}, backend.Ended)
	assert.Equal(t, uint32(2), r.Frame())
	transitions := backend.LastFrame().Filter(rendertest.OpTransition)
	require.NotEmpty(t, transitions)
	last := transitions[len(transitions)-1]
	assert.Same(t, backend.SwapchainImages()[1], last.Image)
	assert.Equal(t, metadata.IMAGE_LAYOUT_PRESENT_SRC, last.To)

	backend.FailOn = ""
	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.Equal(t, []uint32{0, 1, 2}, backend.Ended)
}

func TestLightTargetFollowsLastFrame(t *testing.T) {
	r, _ := newRenderer(t)
	s := testScene(t, r)
	assert.Nil(t, r.LightTarget())

	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.Same(t, r.forward.LightTarget(0), r.LightTarget())
	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.Same(t, r.forward.LightTarget(1), r.LightTarget())
}

func TestUploadMesh(t *testing.T) {
	r, backend := newRenderer(t)
	vertices, indices := math.GeometryGenerateCube(2, 2, 2, math.NewVec4(1, 1, 1, 1))
	mesh, err := r.UploadMesh("cube", vertices, indices)
	require.NoError(t, err)
	assert.Equal(t, uint32(36), mesh.IndexCount)
	assert.Equal(t, math.NewVec3(1, 1, 1), mesh.Extents.Max)
	assert.Equal(t, metadata.Bytes(indices), backend.BufferData[mesh.IndexBuffer])

	_, err = r.UploadMesh("empty", nil, nil)
	assert.ErrorIs(t, err, core.ErrMeshLoad)
	_, err = r.UploadMesh("broken", vertices[:3], []uint32{0, 1, 7})
	assert.ErrorIs(t, err, core.ErrMeshLoad)

	buffers := backend.Live("buffer")
	backend.FailOn = "buffer"
	_, err = r.UploadMesh("cube", vertices, indices)
	assert.ErrorIs(t, err, core.ErrMeshLoad)
	assert.Equal(t, buffers, backend.Live("buffer"))

	backend.FailOn = ""
	r.DestroyMesh(mesh)
	assert.Nil(t, mesh.VertexBuffer)
	assert.Equal(t, buffers-2, backend.Live("buffer"))
}

func TestUploadTexture(t *testing.T) {
	r, backend := newRenderer(t)
	texture, err := r.UploadTexture("checker", metadata.IMAGE_TYPE_2D, metadata.IMAGE_FORMAT_RGBA8_SRGB, 2, 2, make([]byte, 16))
	require.NoError(t, err)
	assert.True(t, backend.IsLive(texture.Image))

	_, err = r.UploadTexture("sky", metadata.IMAGE_TYPE_CUBE, metadata.IMAGE_FORMAT_RGBA8_SRGB, 2, 2, make([]byte, 16))
	assert.ErrorIs(t, err, core.ErrTextureLoad)
	sky, err := r.UploadTexture("sky", metadata.IMAGE_TYPE_CUBE, metadata.IMAGE_FORMAT_RGBA8_SRGB, 2, 2, make([]byte, 6*16))
	require.NoError(t, err)
	assert.Len(t, backend.Uploads[sky.Image], 96)
}

func TestHotReloadRebuildsPipelines(t *testing.T) {
	r, backend := newRenderer(t)
	s := testScene(t, r)
	pipelines := backend.Live("pipeline")

	r.MarkPipelinesDirty()
	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.Equal(t, 1, backend.WaitIdles)
	assert.Equal(t, pipelines, backend.Live("pipeline"))

	require.NoError(t, r.DrawFrame(s, 0.016))
	assert.Equal(t, 1, backend.WaitIdles)
}

func TestShutdownReleasesEverything(t *testing.T) {
	r, backend := newRenderer(t)
	s := testScene(t, r)
	_, err := r.UploadTexture("checker", metadata.IMAGE_TYPE_2D, metadata.IMAGE_FORMAT_RGBA8_SRGB, 1, 1, make([]byte, 4))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.DrawFrame(s, 0.016))
	}
	require.NoError(t, r.Shutdown())
	assert.Zero(t, backend.Live())
}

func TestNewRendererFailureCleansUp(t *testing.T) {
	backend := rendertest.NewBackend(testImageCount, 800, 600)
	shaders := rendertest.NewShaders()
	shaders.Missing["blit/blit.frag.spv"] = true
	_, err := NewRenderer(backend, shaders, config.Default())
	require.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.Zero(t, backend.Live())
}
