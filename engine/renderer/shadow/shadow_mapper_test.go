package shadow

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/penumbra/engine/containers"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/renderer/rendertest"
	"github.com/spaghettifunk/penumbra/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testImageCount = 3

func testConfig() Config {
	return Config{
		DirectionalResolution: 1024,
		PointResolution:       512,
		PCFKernel:             2,
		DepthBiasConstant:     1.25,
		DepthBiasSlope:        1.75,
		DirectionalBias:       0.005,
	}
}

func newMapper(t *testing.T) (*ShadowMapper, *rendertest.Backend) {
	t.Helper()
	backend := rendertest.NewBackend(testImageCount, 800, 600)
	sm, err := NewShadowMapper(backend, rendertest.NewShaders(), testConfig())
	require.NoError(t, err)
	return sm, backend
}

func sun(name string) *scene.Light {
	return scene.NewDirectionalLight(name, math.NewQuatFromAxisAngle(math.NewVec3Right(), math.DegToRad(-60)), math.NewVec3One(), 2)
}

func bulb(name string) *scene.Light {
	return scene.NewPointLight(name, math.NewVec3(0, 3, 0), math.NewVec3One(), 1, 15)
}

func cubeNode(name string, position math.Vec3) *scene.MeshNode {
	mesh := &scene.Mesh{
		Name:         name,
		VertexBuffer: &metadata.Buffer{},
		IndexBuffer:  &metadata.Buffer{},
		IndexCount:   36,
		Extents:      math.NewExtents3D(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1)),
	}
	node := scene.NewMeshNode(name, mesh, scene.NewMaterial("grey", scene.ALPHA_MODE_OPAQUE))
	node.Transform.SetPosition(position)
	return node
}

func TestSlotAllocationBoundary(t *testing.T) {
	for _, tc := range []struct {
		name     string
		capacity int
		newLight func(string) *scene.Light
	}{
		{"directional", MAX_DIRECTIONAL_LIGHTS, sun},
		{"point", MAX_POINT_LIGHTS, bulb},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sm, _ := newMapper(t)
			// exactly N lights get the slots 0..N-1 in order
			for i := 0; i < tc.capacity; i++ {
				light := tc.newLight(fmt.Sprintf("light_%d", i))
				slot, err := sm.CreateLightShadowMappingResources(light)
				require.NoError(t, err)
				assert.Equal(t, i, slot)
				assert.Equal(t, i, light.ShadowSlot)
			}
			// the N+1th is rejected
			extra := tc.newLight("extra")
			slot, err := sm.CreateLightShadowMappingResources(extra)
			assert.Equal(t, NoShadowSlot, slot)
			assert.ErrorIs(t, err, core.ErrNoShadowSlot)
			assert.Equal(t, containers.InvalidSlot, extra.ShadowSlot)
		})
	}
}

func TestLightNeverHoldsTwoSlots(t *testing.T) {
	sm, backend := newMapper(t)
	light := sun("sun")
	first, err := sm.CreateLightShadowMappingResources(light)
	require.NoError(t, err)
	images := backend.Live("image")

	again, err := sm.CreateLightShadowMappingResources(light)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, images, backend.Live("image"))
}

func TestNewShadowMapIsClearedAndShaderReadable(t *testing.T) {
	sm, backend := newMapper(t)
	light := bulb("bulb")
	_, err := sm.CreateLightShadowMappingResources(light)
	require.NoError(t, err)

	img := sm.ShadowMapFor(light)
	assert.Equal(t, metadata.IMAGE_TYPE_CUBE, img.Config.Type)
	assert.Equal(t, uint32(6), img.Config.Layers())

	last := backend.Immediate[len(backend.Immediate)-1]
	transitions := last.Filter(rendertest.OpTransition)
	require.Len(t, transitions, 2)
	assert.Equal(t, img, transitions[1].Image)
	assert.Equal(t, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, transitions[1].To)
	assert.Equal(t, uint32(6), transitions[1].LayerCount)
	assert.Equal(t, 1, last.Count(rendertest.OpClearDepthImage))
}

func TestReleasedSlotIsReusedAfterFramesInFlight(t *testing.T) {
	sm, backend := newMapper(t)
	var lights []*scene.Light
	for i := 0; i < MAX_DIRECTIONAL_LIGHTS; i++ {
		l := sun(fmt.Sprintf("sun_%d", i))
		_, err := sm.CreateLightShadowMappingResources(l)
		require.NoError(t, err)
		lights = append(lights, l)
	}
	releasedMap := sm.ShadowMapFor(lights[1])
	imagesBefore := backend.Live("image")

	require.NoError(t, sm.ReleaseLightShadowMappingResources(lights[1]))
	assert.False(t, lights[1].HasShadowSlot())
	assert.Equal(t, sm.categories[scene.LIGHT_TYPE_DIRECTIONAL].dummy, sm.ShadowMapFor(lights[1]))

	newcomer := sun("newcomer")
	for frame := uint32(0); frame < testImageCount; frame++ {
		// still in flight
		slot, err := sm.CreateLightShadowMappingResources(newcomer)
		assert.ErrorIs(t, err, core.ErrNoShadowSlot)
		assert.Equal(t, NoShadowSlot, slot)
		sm.RenderShadowMaps(&rendertest.CommandBuffer{}, frame, nil, nil)
	}

	slot, err := sm.CreateLightShadowMappingResources(newcomer)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
	// the pooled image is handed over, nothing new is allocated
	assert.Same(t, releasedMap, sm.ShadowMapFor(newcomer))
	assert.Equal(t, imagesBefore, backend.Live("image"))
}

func TestShadowMapForLightWithoutSlotIsDummy(t *testing.T) {
	sm, _ := newMapper(t)
	owner := sun("owner")
	_, err := sm.CreateLightShadowMappingResources(owner)
	require.NoError(t, err)
	stranger := sun("stranger")

	own := sm.ShadowMapFor(owner)
	assert.NotSame(t, sm.categories[scene.LIGHT_TYPE_DIRECTIONAL].dummy, own)
	assert.Equal(t, uint32(1024), own.Config.Width)
	assert.Same(t, sm.categories[scene.LIGHT_TYPE_DIRECTIONAL].dummy, sm.ShadowMapFor(stranger))
	assert.Same(t, sm.categories[scene.LIGHT_TYPE_POINT].dummy, sm.ShadowMapFor(bulb("b")))

	// a light that stops casting shadows falls back as well
	owner.CastsShadows = false
	assert.Same(t, sm.categories[scene.LIGHT_TYPE_DIRECTIONAL].dummy, sm.ShadowMapFor(owner))
}

func TestRenderShadowMapsRecordsPassesAndCopies(t *testing.T) {
	sm, backend := newMapper(t)
	dir := sun("sun")
	point := bulb("bulb")
	unshadowed := sun("no_slot")
	for _, l := range []*scene.Light{dir, point} {
		_, err := sm.CreateLightShadowMappingResources(l)
		require.NoError(t, err)
	}
	nodes := []*scene.MeshNode{cubeNode("a", math.NewVec3Zero()), cubeNode("b", math.NewVec3(4, 0, 0))}

	cmd := &rendertest.CommandBuffer{}
	counts := sm.RenderShadowMaps(cmd, 1, []*scene.Light{dir, point, unshadowed}, nodes)
	assert.Equal(t, LightCounts{Directional: 2, Point: 1}, counts)

	// one pass for the directional light, six for the point light
	assert.Equal(t, 7, cmd.Count(rendertest.OpBeginRenderPass))
	assert.Equal(t, 7*len(nodes), cmd.Count(rendertest.OpDrawIndexed))

	copies := cmd.Filter(rendertest.OpCopyImage)
	require.Len(t, copies, 7)
	assert.Same(t, sm.ShadowMapFor(dir), copies[0].Dst)
	for face := 0; face < 6; face++ {
		assert.Same(t, sm.ShadowMapFor(point), copies[1+face].Dst)
		assert.Equal(t, uint32(face), copies[1+face].Layer)
	}

	// every copy is bracketed by shader read -> transfer dst -> shader read
	calls := cmd.Calls
	for i, call := range calls {
		if call.Op != rendertest.OpCopyImage {
			continue
		}
		before, after := calls[i-1], calls[i+1]
		assert.Equal(t, rendertest.OpTransition, before.Op)
		assert.Equal(t, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, before.From)
		assert.Equal(t, metadata.IMAGE_LAYOUT_TRANSFER_DST, before.To)
		assert.Equal(t, call.Layer, before.Layer)
		assert.Equal(t, rendertest.OpTransition, after.Op)
		assert.Equal(t, metadata.IMAGE_LAYOUT_TRANSFER_DST, after.From)
		assert.Equal(t, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, after.To)
	}

	// the frame's light set points at real maps for slot owners and dummies elsewhere
	writes := backend.SetWrites[sm.LightSet(1)]
	dirMaps := writes[lightBindingDirectionalMaps].Images
	require.Len(t, dirMaps, MAX_DIRECTIONAL_LIGHTS)
	assert.Same(t, sm.ShadowMapFor(dir), dirMaps[0].Image)
	for i := 1; i < MAX_DIRECTIONAL_LIGHTS; i++ {
		assert.Same(t, sm.categories[scene.LIGHT_TYPE_DIRECTIONAL].dummy, dirMaps[i].Image)
	}
	pointMaps := writes[lightBindingPointMaps].Images
	require.Len(t, pointMaps, MAX_POINT_LIGHTS)
	assert.Same(t, sm.ShadowMapFor(point), pointMaps[0].Image)
	assert.Same(t, sm.categories[scene.LIGHT_TYPE_POINT].dummy, pointMaps[1].Image)

	// other frames were not touched
	assert.Same(t, sm.categories[scene.LIGHT_TYPE_DIRECTIONAL].dummy, backend.SetWrites[sm.LightSet(0)][lightBindingDirectionalMaps].Images[0].Image)
}

func TestLightUniformsCarryShadowFlags(t *testing.T) {
	sm, backend := newMapper(t)
	dir := sun("sun")
	_, err := sm.CreateLightShadowMappingResources(dir)
	require.NoError(t, err)
	other := sun("other")

	sm.RenderShadowMaps(&rendertest.CommandBuffer{}, 0, []*scene.Light{dir, other}, []*scene.MeshNode{cubeNode("a", math.NewVec3Zero())})

	var expected directionalLightsUniform
	fit := FitDirectionalShadow(dir.WorldRotation(), []math.Extents3D{cubeNode("a", math.NewVec3Zero()).WorldExtents()})
	expected.Lights[0] = DirectionalLightData{
		ViewProj:     fit.ViewProj,
		Colour:       math.NewVec4(2, 2, 2, 1),
		Direction:    math.NewVec4FromVec3(dir.Direction(), 0),
		ShadowParams: math.NewVec4(1.0/1024.0, 2, 0.005, 1),
	}
	otherFit := FitDirectionalShadow(other.WorldRotation(), []math.Extents3D{cubeNode("a", math.NewVec3Zero()).WorldExtents()})
	expected.Lights[1] = DirectionalLightData{
		ViewProj:     otherFit.ViewProj,
		Colour:       math.NewVec4(2, 2, 2, 1),
		Direction:    math.NewVec4FromVec3(other.Direction(), 0),
		ShadowParams: math.NewVec4(1.0/1024.0, 2, 0.005, 0),
	}
	assert.Equal(t, metadata.Bytes(expected), backend.BufferData[sm.frames[0].directional])
}

func TestLightsBeyondCapacityAreIgnored(t *testing.T) {
	sm, _ := newMapper(t)
	var lights []*scene.Light
	for i := 0; i < MAX_POINT_LIGHTS+2; i++ {
		lights = append(lights, bulb(fmt.Sprintf("b%d", i)))
	}
	counts := sm.RenderShadowMaps(&rendertest.CommandBuffer{}, 0, lights, nil)
	assert.Equal(t, uint32(MAX_POINT_LIGHTS), counts.Point)
}

func TestDestroyReleasesEverything(t *testing.T) {
	sm, backend := newMapper(t)
	for _, l := range []*scene.Light{sun("a"), bulb("b")} {
		_, err := sm.CreateLightShadowMappingResources(l)
		require.NoError(t, err)
	}
	require.NoError(t, sm.RebuildPipelines())
	sm.Destroy()
	assert.Equal(t, 0, backend.Live())
}

func TestConstructionFailureCleansUp(t *testing.T) {
	for _, kind := range []string{"pipeline", "set", "buffer"} {
		t.Run(kind, func(t *testing.T) {
			backend := rendertest.NewBackend(testImageCount, 800, 600)
			backend.FailOn = kind
			sm, err := NewShadowMapper(backend, rendertest.NewShaders(), testConfig())
			assert.Error(t, err)
			assert.Nil(t, sm)
			assert.Equal(t, 0, backend.Live())
		})
	}
}

func TestMissingShaderFailsConstruction(t *testing.T) {
	backend := rendertest.NewBackend(testImageCount, 800, 600)
	shaders := rendertest.NewShaders()
	shaders.Missing[shadowPointFragmentShader] = true
	_, err := NewShadowMapper(backend, shaders, testConfig())
	assert.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.Equal(t, 0, backend.Live())
}
