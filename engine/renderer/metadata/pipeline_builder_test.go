package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opaqueBuilder() *PipelineBuilder {
	layout := &DescriptorSetLayout{Config: DescriptorSetLayoutConfig{Name: "view"}}
	return NewPipelineBuilder(
		WithName("opaque"),
		WithVertexShader("cameraSpaceLight/lit.vert.spv"),
		WithFragmentShader("cameraSpaceLight/opaque.frag.spv"),
		WithSetLayouts(layout),
		WithColourAttachments(4),
		WithSamples(4),
	)
}

func TestBuilderDefaults(t *testing.T) {
	cfg := NewPipelineBuilder().Build()
	assert.Equal(t, CULL_MODE_BACK, cfg.CullMode)
	assert.True(t, cfg.DepthTest)
	assert.True(t, cfg.DepthWrite)
	assert.False(t, cfg.Blend)
	assert.Equal(t, uint32(1), cfg.Samples)
	assert.Equal(t, VERTEX_LAYOUT_3D, cfg.VertexLayout)
}

func TestDeriveOverridesOnlyNamedFields(t *testing.T) {
	b := opaqueBuilder()
	base := b.Build()

	front := b.Derive(
		WithName("transparent_front"),
		WithFragmentShader("cameraSpaceLight/transparent.frag.spv"),
		WithBlend(true),
		WithDepth(true, false, COMPARE_OPERATION_LESS_OR_EQUAL),
	)
	back := b.Derive(
		WithName("transparent_back"),
		WithFragmentShader("cameraSpaceLight/transparent.frag.spv"),
		WithBlend(true),
		WithDepth(true, false, COMPARE_OPERATION_LESS_OR_EQUAL),
		WithCullMode(CULL_MODE_FRONT),
	)

	require.NotNil(t, front.Stage(SHADER_STAGE_FRAGMENT))
	assert.Equal(t, "cameraSpaceLight/transparent.frag.spv", front.Stage(SHADER_STAGE_FRAGMENT).Path)
	assert.Equal(t, base.Stage(SHADER_STAGE_VERTEX).Path, front.Stage(SHADER_STAGE_VERTEX).Path)
	assert.Len(t, front.Stages, 2)
	assert.Equal(t, CULL_MODE_BACK, front.CullMode)
	assert.Equal(t, CULL_MODE_FRONT, back.CullMode)

	// everything not overridden is inherited
	assert.Equal(t, base.ColourAttachmentCount, back.ColourAttachmentCount)
	assert.Equal(t, base.Samples, back.Samples)
	assert.Equal(t, base.SetLayouts, back.SetLayouts)

	// the base is untouched by derivation
	again := b.Build()
	assert.Equal(t, base, again)
	assert.Equal(t, "cameraSpaceLight/opaque.frag.spv", again.Stage(SHADER_STAGE_FRAGMENT).Path)
	assert.False(t, again.Blend)
}

func TestDerivedConfigsDoNotShareSlices(t *testing.T) {
	b := opaqueBuilder()
	a := b.Derive()
	c := b.Derive()
	a.Stages[0].Path = "changed"
	a.SetLayouts[0] = nil
	assert.NotEqual(t, "changed", c.Stages[0].Path)
	assert.NotNil(t, c.SetLayouts[0])
}
