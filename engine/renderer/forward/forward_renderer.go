package forward

import (
	"fmt"

	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

const (
	GBUFFER_FORMAT   = metadata.IMAGE_FORMAT_RGBA16_SFLOAT
	OCCLUSION_FORMAT = metadata.IMAGE_FORMAT_R16_SFLOAT
	BLURRED_FORMAT   = metadata.IMAGE_FORMAT_R32_SFLOAT

	litVertexShader           = "cameraSpaceLight/lit.vert.spv"
	opaqueFragmentShader      = "cameraSpaceLight/opaque.frag.spv"
	cutoutFragmentShader      = "cameraSpaceLight/cutout.frag.spv"
	transparentFragmentShader = "cameraSpaceLight/transparent.frag.spv"
	skyboxVertexShader        = "skybox/skybox.vert.spv"
	skyboxFragmentShader      = "skybox/skybox.frag.spv"
	fullscreenVertexShader    = "fullscreen/fullscreen.vert.spv"
	ssaoFragmentShader        = "ssao/ssao.frag.spv"
	ssaoBlurComputeShader     = "ssao/blur.comp.spv"
	blitFragmentShader        = "blit/blit.frag.spv"

	modelPushConstantSize = 80
	blitPushConstantSize  = 32
	skyboxVertexCount     = 36
	fullscreenVertexCount = 4

	// G-buffer colour targets, in attachment order.
	gbufferColourTargets = 4
)

type Config struct {
	MSAASamples uint32
	SSAO        config.SSAOConfig
	Post        config.PostConfig
}

type pipelines struct {
	opaque *metadata.Pipeline
	cutout *metadata.Pipeline
	// Transparent nodes are drawn with back faces culled first, then front faces culled.
	transparentCullBack  *metadata.Pipeline
	transparentCullFront *metadata.Pipeline
	skybox               *metadata.Pipeline
	ssao                 *metadata.Pipeline
	blit                 *metadata.Pipeline
	ssaoBlur             *metadata.ComputePipeline
}

type layouts struct {
	view     *metadata.DescriptorSetLayout
	material *metadata.DescriptorSetLayout
	ssao     *metadata.DescriptorSetLayout
	blur     *metadata.DescriptorSetLayout
	blit     *metadata.DescriptorSetLayout
}

type samplers struct {
	material *metadata.Sampler
	target   *metadata.Sampler
	noise    *metadata.Sampler
}

/**
 * @brief 1x1 fallbacks bound wherever a material or the scene has no texture.
 */
type defaults struct {
	white       *metadata.Image
	flatNormal  *metadata.Image
	environment *metadata.Image
}

/**
 * @brief Owns the G-buffer, SSAO and blit passes with everything they
 * need: pipelines, per frame attachments, uniform buffers and descriptor sets.
 */
type ForwardRenderer struct {
	backend        metadata.RendererBackend
	shaders        metadata.ShaderLoader
	config         Config
	imageCount     uint32
	width          uint32
	height         uint32
	lightSetLayout *metadata.DescriptorSetLayout

	gbufferPass *metadata.RenderPass
	ssaoPass    *metadata.RenderPass
	blitPass    *metadata.RenderPass

	layouts   layouts
	samplers  samplers
	defaults  defaults
	pipelines pipelines

	noise      *metadata.Image
	ssaoKernel [config.MaxSSAOKernelSize]math.Vec4

	frames           []*frameResources
	blitFramebuffers []*metadata.Framebuffer
	materials        map[*scene.Material]*materialResources
}

// NewForwardRenderer creates every pass of the forward path. lightSetLayout is
// the layout of the light set bound at set 2 of the lit pipelines.
func NewForwardRenderer(backend metadata.RendererBackend, shaders metadata.ShaderLoader, lightSetLayout *metadata.DescriptorSetLayout, config Config) (*ForwardRenderer, error) {
	width, height := backend.FramebufferSize()
	if config.MSAASamples == 0 {
		config.MSAASamples = 1
	}
	fr := &ForwardRenderer{
		backend:        backend,
		shaders:        shaders,
		config:         config,
		imageCount:     backend.SwapchainImageCount(),
		width:          width,
		height:         height,
		lightSetLayout: lightSetLayout,
		materials:      make(map[*scene.Material]*materialResources),
	}
	if err := fr.create(); err != nil {
		core.LogError("failed to create the forward renderer: %s", err.Error())
		fr.Destroy()
		return nil, err
	}
	core.LogInfo("forward renderer created (%dx%d, %dx MSAA, %d frames)", width, height, config.MSAASamples, fr.imageCount)
	return fr, nil
}

func (fr *ForwardRenderer) create() error {
	steps := []func() error{
		fr.createRenderPasses,
		fr.createLayouts,
		fr.createSamplers,
		fr.createDefaults,
		fr.createPipelines,
		fr.createFrames,
		fr.createBlitFramebuffers,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (fr *ForwardRenderer) multisampled() bool {
	return fr.config.MSAASamples > 1
}

func (fr *ForwardRenderer) createRenderPasses() error {
	samples := fr.config.MSAASamples
	var attachments []metadata.AttachmentConfig
	for i := 0; i < gbufferColourTargets; i++ {
		colour := metadata.AttachmentConfig{
			Role:          metadata.ATTACHMENT_ROLE_COLOUR,
			Format:        GBUFFER_FORMAT,
			Samples:       samples,
			Load:          metadata.ATTACHMENT_LOAD_OPERATION_CLEAR,
			Store:         metadata.ATTACHMENT_STORE_OPERATION_STORE,
			InitialLayout: metadata.IMAGE_LAYOUT_UNDEFINED,
			FinalLayout:   metadata.IMAGE_LAYOUT_SHADER_READ_ONLY,
		}
		if fr.multisampled() {
			colour.Store = metadata.ATTACHMENT_STORE_OPERATION_DONT_CARE
			colour.FinalLayout = metadata.IMAGE_LAYOUT_COLOUR_ATTACHMENT
		}
		attachments = append(attachments, colour)
	}
	attachments = append(attachments, metadata.AttachmentConfig{
		Role:          metadata.ATTACHMENT_ROLE_DEPTH,
		Format:        fr.backend.DepthFormat(),
		Samples:       samples,
		Load:          metadata.ATTACHMENT_LOAD_OPERATION_CLEAR,
		Store:         metadata.ATTACHMENT_STORE_OPERATION_DONT_CARE,
		InitialLayout: metadata.IMAGE_LAYOUT_UNDEFINED,
		FinalLayout:   metadata.IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT,
	})
	if fr.multisampled() {
		for i := 0; i < gbufferColourTargets; i++ {
			attachments = append(attachments, metadata.AttachmentConfig{
				Role:          metadata.ATTACHMENT_ROLE_RESOLVE,
				Format:        GBUFFER_FORMAT,
				Samples:       1,
				Load:          metadata.ATTACHMENT_LOAD_OPERATION_DONT_CARE,
				Store:         metadata.ATTACHMENT_STORE_OPERATION_STORE,
				InitialLayout: metadata.IMAGE_LAYOUT_UNDEFINED,
				FinalLayout:   metadata.IMAGE_LAYOUT_SHADER_READ_ONLY,
			})
		}
	}

	var err error
	fr.gbufferPass, err = fr.backend.RenderPassCreate(metadata.RenderPassConfig{Name: "gbuffer", Attachments: attachments})
	if err != nil {
		return err
	}

	fr.ssaoPass, err = fr.backend.RenderPassCreate(metadata.RenderPassConfig{
		Name: "ssao",
		Attachments: []metadata.AttachmentConfig{{
			Role:          metadata.ATTACHMENT_ROLE_COLOUR,
			Format:        OCCLUSION_FORMAT,
			Samples:       1,
			Load:          metadata.ATTACHMENT_LOAD_OPERATION_CLEAR,
			Store:         metadata.ATTACHMENT_STORE_OPERATION_STORE,
			InitialLayout: metadata.IMAGE_LAYOUT_UNDEFINED,
			FinalLayout:   metadata.IMAGE_LAYOUT_SHADER_READ_ONLY,
		}},
	})
	if err != nil {
		return err
	}

	fr.blitPass, err = fr.backend.RenderPassCreate(metadata.RenderPassConfig{
		Name: "blit",
		Attachments: []metadata.AttachmentConfig{{
			Role:          metadata.ATTACHMENT_ROLE_COLOUR,
			Format:        fr.backend.SwapchainFormat(),
			Samples:       1,
			Load:          metadata.ATTACHMENT_LOAD_OPERATION_DONT_CARE,
			Store:         metadata.ATTACHMENT_STORE_OPERATION_STORE,
			InitialLayout: metadata.IMAGE_LAYOUT_UNDEFINED,
			FinalLayout:   metadata.IMAGE_LAYOUT_PRESENT_SRC,
		}},
	})
	return err
}

func sampledBindings(first, count uint32, stages metadata.ShaderStage) []metadata.DescriptorBinding {
	bindings := make([]metadata.DescriptorBinding, count)
	for i := range bindings {
		bindings[i] = metadata.DescriptorBinding{Binding: first + uint32(i), Type: metadata.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, Count: 1, Stages: stages}
	}
	return bindings
}

func (fr *ForwardRenderer) createLayouts() error {
	uniform := func(stages metadata.ShaderStage) metadata.DescriptorBinding {
		return metadata.DescriptorBinding{Binding: 0, Type: metadata.DESCRIPTOR_TYPE_UNIFORM_BUFFER, Count: 1, Stages: stages}
	}
	configs := []struct {
		target **metadata.DescriptorSetLayout
		config metadata.DescriptorSetLayoutConfig
	}{
		{&fr.layouts.view, metadata.DescriptorSetLayoutConfig{
			Name:     "view",
			Bindings: append([]metadata.DescriptorBinding{uniform(metadata.SHADER_STAGE_VERTEX | metadata.SHADER_STAGE_FRAGMENT)}, sampledBindings(viewBindingEnvironment, 1, metadata.SHADER_STAGE_FRAGMENT)...),
		}},
		{&fr.layouts.material, metadata.DescriptorSetLayoutConfig{
			Name:     "material",
			Bindings: append([]metadata.DescriptorBinding{uniform(metadata.SHADER_STAGE_FRAGMENT)}, sampledBindings(materialBindingTextures, uint32(scene.TEXTURE_USE_COUNT), metadata.SHADER_STAGE_FRAGMENT)...),
		}},
		{&fr.layouts.ssao, metadata.DescriptorSetLayoutConfig{
			Name:     "ssao",
			Bindings: append([]metadata.DescriptorBinding{uniform(metadata.SHADER_STAGE_FRAGMENT)}, sampledBindings(ssaoBindingPosition, 3, metadata.SHADER_STAGE_FRAGMENT)...),
		}},
		{&fr.layouts.blur, metadata.DescriptorSetLayoutConfig{
			Name: "ssao_blur",
			Bindings: []metadata.DescriptorBinding{
				{Binding: blurBindingInput, Type: metadata.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, Count: 1, Stages: metadata.SHADER_STAGE_COMPUTE},
				{Binding: blurBindingOutput, Type: metadata.DESCRIPTOR_TYPE_STORAGE_IMAGE, Count: 1, Stages: metadata.SHADER_STAGE_COMPUTE},
			},
		}},
		{&fr.layouts.blit, metadata.DescriptorSetLayoutConfig{
			Name:     "blit",
			Bindings: sampledBindings(blitBindingColour, 3, metadata.SHADER_STAGE_FRAGMENT),
		}},
	}
	for _, c := range configs {
		layout, err := fr.backend.DescriptorSetLayoutCreate(c.config)
		if err != nil {
			return err
		}
		*c.target = layout
	}
	return nil
}

func (fr *ForwardRenderer) createSamplers() error {
	var err error
	if fr.samplers.material, err = fr.backend.SamplerCreate(metadata.SamplerConfig{Name: "material", Filter: metadata.SAMPLER_FILTER_LINEAR, AddressMode: metadata.SAMPLER_ADDRESS_MODE_REPEAT}); err != nil {
		return err
	}
	if fr.samplers.target, err = fr.backend.SamplerCreate(metadata.SamplerConfig{Name: "target", Filter: metadata.SAMPLER_FILTER_LINEAR, AddressMode: metadata.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE}); err != nil {
		return err
	}
	fr.samplers.noise, err = fr.backend.SamplerCreate(metadata.SamplerConfig{Name: "ssao_noise", Filter: metadata.SAMPLER_FILTER_NEAREST, AddressMode: metadata.SAMPLER_ADDRESS_MODE_REPEAT})
	return err
}

func (fr *ForwardRenderer) createTexture(name string, imageType metadata.ImageType, format metadata.ImageFormat, size uint32, pixels []byte) (*metadata.Image, error) {
	img, err := fr.backend.ImageCreate(metadata.ImageConfig{
		Name:    name,
		Type:    imageType,
		Format:  format,
		Width:   size,
		Height:  size,
		Samples: 1,
		Usage:   metadata.IMAGE_USAGE_SAMPLED | metadata.IMAGE_USAGE_TRANSFER_DST,
		Aspect:  metadata.IMAGE_ASPECT_COLOUR,
	})
	if err != nil {
		return nil, err
	}
	if err := fr.backend.ImageUpload(img, pixels); err != nil {
		fr.backend.ImageDestroy(img)
		return nil, err
	}
	return img, nil
}

func (fr *ForwardRenderer) createDefaults() error {
	var err error
	if fr.defaults.white, err = fr.createTexture("default_white", metadata.IMAGE_TYPE_2D, metadata.IMAGE_FORMAT_RGBA8_UNORM, 1, []byte{255, 255, 255, 255}); err != nil {
		return err
	}
	if fr.defaults.flatNormal, err = fr.createTexture("default_normal", metadata.IMAGE_TYPE_2D, metadata.IMAGE_FORMAT_RGBA8_UNORM, 1, []byte{128, 128, 255, 255}); err != nil {
		return err
	}
	black := make([]byte, 6*4)
	for i := 3; i < len(black); i += 4 {
		black[i] = 255
	}
	if fr.defaults.environment, err = fr.createTexture("default_environment", metadata.IMAGE_TYPE_CUBE, metadata.IMAGE_FORMAT_RGBA8_SRGB, 1, black); err != nil {
		return err
	}
	fr.noise, err = fr.createTexture("ssao_noise", metadata.IMAGE_TYPE_2D, metadata.IMAGE_FORMAT_RGBA8_UNORM, SSAO_NOISE_DIMENSION, GenerateSSAONoise(fr.config.SSAO.Seed))
	if err != nil {
		return err
	}
	copy(fr.ssaoKernel[:], GenerateSSAOKernel(fr.config.SSAO.KernelSize, fr.config.SSAO.Seed))
	return nil
}

func (fr *ForwardRenderer) createPipelines() error {
	lit := metadata.NewPipelineBuilder(
		metadata.WithRenderPass(fr.gbufferPass),
		metadata.WithVertexShader(litVertexShader),
		metadata.WithFragmentShader(opaqueFragmentShader),
		metadata.WithSetLayouts(fr.layouts.view, fr.layouts.material, fr.lightSetLayout),
		metadata.WithPushConstants(modelPushConstantSize, metadata.SHADER_STAGE_VERTEX|metadata.SHADER_STAGE_FRAGMENT),
		metadata.WithColourAttachments(gbufferColourTargets),
		metadata.WithSamples(fr.config.MSAASamples),
	)
	transparent := []metadata.PipelineOption{
		metadata.WithFragmentShader(transparentFragmentShader),
		metadata.WithBlend(true),
		metadata.WithDepth(true, false, metadata.COMPARE_OPERATION_LESS_OR_EQUAL),
	}
	fullscreen := metadata.NewPipelineBuilder(
		metadata.WithVertexShader(fullscreenVertexShader),
		metadata.WithVertexLayout(metadata.VERTEX_LAYOUT_NONE),
		metadata.WithTopology(metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_STRIP),
		metadata.WithCullMode(metadata.CULL_MODE_NONE),
		metadata.WithDepth(false, false, metadata.COMPARE_OPERATION_ALWAYS),
	)

	graphics := []struct {
		target **metadata.Pipeline
		config *metadata.PipelineConfig
	}{
		{&fr.pipelines.opaque, lit.Derive(metadata.WithName("opaque"))},
		{&fr.pipelines.cutout, lit.Derive(metadata.WithName("cutout"), metadata.WithFragmentShader(cutoutFragmentShader))},
		{&fr.pipelines.transparentCullBack, lit.Derive(append(transparent, metadata.WithName("transparent_cull_back"))...)},
		{&fr.pipelines.transparentCullFront, lit.Derive(append(transparent, metadata.WithName("transparent_cull_front"), metadata.WithCullMode(metadata.CULL_MODE_FRONT))...)},
		{&fr.pipelines.skybox, lit.Derive(
			metadata.WithName("skybox"),
			metadata.WithVertexShader(skyboxVertexShader),
			metadata.WithFragmentShader(skyboxFragmentShader),
			metadata.WithVertexLayout(metadata.VERTEX_LAYOUT_NONE),
			metadata.WithSetLayouts(fr.layouts.view),
			metadata.WithPushConstants(0, 0),
			metadata.WithCullMode(metadata.CULL_MODE_NONE),
			metadata.WithDepth(true, false, metadata.COMPARE_OPERATION_LESS_OR_EQUAL),
		)},
		{&fr.pipelines.ssao, fullscreen.Derive(
			metadata.WithName("ssao"),
			metadata.WithRenderPass(fr.ssaoPass),
			metadata.WithFragmentShader(ssaoFragmentShader),
			metadata.WithSetLayouts(fr.layouts.ssao),
		)},
		{&fr.pipelines.blit, fullscreen.Derive(
			metadata.WithName("blit"),
			metadata.WithRenderPass(fr.blitPass),
			metadata.WithFragmentShader(blitFragmentShader),
			metadata.WithSetLayouts(fr.layouts.blit),
			metadata.WithPushConstants(blitPushConstantSize, metadata.SHADER_STAGE_FRAGMENT),
		)},
	}
	for _, g := range graphics {
		if err := metadata.LoadStages(fr.shaders, g.config); err != nil {
			return err
		}
		pipeline, err := fr.backend.PipelineCreate(*g.config)
		if err != nil {
			return err
		}
		*g.target = pipeline
	}

	code, err := fr.shaders.LoadShader(ssaoBlurComputeShader)
	if err != nil {
		return fmt.Errorf("pipeline ssao_blur: %w", err)
	}
	fr.pipelines.ssaoBlur, err = fr.backend.ComputePipelineCreate(metadata.ComputePipelineConfig{
		Name:       "ssao_blur",
		Shader:     metadata.ShaderStageConfig{Stage: metadata.SHADER_STAGE_COMPUTE, Path: ssaoBlurComputeShader, Code: code},
		SetLayouts: []*metadata.DescriptorSetLayout{fr.layouts.blur},
	})
	return err
}

func (fr *ForwardRenderer) destroyPipelines() {
	for _, p := range []**metadata.Pipeline{
		&fr.pipelines.opaque, &fr.pipelines.cutout,
		&fr.pipelines.transparentCullBack, &fr.pipelines.transparentCullFront,
		&fr.pipelines.skybox, &fr.pipelines.ssao, &fr.pipelines.blit,
	} {
		fr.backend.PipelineDestroy(*p)
		*p = nil
	}
	fr.backend.ComputePipelineDestroy(fr.pipelines.ssaoBlur)
	fr.pipelines.ssaoBlur = nil
}

// RebuildPipelines recreates every pipeline from the current shader binaries.
// The device must be idle.
func (fr *ForwardRenderer) RebuildPipelines() error {
	fr.destroyPipelines()
	return fr.createPipelines()
}

// LightTarget returns the resolved lit colour target of a frame, before SSAO
// and tone mapping are applied. It is replaced by Resize.
func (fr *ForwardRenderer) LightTarget(frame uint32) *metadata.Image {
	return fr.frames[frame].targets.colour
}

// Destroy releases everything the renderer created, in reverse order. It is
// safe on a partially constructed renderer.
func (fr *ForwardRenderer) Destroy() {
	for m := range fr.materials {
		fr.ReleaseMaterial(m)
	}
	fr.destroyBlitFramebuffers()
	fr.destroyFrames()
	fr.destroyPipelines()

	for _, img := range []**metadata.Image{&fr.noise, &fr.defaults.environment, &fr.defaults.flatNormal, &fr.defaults.white} {
		fr.backend.ImageDestroy(*img)
		*img = nil
	}
	for _, s := range []**metadata.Sampler{&fr.samplers.noise, &fr.samplers.target, &fr.samplers.material} {
		fr.backend.SamplerDestroy(*s)
		*s = nil
	}
	for _, l := range []**metadata.DescriptorSetLayout{&fr.layouts.blit, &fr.layouts.blur, &fr.layouts.ssao, &fr.layouts.material, &fr.layouts.view} {
		fr.backend.DescriptorSetLayoutDestroy(*l)
		*l = nil
	}
	for _, p := range []**metadata.RenderPass{&fr.blitPass, &fr.ssaoPass, &fr.gbufferPass} {
		fr.backend.RenderPassDestroy(*p)
		*p = nil
	}
}
