package shadow

import (
	"fmt"

	"github.com/spaghettifunk/penumbra/engine/containers"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

const (
	SHADOW_DEPTH_FORMAT = metadata.IMAGE_FORMAT_D32_SFLOAT

	shadowVertexShader        = "shadowMap/depth.vert.spv"
	shadowFragmentShader      = "shadowMap/depth.frag.spv"
	shadowPointFragmentShader = "shadowMap/pointDepth.frag.spv"
	shadowPushConstantSize    = 80

	lightBindingDirectional     = 0
	lightBindingPoint           = 1
	lightBindingDirectionalMaps = 2
	lightBindingPointMaps       = 3
	shadowPassBindingUniform    = 0

	categoryCount = 2
)

type Config struct {
	DirectionalResolution uint32
	PointResolution       uint32
	PCFKernel             uint32
	DepthBiasConstant     float32
	DepthBiasSlope        float32
	DirectionalBias       float32
}

/**
 * @brief The single depth target every light of a category renders into
 * before the result is copied into the light's own shadow map.
 */
type intermediateTarget struct {
	image       *metadata.Image
	framebuffer *metadata.Framebuffer
	resolution  uint32
}

/**
 * @brief The persistent resources behind one shadow slot. They survive the
 * release of the slot and are handed to the next light that acquires it.
 */
type slotResources struct {
	shadowMap *metadata.Image
	/** @brief One per swapchain image. */
	uniforms []*metadata.Buffer
	sets     []*metadata.DescriptorSet
}

type pendingRelease struct {
	slot    int
	readyAt uint64
}

type category struct {
	lightType  scene.LightType
	capacity   int
	resolution uint32
	imageType  metadata.ImageType
	table      *containers.SlotTable[*scene.Light]
	slots      []*slotResources
	pending    *containers.RingQueue[pendingRelease]
	target     *intermediateTarget
	dummy      *metadata.Image
	pipeline   *metadata.Pipeline
}

/**
 * @brief Per swapchain image light data consumed by the forward pass.
 */
type frameResources struct {
	directional *metadata.Buffer
	point       *metadata.Buffer
	set         *metadata.DescriptorSet
}

/**
 * @brief Renders depth from every shadow casting light into a persistent,
 * light owned shadow map and publishes the light arrays the forward pass reads.
 */
type ShadowMapper struct {
	backend    metadata.RendererBackend
	shaders    metadata.ShaderLoader
	config     Config
	imageCount uint32

	pass           *metadata.RenderPass
	passSetLayout  *metadata.DescriptorSetLayout
	lightSetLayout *metadata.DescriptorSetLayout
	sampler        *metadata.Sampler

	categories [categoryCount]*category
	frames     []*frameResources

	// Number of RenderShadowMaps calls so far. Drives deferred slot reuse.
	frameNumber uint64
}

func NewShadowMapper(backend metadata.RendererBackend, shaders metadata.ShaderLoader, config Config) (*ShadowMapper, error) {
	sm := &ShadowMapper{
		backend:    backend,
		shaders:    shaders,
		config:     config,
		imageCount: backend.SwapchainImageCount(),
	}
	sm.categories[scene.LIGHT_TYPE_DIRECTIONAL] = newCategory(scene.LIGHT_TYPE_DIRECTIONAL, MAX_DIRECTIONAL_LIGHTS, config.DirectionalResolution, metadata.IMAGE_TYPE_2D)
	sm.categories[scene.LIGHT_TYPE_POINT] = newCategory(scene.LIGHT_TYPE_POINT, MAX_POINT_LIGHTS, config.PointResolution, metadata.IMAGE_TYPE_CUBE)

	if err := sm.create(); err != nil {
		core.LogError("failed to create the shadow mapper: %s", err.Error())
		sm.Destroy()
		return nil, err
	}
	core.LogInfo("shadow mapper created (directional %dpx x%d, point %dpx x%d)",
		config.DirectionalResolution, MAX_DIRECTIONAL_LIGHTS, config.PointResolution, MAX_POINT_LIGHTS)
	return sm, nil
}

func newCategory(lightType scene.LightType, capacity int, resolution uint32, imageType metadata.ImageType) *category {
	return &category{
		lightType:  lightType,
		capacity:   capacity,
		resolution: resolution,
		imageType:  imageType,
		table:      containers.NewSlotTable[*scene.Light](capacity),
		slots:      make([]*slotResources, capacity),
		pending:    containers.NewRingQueue[pendingRelease](capacity),
	}
}

func (sm *ShadowMapper) create() error {
	var err error
	sm.pass, err = sm.backend.RenderPassCreate(metadata.RenderPassConfig{
		Name: "shadow",
		Attachments: []metadata.AttachmentConfig{{
			Role:          metadata.ATTACHMENT_ROLE_DEPTH,
			Format:        SHADOW_DEPTH_FORMAT,
			Samples:       1,
			Load:          metadata.ATTACHMENT_LOAD_OPERATION_CLEAR,
			Store:         metadata.ATTACHMENT_STORE_OPERATION_STORE,
			InitialLayout: metadata.IMAGE_LAYOUT_UNDEFINED,
			FinalLayout:   metadata.IMAGE_LAYOUT_TRANSFER_SRC,
		}},
	})
	if err != nil {
		return err
	}

	sm.passSetLayout, err = sm.backend.DescriptorSetLayoutCreate(metadata.DescriptorSetLayoutConfig{
		Name: "shadow_pass",
		Bindings: []metadata.DescriptorBinding{
			{Binding: shadowPassBindingUniform, Type: metadata.DESCRIPTOR_TYPE_UNIFORM_BUFFER, Count: 1, Stages: metadata.SHADER_STAGE_VERTEX | metadata.SHADER_STAGE_FRAGMENT},
		},
	})
	if err != nil {
		return err
	}

	sm.lightSetLayout, err = sm.backend.DescriptorSetLayoutCreate(metadata.DescriptorSetLayoutConfig{
		Name: "lights",
		Bindings: []metadata.DescriptorBinding{
			{Binding: lightBindingDirectional, Type: metadata.DESCRIPTOR_TYPE_UNIFORM_BUFFER, Count: 1, Stages: metadata.SHADER_STAGE_FRAGMENT},
			{Binding: lightBindingPoint, Type: metadata.DESCRIPTOR_TYPE_UNIFORM_BUFFER, Count: 1, Stages: metadata.SHADER_STAGE_FRAGMENT},
			{Binding: lightBindingDirectionalMaps, Type: metadata.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, Count: MAX_DIRECTIONAL_LIGHTS, Stages: metadata.SHADER_STAGE_FRAGMENT},
			{Binding: lightBindingPointMaps, Type: metadata.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, Count: MAX_POINT_LIGHTS, Stages: metadata.SHADER_STAGE_FRAGMENT},
		},
	})
	if err != nil {
		return err
	}

	sm.sampler, err = sm.backend.SamplerCreate(metadata.SamplerConfig{
		Name:        "shadow",
		Filter:      metadata.SAMPLER_FILTER_LINEAR,
		AddressMode: metadata.SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER,
		Compare:     true,
	})
	if err != nil {
		return err
	}

	for _, c := range sm.categories {
		if c.target, err = sm.createTarget(c); err != nil {
			return err
		}
		if c.dummy, err = sm.createShadowMap(fmt.Sprintf("shadow_dummy_%s", c.lightType), c.imageType, 1); err != nil {
			return err
		}
	}

	if err := sm.createPipelines(); err != nil {
		return err
	}

	sm.frames = make([]*frameResources, sm.imageCount)
	for i := range sm.frames {
		f, err := sm.createFrame(uint32(i))
		if err != nil {
			return err
		}
		sm.frames[i] = f
	}
	return nil
}

func (sm *ShadowMapper) createTarget(c *category) (*intermediateTarget, error) {
	img, err := sm.backend.ImageCreate(metadata.ImageConfig{
		Name:    fmt.Sprintf("shadow_intermediate_%s", c.lightType),
		Type:    metadata.IMAGE_TYPE_2D,
		Format:  SHADOW_DEPTH_FORMAT,
		Width:   c.resolution,
		Height:  c.resolution,
		Samples: 1,
		Usage:   metadata.IMAGE_USAGE_DEPTH_STENCIL_ATTACHMENT | metadata.IMAGE_USAGE_TRANSFER_SRC,
		Aspect:  metadata.IMAGE_ASPECT_DEPTH,
	})
	if err != nil {
		return nil, err
	}
	fb, err := sm.backend.FramebufferCreate(metadata.FramebufferConfig{
		Name:        img.Config.Name,
		Pass:        sm.pass,
		Attachments: []*metadata.Image{img},
		Width:       c.resolution,
		Height:      c.resolution,
	})
	if err != nil {
		sm.backend.ImageDestroy(img)
		return nil, err
	}
	return &intermediateTarget{image: img, framebuffer: fb, resolution: c.resolution}, nil
}

// createShadowMap allocates a sampled depth image, clears it to the far plane
// and leaves it shader readable, so it can be bound before it is ever rendered.
func (sm *ShadowMapper) createShadowMap(name string, imageType metadata.ImageType, resolution uint32) (*metadata.Image, error) {
	img, err := sm.backend.ImageCreate(metadata.ImageConfig{
		Name:    name,
		Type:    imageType,
		Format:  SHADOW_DEPTH_FORMAT,
		Width:   resolution,
		Height:  resolution,
		Samples: 1,
		Usage:   metadata.IMAGE_USAGE_SAMPLED | metadata.IMAGE_USAGE_TRANSFER_DST,
		Aspect:  metadata.IMAGE_ASPECT_DEPTH,
	})
	if err != nil {
		return nil, err
	}
	layers := img.Config.Layers()
	err = sm.backend.ImmediateSubmit(func(cmd metadata.CommandBuffer) {
		cmd.TransitionImageLayout(img, metadata.IMAGE_LAYOUT_UNDEFINED, metadata.IMAGE_LAYOUT_TRANSFER_DST, 0, layers)
		cmd.ClearDepthImage(img, 1.0)
		cmd.TransitionImageLayout(img, metadata.IMAGE_LAYOUT_TRANSFER_DST, metadata.IMAGE_LAYOUT_SHADER_READ_ONLY, 0, layers)
	})
	if err != nil {
		sm.backend.ImageDestroy(img)
		return nil, err
	}
	return img, nil
}

func (sm *ShadowMapper) createPipelines() error {
	builder := metadata.NewPipelineBuilder(
		metadata.WithRenderPass(sm.pass),
		metadata.WithVertexShader(shadowVertexShader),
		metadata.WithFragmentShader(shadowFragmentShader),
		metadata.WithSetLayouts(sm.passSetLayout),
		metadata.WithPushConstants(shadowPushConstantSize, metadata.SHADER_STAGE_VERTEX|metadata.SHADER_STAGE_FRAGMENT),
		metadata.WithColourAttachments(0),
		metadata.WithCullMode(metadata.CULL_MODE_NONE),
		metadata.WithDepthBias(sm.config.DepthBiasConstant, sm.config.DepthBiasSlope),
	)
	configs := [categoryCount]*metadata.PipelineConfig{
		scene.LIGHT_TYPE_DIRECTIONAL: builder.Derive(metadata.WithName("shadow_directional")),
		scene.LIGHT_TYPE_POINT: builder.Derive(
			metadata.WithName("shadow_point"),
			metadata.WithFragmentShader(shadowPointFragmentShader),
		),
	}
	for i, cfg := range configs {
		if err := metadata.LoadStages(sm.shaders, cfg); err != nil {
			return err
		}
		pipeline, err := sm.backend.PipelineCreate(*cfg)
		if err != nil {
			return err
		}
		sm.categories[i].pipeline = pipeline
	}
	return nil
}

func (sm *ShadowMapper) createFrame(frame uint32) (*frameResources, error) {
	f := &frameResources{}
	var err error
	f.directional, err = sm.backend.BufferCreate(metadata.BufferConfig{
		Name:        fmt.Sprintf("lights_directional_%d", frame),
		Usage:       metadata.BUFFER_USAGE_UNIFORM,
		Size:        uint64(len(metadata.Bytes(directionalLightsUniform{}))),
		HostVisible: true,
	})
	if err != nil {
		return nil, err
	}
	sm.frames[frame] = f
	f.point, err = sm.backend.BufferCreate(metadata.BufferConfig{
		Name:        fmt.Sprintf("lights_point_%d", frame),
		Usage:       metadata.BUFFER_USAGE_UNIFORM,
		Size:        uint64(len(metadata.Bytes(pointLightsUniform{}))),
		HostVisible: true,
	})
	if err != nil {
		return nil, err
	}
	f.set, err = sm.backend.DescriptorSetAllocate(sm.lightSetLayout)
	if err != nil {
		return nil, err
	}
	sm.backend.DescriptorSetWrite(f.set,
		metadata.BufferWrite(lightBindingDirectional, f.directional),
		metadata.BufferWrite(lightBindingPoint, f.point),
	)
	sm.writeShadowMaps(f, sm.dummyArray(scene.LIGHT_TYPE_DIRECTIONAL), sm.dummyArray(scene.LIGHT_TYPE_POINT))
	return f, nil
}

func (sm *ShadowMapper) dummyArray(lightType scene.LightType) []*metadata.Image {
	c := sm.categories[lightType]
	images := make([]*metadata.Image, c.capacity)
	for i := range images {
		images[i] = c.dummy
	}
	return images
}

func (sm *ShadowMapper) writeShadowMaps(f *frameResources, directional, point []*metadata.Image) {
	toDescriptors := func(images []*metadata.Image) []metadata.DescriptorImage {
		out := make([]metadata.DescriptorImage, len(images))
		for i, img := range images {
			out[i] = metadata.DescriptorImage{Image: img, Sampler: sm.sampler, Layout: metadata.IMAGE_LAYOUT_SHADER_READ_ONLY}
		}
		return out
	}
	sm.backend.DescriptorSetWrite(f.set,
		metadata.ImageWrite(lightBindingDirectionalMaps, toDescriptors(directional)...),
		metadata.ImageWrite(lightBindingPointMaps, toDescriptors(point)...),
	)
}

// LightSetLayout is the layout of the light set bound by the forward pass.
func (sm *ShadowMapper) LightSetLayout() *metadata.DescriptorSetLayout {
	return sm.lightSetLayout
}

// LightSet returns the light set of the given frame.
func (sm *ShadowMapper) LightSet(frame uint32) *metadata.DescriptorSet {
	return sm.frames[frame].set
}

// RebuildPipelines recreates both depth pipelines, e.g. after a shader changed.
// The device must be idle.
func (sm *ShadowMapper) RebuildPipelines() error {
	for _, c := range sm.categories {
		sm.backend.PipelineDestroy(c.pipeline)
		c.pipeline = nil
	}
	return sm.createPipelines()
}

// Destroy releases everything the mapper created, in reverse order. It is safe
// on a partially constructed mapper.
func (sm *ShadowMapper) Destroy() {
	for _, f := range sm.frames {
		if f == nil {
			continue
		}
		sm.backend.DescriptorSetFree(f.set)
		sm.backend.BufferDestroy(f.point)
		sm.backend.BufferDestroy(f.directional)
	}
	sm.frames = nil

	for _, c := range sm.categories {
		for i, s := range c.slots {
			if s != nil {
				sm.destroySlot(s)
				c.slots[i] = nil
			}
		}
		sm.backend.PipelineDestroy(c.pipeline)
		c.pipeline = nil
		sm.backend.ImageDestroy(c.dummy)
		c.dummy = nil
		if c.target != nil {
			sm.backend.FramebufferDestroy(c.target.framebuffer)
			sm.backend.ImageDestroy(c.target.image)
			c.target = nil
		}
	}

	sm.backend.SamplerDestroy(sm.sampler)
	sm.backend.DescriptorSetLayoutDestroy(sm.lightSetLayout)
	sm.backend.DescriptorSetLayoutDestroy(sm.passSetLayout)
	sm.backend.RenderPassDestroy(sm.pass)
	sm.sampler, sm.lightSetLayout, sm.passSetLayout, sm.pass = nil, nil, nil, nil
}

func (sm *ShadowMapper) destroySlot(s *slotResources) {
	for _, set := range s.sets {
		sm.backend.DescriptorSetFree(set)
	}
	for _, buf := range s.uniforms {
		sm.backend.BufferDestroy(buf)
	}
	sm.backend.ImageDestroy(s.shadowMap)
}
