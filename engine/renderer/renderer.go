package renderer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/forward"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/renderer/shadow"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

// Frames between two frame time reports.
const METRICS_LOG_INTERVAL = 600

type RendererType uint8

const (
	Vulkan RendererType = iota
)

/**
 * @brief Sequences a frame: shadow maps, uniforms, the G-buffer pass and
 * post processing, then hands the command buffer back for submission.
 *
 * The renderer is driven from a single thread. Only MarkPipelinesDirty may
 * be called from another goroutine.
 */
type Renderer struct {
	backend metadata.RendererBackend
	config  *config.EngineConfig

	shadows *shadow.ShadowMapper
	forward *forward.ForwardRenderer

	frame      uint32
	imageCount uint32
	frameCount uint64
	metrics    *core.FrameMetrics

	meshes   map[*scene.Mesh]struct{}
	textures map[*scene.Texture]struct{}
	// Lights already reported as having no free shadow slot.
	noSlotLogged map[*scene.Light]bool

	pipelinesDirty atomic.Bool
}

func NewRenderer(backend metadata.RendererBackend, shaders metadata.ShaderLoader, cfg *config.EngineConfig) (*Renderer, error) {
	r := &Renderer{
		backend:      backend,
		config:       cfg,
		imageCount:   backend.SwapchainImageCount(),
		metrics:      core.NewFrameMetrics(),
		meshes:       make(map[*scene.Mesh]struct{}),
		textures:     make(map[*scene.Texture]struct{}),
		noSlotLogged: make(map[*scene.Light]bool),
	}

	var err error
	r.shadows, err = shadow.NewShadowMapper(backend, shaders, shadow.Config{
		DirectionalResolution: cfg.Shadows.DirectionalResolution,
		PointResolution:       cfg.Shadows.PointResolution,
		PCFKernel:             cfg.Shadows.PCFKernel,
		DepthBiasConstant:     cfg.Shadows.DepthBiasConstant,
		DepthBiasSlope:        cfg.Shadows.DepthBiasSlope,
		DirectionalBias:       cfg.Shadows.DirectionalBias,
	})
	if err != nil {
		return nil, err
	}
	r.forward, err = forward.NewForwardRenderer(backend, shaders, r.shadows.LightSetLayout(), forward.Config{
		MSAASamples: cfg.Renderer.MSAASamples,
		SSAO:        cfg.SSAO,
		Post:        cfg.Post,
	})
	if err != nil {
		r.shadows.Destroy()
		return nil, err
	}
	return r, nil
}

// Frame returns the index of the next frame to be recorded.
func (r *Renderer) Frame() uint32 {
	return r.frame
}

// DrawFrame records and submits one frame of s. While the swapchain is being
// recreated the frame is skipped and the size dependent targets are rebuilt.
func (r *Renderer) DrawFrame(s *scene.Scene, deltaTime float64) error {
	if r.pipelinesDirty.Swap(false) {
		if err := r.rebuildPipelines(); err != nil {
			return err
		}
	}

	// Slot resources are created before the frame opens, so a failure here
	// leaves no acquired image behind.
	if err := r.assignShadowSlots(s.Lights); err != nil {
		return err
	}

	cmd, imageIndex, err := r.backend.BeginFrame(r.frame)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			width, height := r.backend.FramebufferSize()
			return r.Resize(width, height)
		}
		return err
	}

	nodes := s.VisibleNodes()
	list := forward.BuildDrawList(nodes)

	counts := r.shadows.RenderShadowMaps(cmd, r.frame, s.Lights, nodes)
	if err := r.forward.UpdateUniformBuffers(r.frame, s, list); err != nil {
		return r.abandonFrame(cmd, imageIndex, err)
	}
	r.forward.RenderForward(cmd, r.frame, list, counts, r.shadows.LightSet(r.frame))
	r.forward.RenderPostProcess(cmd, r.frame, imageIndex)

	if err := r.endFrame(); err != nil {
		return err
	}

	r.metrics.Update(deltaTime)
	r.frameCount++
	if r.frameCount%METRICS_LOG_INTERVAL == 0 {
		fps, ms := r.metrics.Frame()
		core.LogDebug("%.0f fps, %.2f ms/frame", fps, ms)
	}
	return nil
}

func (r *Renderer) endFrame() error {
	if err := r.backend.EndFrame(r.frame); err != nil {
		core.LogError("failed to end frame %d: %s", r.frame, err.Error())
		return err
	}
	r.frame = (r.frame + 1) % r.imageCount
	return nil
}

// abandonFrame submits what was recorded so far and presents the acquired
// image untouched, so its semaphores and fence are consumed as usual.
func (r *Renderer) abandonFrame(cmd metadata.CommandBuffer, imageIndex uint32, cause error) error {
	core.LogError("abandoning frame %d: %s", r.frame, cause.Error())
	target := r.backend.SwapchainImages()[imageIndex]
	cmd.TransitionImageLayout(target, metadata.IMAGE_LAYOUT_UNDEFINED, metadata.IMAGE_LAYOUT_PRESENT_SRC, 0, 1)
	return errors.Join(cause, r.endFrame())
}

// LightTarget returns the lit colour target of the most recently submitted
// frame, for debug views and captures. Nil before the first frame.
func (r *Renderer) LightTarget() *metadata.Image {
	if r.frameCount == 0 {
		return nil
	}
	return r.forward.LightTarget((r.frame + r.imageCount - 1) % r.imageCount)
}

// assignShadowSlots gives every shadow casting light a slot and takes it
// back from lights that stopped casting shadows.
func (r *Renderer) assignShadowSlots(lights []*scene.Light) error {
	for _, light := range lights {
		owned := r.shadows.OwnsShadowSlot(light)
		if !light.CastsShadows {
			if owned {
				if err := r.shadows.ReleaseLightShadowMappingResources(light); err != nil {
					return err
				}
			}
			continue
		}
		if owned {
			continue
		}
		if _, err := r.shadows.CreateLightShadowMappingResources(light); err != nil {
			if !errors.Is(err, core.ErrNoShadowSlot) {
				return err
			}
			if !r.noSlotLogged[light] {
				core.LogDebug("%s, rendering without shadows", err.Error())
				r.noSlotLogged[light] = true
			}
		}
	}
	return nil
}

// RemoveLight removes light from s and schedules its shadow slot for reuse.
func (r *Renderer) RemoveLight(s *scene.Scene, light *scene.Light) error {
	if !s.RemoveLight(light) {
		return nil
	}
	delete(r.noSlotLogged, light)
	return r.shadows.ReleaseLightShadowMappingResources(light)
}

// MarkPipelinesDirty asks for every pipeline to be rebuilt before the next
// frame. Safe to call from any goroutine.
func (r *Renderer) MarkPipelinesDirty() {
	r.pipelinesDirty.Store(true)
}

func (r *Renderer) rebuildPipelines() error {
	if err := r.backend.WaitIdle(); err != nil {
		return err
	}
	if err := r.shadows.RebuildPipelines(); err != nil {
		return err
	}
	if err := r.forward.RebuildPipelines(); err != nil {
		return err
	}
	core.LogInfo("pipelines rebuilt")
	return nil
}

// Resize rebuilds the size dependent targets once the backend swapchain
// matches width x height.
func (r *Renderer) Resize(width, height uint32) error {
	if err := r.backend.WaitIdle(); err != nil {
		return err
	}
	return r.forward.Resize(width, height)
}

// UploadMesh copies the geometry to device buffers. Nothing is left behind
// when it fails.
func (r *Renderer) UploadMesh(name string, vertices []math.Vertex3D, indices []uint32) (*scene.Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("mesh %s has no geometry: %w", name, core.ErrMeshLoad)
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("mesh %s index %d out of range: %w", name, idx, core.ErrMeshLoad)
		}
	}

	vertexData := metadata.Bytes(vertices)
	indexData := metadata.Bytes(indices)
	mesh := &scene.Mesh{
		Name:        name,
		VertexCount: uint32(len(vertices)),
		IndexCount:  uint32(len(indices)),
		Extents:     math.ExtentsFromVertices(vertices),
	}

	fail := func(err error) (*scene.Mesh, error) {
		r.backend.BufferDestroy(mesh.IndexBuffer)
		r.backend.BufferDestroy(mesh.VertexBuffer)
		return nil, fmt.Errorf("mesh %s: %w: %w", name, core.ErrMeshLoad, err)
	}

	var err error
	if mesh.VertexBuffer, err = r.backend.BufferCreate(metadata.BufferConfig{Name: name + "_vertices", Usage: metadata.BUFFER_USAGE_VERTEX, Size: uint64(len(vertexData))}); err != nil {
		return fail(err)
	}
	if err = r.backend.BufferLoad(mesh.VertexBuffer, vertexData); err != nil {
		return fail(err)
	}
	if mesh.IndexBuffer, err = r.backend.BufferCreate(metadata.BufferConfig{Name: name + "_indices", Usage: metadata.BUFFER_USAGE_INDEX, Size: uint64(len(indexData))}); err != nil {
		return fail(err)
	}
	if err = r.backend.BufferLoad(mesh.IndexBuffer, indexData); err != nil {
		return fail(err)
	}

	r.meshes[mesh] = struct{}{}
	core.LogDebug("uploaded mesh %s (%d vertices, %d indices)", name, mesh.VertexCount, mesh.IndexCount)
	return mesh, nil
}

// DestroyMesh releases the buffers of a mesh created by UploadMesh. The
// device must be idle.
func (r *Renderer) DestroyMesh(mesh *scene.Mesh) {
	if _, ok := r.meshes[mesh]; !ok {
		return
	}
	r.backend.BufferDestroy(mesh.IndexBuffer)
	r.backend.BufferDestroy(mesh.VertexBuffer)
	mesh.IndexBuffer, mesh.VertexBuffer = nil, nil
	delete(r.meshes, mesh)
}

// UploadTexture creates a sampled RGBA8 texture. Cube textures take their six
// faces one after the other in pixels.
func (r *Renderer) UploadTexture(name string, imageType metadata.ImageType, format metadata.ImageFormat, width, height uint32, pixels []byte) (*scene.Texture, error) {
	imageConfig := metadata.ImageConfig{
		Name:    name,
		Type:    imageType,
		Format:  format,
		Width:   width,
		Height:  height,
		Samples: 1,
		Usage:   metadata.IMAGE_USAGE_SAMPLED | metadata.IMAGE_USAGE_TRANSFER_DST,
		Aspect:  metadata.IMAGE_ASPECT_COLOUR,
	}
	expected := int(width*height*4) * int(imageConfig.Layers())
	if width == 0 || height == 0 || len(pixels) != expected {
		return nil, fmt.Errorf("texture %s: %d bytes for %dx%dx%d: %w", name, len(pixels), width, height, imageConfig.Layers(), core.ErrTextureLoad)
	}
	img, err := r.backend.ImageCreate(imageConfig)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w: %w", name, core.ErrTextureLoad, err)
	}
	if err := r.backend.ImageUpload(img, pixels); err != nil {
		r.backend.ImageDestroy(img)
		return nil, fmt.Errorf("texture %s: %w: %w", name, core.ErrTextureLoad, err)
	}
	texture := &scene.Texture{Name: name, Image: img}
	r.textures[texture] = struct{}{}
	return texture, nil
}

// Shutdown waits for the device and destroys everything the renderer owns.
func (r *Renderer) Shutdown() error {
	err := r.backend.WaitIdle()
	r.forward.Destroy()
	r.shadows.Destroy()
	for mesh := range r.meshes {
		r.DestroyMesh(mesh)
	}
	for texture := range r.textures {
		r.backend.ImageDestroy(texture.Image)
		texture.Image = nil
	}
	r.textures = make(map[*scene.Texture]struct{})
	core.LogInfo("renderer shut down after %d frames", r.frameCount)
	return err
}
