package rendertest

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

/**
 * @brief A RendererBackend that records instead of rendering.
 *
 * Every created handle is tracked until destroyed so tests can assert that
 * owners release everything they allocate. Command buffers keep the full
 * call sequence in order.
 */
type Backend struct {
	mu sync.Mutex

	ImageCount uint32
	Width      uint32
	Height     uint32
	// Booting makes the next BeginFrame report core.ErrSwapchainBooting once.
	Booting bool
	// FailOn makes the create call of the named kind ("image", "pipeline", ...) fail.
	FailOn string

	live      map[interface{}]string
	swapchain []*metadata.Image

	// Last contents written to each buffer.
	BufferData map[*metadata.Buffer][]byte
	// Last write per binding of each descriptor set.
	SetWrites map[*metadata.DescriptorSet]map[uint32]metadata.DescriptorWrite
	Uploads   map[*metadata.Image][]byte

	Frames      []*CommandBuffer
	FrameIndex  []uint32
	Immediate   []*CommandBuffer
	Ended       []uint32
	WaitIdles   int
	ResizeCalls [][2]uint32

	nextImage uint32
}

func NewBackend(imageCount, width, height uint32) *Backend {
	b := &Backend{
		ImageCount: imageCount,
		Width:      width,
		Height:     height,
		live:       make(map[interface{}]string),
		BufferData: make(map[*metadata.Buffer][]byte),
		SetWrites:  make(map[*metadata.DescriptorSet]map[uint32]metadata.DescriptorWrite),
		Uploads:    make(map[*metadata.Image][]byte),
	}
	b.createSwapchainImages()
	return b
}

func (b *Backend) createSwapchainImages() {
	b.swapchain = make([]*metadata.Image, b.ImageCount)
	for i := range b.swapchain {
		b.swapchain[i] = &metadata.Image{Config: metadata.ImageConfig{
			Name:    fmt.Sprintf("swapchain_%d", i),
			Format:  metadata.IMAGE_FORMAT_BGRA8_SRGB,
			Width:   b.Width,
			Height:  b.Height,
			Samples: 1,
			Usage:   metadata.IMAGE_USAGE_COLOUR_ATTACHMENT,
			Aspect:  metadata.IMAGE_ASPECT_COLOUR,
		}}
	}
}

func (b *Backend) track(handle interface{}, kind string) error {
	if b.FailOn == kind {
		return fmt.Errorf("%s creation failed", kind)
	}
	b.mu.Lock()
	b.live[handle] = kind
	b.mu.Unlock()
	return nil
}

func (b *Backend) untrack(handle interface{}) {
	b.mu.Lock()
	delete(b.live, handle)
	b.mu.Unlock()
}

// Live returns the number of live handles, optionally restricted to one kind.
func (b *Backend) Live(kind ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(kind) == 0 {
		return len(b.live)
	}
	n := 0
	for _, k := range b.live {
		if k == kind[0] {
			n++
		}
	}
	return n
}

// IsLive reports whether handle was created and not yet destroyed.
func (b *Backend) IsLive(handle interface{}) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[handle]
	return ok
}

// LastFrame returns the most recently begun frame's commands.
func (b *Backend) LastFrame() *CommandBuffer {
	if len(b.Frames) == 0 {
		return nil
	}
	return b.Frames[len(b.Frames)-1]
}

func (b *Backend) ImageCreate(config metadata.ImageConfig) (*metadata.Image, error) {
	img := &metadata.Image{Config: config}
	if err := b.track(img, "image"); err != nil {
		return nil, err
	}
	return img, nil
}

func (b *Backend) ImageDestroy(image *metadata.Image) {
	if image != nil {
		b.untrack(image)
	}
}

func (b *Backend) ImageUpload(image *metadata.Image, pixels []byte) error {
	b.Uploads[image] = append([]byte(nil), pixels...)
	return nil
}

func (b *Backend) BufferCreate(config metadata.BufferConfig) (*metadata.Buffer, error) {
	buf := &metadata.Buffer{Config: config}
	if err := b.track(buf, "buffer"); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *Backend) BufferDestroy(buffer *metadata.Buffer) {
	if buffer != nil {
		b.untrack(buffer)
		delete(b.BufferData, buffer)
	}
}

func (b *Backend) BufferLoad(buffer *metadata.Buffer, data []byte) error {
	if uint64(len(data)) > buffer.Config.Size {
		return fmt.Errorf("buffer %s: %d bytes do not fit in %d", buffer.Config.Name, len(data), buffer.Config.Size)
	}
	b.BufferData[buffer] = append([]byte(nil), data...)
	return nil
}

func (b *Backend) SamplerCreate(config metadata.SamplerConfig) (*metadata.Sampler, error) {
	s := &metadata.Sampler{Config: config}
	if err := b.track(s, "sampler"); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *Backend) SamplerDestroy(sampler *metadata.Sampler) {
	if sampler != nil {
		b.untrack(sampler)
	}
}

func (b *Backend) RenderPassCreate(config metadata.RenderPassConfig) (*metadata.RenderPass, error) {
	p := &metadata.RenderPass{Config: config}
	if err := b.track(p, "renderpass"); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Backend) RenderPassDestroy(pass *metadata.RenderPass) {
	if pass != nil {
		b.untrack(pass)
	}
}

func (b *Backend) FramebufferCreate(config metadata.FramebufferConfig) (*metadata.Framebuffer, error) {
	if len(config.Attachments) != len(config.Pass.Config.Attachments) {
		return nil, fmt.Errorf("framebuffer %s: %d attachments for a pass with %d", config.Name, len(config.Attachments), len(config.Pass.Config.Attachments))
	}
	fb := &metadata.Framebuffer{Config: config}
	if err := b.track(fb, "framebuffer"); err != nil {
		return nil, err
	}
	return fb, nil
}

func (b *Backend) FramebufferDestroy(framebuffer *metadata.Framebuffer) {
	if framebuffer != nil {
		b.untrack(framebuffer)
	}
}

func (b *Backend) DescriptorSetLayoutCreate(config metadata.DescriptorSetLayoutConfig) (*metadata.DescriptorSetLayout, error) {
	l := &metadata.DescriptorSetLayout{Config: config}
	if err := b.track(l, "layout"); err != nil {
		return nil, err
	}
	return l, nil
}

func (b *Backend) DescriptorSetLayoutDestroy(layout *metadata.DescriptorSetLayout) {
	if layout != nil {
		b.untrack(layout)
	}
}

func (b *Backend) DescriptorSetAllocate(layout *metadata.DescriptorSetLayout) (*metadata.DescriptorSet, error) {
	s := &metadata.DescriptorSet{Layout: layout}
	if err := b.track(s, "set"); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *Backend) DescriptorSetFree(set *metadata.DescriptorSet) {
	if set != nil {
		b.untrack(set)
		delete(b.SetWrites, set)
	}
}

func (b *Backend) DescriptorSetWrite(set *metadata.DescriptorSet, writes ...metadata.DescriptorWrite) {
	bindings, ok := b.SetWrites[set]
	if !ok {
		bindings = make(map[uint32]metadata.DescriptorWrite)
		b.SetWrites[set] = bindings
	}
	for _, w := range writes {
		bindings[w.Binding] = w
	}
}

func (b *Backend) PipelineCreate(config metadata.PipelineConfig) (*metadata.Pipeline, error) {
	for _, stage := range config.Stages {
		if len(stage.Code) == 0 {
			return nil, fmt.Errorf("pipeline %s: stage %s has no code", config.Name, stage.Path)
		}
	}
	p := &metadata.Pipeline{Config: config}
	if err := b.track(p, "pipeline"); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Backend) PipelineDestroy(pipeline *metadata.Pipeline) {
	if pipeline != nil {
		b.untrack(pipeline)
	}
}

func (b *Backend) ComputePipelineCreate(config metadata.ComputePipelineConfig) (*metadata.ComputePipeline, error) {
	if len(config.Shader.Code) == 0 {
		return nil, fmt.Errorf("compute pipeline %s has no code", config.Name)
	}
	p := &metadata.ComputePipeline{Config: config}
	if err := b.track(p, "compute"); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Backend) ComputePipelineDestroy(pipeline *metadata.ComputePipeline) {
	if pipeline != nil {
		b.untrack(pipeline)
	}
}

func (b *Backend) ImmediateSubmit(record func(cmd metadata.CommandBuffer)) error {
	cmd := &CommandBuffer{}
	record(cmd)
	b.Immediate = append(b.Immediate, cmd)
	return nil
}

func (b *Backend) BeginFrame(frame uint32) (metadata.CommandBuffer, uint32, error) {
	if b.Booting {
		b.Booting = false
		return nil, 0, core.ErrSwapchainBooting
	}
	cmd := &CommandBuffer{}
	b.Frames = append(b.Frames, cmd)
	b.FrameIndex = append(b.FrameIndex, frame)
	imageIndex := b.nextImage
	b.nextImage = (b.nextImage + 1) % b.ImageCount
	return cmd, imageIndex, nil
}

func (b *Backend) EndFrame(frame uint32) error {
	b.Ended = append(b.Ended, frame)
	return nil
}

func (b *Backend) Resized(width, height uint32) {
	b.Width = width
	b.Height = height
	b.ResizeCalls = append(b.ResizeCalls, [2]uint32{width, height})
	b.createSwapchainImages()
}

func (b *Backend) WaitIdle() error {
	b.WaitIdles++
	return nil
}

func (b *Backend) SwapchainImageCount() uint32 {
	return b.ImageCount
}

func (b *Backend) SwapchainImages() []*metadata.Image {
	return b.swapchain
}

func (b *Backend) SwapchainFormat() metadata.ImageFormat {
	return metadata.IMAGE_FORMAT_BGRA8_SRGB
}

func (b *Backend) FramebufferSize() (uint32, uint32) {
	return b.Width, b.Height
}

func (b *Backend) DepthFormat() metadata.ImageFormat {
	return metadata.IMAGE_FORMAT_D32_SFLOAT
}

var _ metadata.RendererBackend = (*Backend)(nil)
