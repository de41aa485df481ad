package metadata

/**
 * @brief The graphics API the frame graph records against.
 *
 * Creation calls return an error that has already been logged. Destroy
 * calls accept nil and are no-ops for it. Per frame resources are always
 * indexed by the frame index handed to BeginFrame, never by ambient state.
 */
type RendererBackend interface {
	ImageCreate(config ImageConfig) (*Image, error)
	ImageDestroy(image *Image)
	// ImageUpload copies pixels into every layer of a sampled image, layer after
	// layer, and leaves it shader readable.
	ImageUpload(image *Image, pixels []byte) error

	BufferCreate(config BufferConfig) (*Buffer, error)
	BufferDestroy(buffer *Buffer)
	// BufferLoad replaces the full contents of the buffer.
	BufferLoad(buffer *Buffer, data []byte) error

	SamplerCreate(config SamplerConfig) (*Sampler, error)
	SamplerDestroy(sampler *Sampler)

	RenderPassCreate(config RenderPassConfig) (*RenderPass, error)
	RenderPassDestroy(pass *RenderPass)
	FramebufferCreate(config FramebufferConfig) (*Framebuffer, error)
	FramebufferDestroy(framebuffer *Framebuffer)

	DescriptorSetLayoutCreate(config DescriptorSetLayoutConfig) (*DescriptorSetLayout, error)
	DescriptorSetLayoutDestroy(layout *DescriptorSetLayout)
	DescriptorSetAllocate(layout *DescriptorSetLayout) (*DescriptorSet, error)
	DescriptorSetFree(set *DescriptorSet)
	DescriptorSetWrite(set *DescriptorSet, writes ...DescriptorWrite)

	PipelineCreate(config PipelineConfig) (*Pipeline, error)
	PipelineDestroy(pipeline *Pipeline)
	ComputePipelineCreate(config ComputePipelineConfig) (*ComputePipeline, error)
	ComputePipelineDestroy(pipeline *ComputePipeline)

	// ImmediateSubmit records into a one-shot command buffer and waits for it to finish.
	ImmediateSubmit(record func(cmd CommandBuffer)) error

	// BeginFrame waits for the frame slot, acquires the next swapchain image and
	// starts recording. It returns core.ErrSwapchainBooting while the swapchain
	// is being recreated, in which case the frame must be skipped.
	BeginFrame(frame uint32) (cmd CommandBuffer, imageIndex uint32, err error)
	// EndFrame submits the recorded commands and presents the image.
	EndFrame(frame uint32) error
	Resized(width, height uint32)
	WaitIdle() error

	SwapchainImageCount() uint32
	SwapchainImages() []*Image
	SwapchainFormat() ImageFormat
	FramebufferSize() (width, height uint32)
	DepthFormat() ImageFormat
}

/**
 * @brief Commands recorded into one command buffer, executed in order.
 */
type CommandBuffer interface {
	BeginRenderPass(pass *RenderPass, framebuffer *Framebuffer, clearValues []ClearValue)
	EndRenderPass()
	SetViewport(x, y, width, height float32)
	SetScissor(x, y int32, width, height uint32)

	BindPipeline(pipeline *Pipeline)
	BindDescriptorSets(pipeline *Pipeline, firstSet uint32, sets ...*DescriptorSet)
	PushConstants(pipeline *Pipeline, data []byte)
	BindVertexBuffer(buffer *Buffer)
	BindIndexBuffer(buffer *Buffer)
	Draw(vertexCount uint32)
	DrawIndexed(indexCount uint32)

	BindComputePipeline(pipeline *ComputePipeline)
	BindComputeDescriptorSets(pipeline *ComputePipeline, sets ...*DescriptorSet)
	Dispatch(x, y, z uint32)

	// TransitionImageLayout moves layers [baseLayer, baseLayer+layerCount) of image between layouts.
	TransitionImageLayout(image *Image, from, to ImageLayout, baseLayer, layerCount uint32)
	// CopyImage copies layer 0 of src (TRANSFER_SRC) into dstLayer of dst (TRANSFER_DST).
	CopyImage(src, dst *Image, dstLayer uint32)
	// ClearDepthImage clears every layer of a depth image in TRANSFER_DST layout.
	ClearDepthImage(image *Image, depth float32)
}
