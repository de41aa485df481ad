package metadata

type DescriptorType int

const (
	DESCRIPTOR_TYPE_UNIFORM_BUFFER DescriptorType = iota
	DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER
	DESCRIPTOR_TYPE_STORAGE_IMAGE
)

type ShaderStage uint32

const (
	SHADER_STAGE_VERTEX   ShaderStage = 0x1
	SHADER_STAGE_FRAGMENT ShaderStage = 0x2
	SHADER_STAGE_COMPUTE  ShaderStage = 0x4
)

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	/** @brief Array length of the binding, 1 for plain bindings. */
	Count  uint32
	Stages ShaderStage
}

type DescriptorSetLayoutConfig struct {
	Name     string
	Bindings []DescriptorBinding
}

type DescriptorSetLayout struct {
	Config       DescriptorSetLayoutConfig
	InternalData interface{}
}

type DescriptorSet struct {
	Layout       *DescriptorSetLayout
	InternalData interface{}
}

type DescriptorImage struct {
	Image   *Image
	Sampler *Sampler
	Layout  ImageLayout
}

/**
 * @brief A write into one binding of a descriptor set. Either Buffers or
 * Images is set; array bindings receive one entry per element starting at 0.
 */
type DescriptorWrite struct {
	Binding uint32
	Buffers []*Buffer
	Images  []DescriptorImage
}

func BufferWrite(binding uint32, buffer *Buffer) DescriptorWrite {
	return DescriptorWrite{Binding: binding, Buffers: []*Buffer{buffer}}
}

func ImageWrite(binding uint32, images ...DescriptorImage) DescriptorWrite {
	return DescriptorWrite{Binding: binding, Images: images}
}
