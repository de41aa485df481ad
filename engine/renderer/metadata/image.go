package metadata

/**
 * @brief The pixel formats the renderer knows how to allocate.
 */
type ImageFormat int

const (
	IMAGE_FORMAT_UNDEFINED ImageFormat = iota
	/** @brief 8 bits per channel, linear. Used for data textures such as SSAO noise. */
	IMAGE_FORMAT_RGBA8_UNORM
	/** @brief 8 bits per channel, sRGB encoded. Used for colour textures. */
	IMAGE_FORMAT_RGBA8_SRGB
	/** @brief The presentable format picked by the swapchain. */
	IMAGE_FORMAT_BGRA8_SRGB
	/** @brief Half float colour. Used by every G-buffer target. */
	IMAGE_FORMAT_RGBA16_SFLOAT
	/** @brief Single channel half float. Used for occlusion. */
	IMAGE_FORMAT_R16_SFLOAT
	/** @brief Single channel float, storage capable. Used for the blurred occlusion. */
	IMAGE_FORMAT_R32_SFLOAT
	IMAGE_FORMAT_D32_SFLOAT
	IMAGE_FORMAT_D32_SFLOAT_S8_UINT
	IMAGE_FORMAT_D24_UNORM_S8_UINT
)

// IsDepth reports whether the format carries a depth component.
func (f ImageFormat) IsDepth() bool {
	return f == IMAGE_FORMAT_D32_SFLOAT || f == IMAGE_FORMAT_D32_SFLOAT_S8_UINT || f == IMAGE_FORMAT_D24_UNORM_S8_UINT
}

type ImageType int

const (
	IMAGE_TYPE_2D ImageType = iota
	/** @brief Six layer image viewed as a cube. */
	IMAGE_TYPE_CUBE
)

type ImageUsage uint32

const (
	IMAGE_USAGE_TRANSFER_SRC             ImageUsage = 0x1
	IMAGE_USAGE_TRANSFER_DST             ImageUsage = 0x2
	IMAGE_USAGE_SAMPLED                  ImageUsage = 0x4
	IMAGE_USAGE_STORAGE                  ImageUsage = 0x8
	IMAGE_USAGE_COLOUR_ATTACHMENT        ImageUsage = 0x10
	IMAGE_USAGE_DEPTH_STENCIL_ATTACHMENT ImageUsage = 0x20
	IMAGE_USAGE_TRANSIENT_ATTACHMENT     ImageUsage = 0x40
)

type ImageAspect uint32

const (
	IMAGE_ASPECT_COLOUR ImageAspect = 0x1
	IMAGE_ASPECT_DEPTH  ImageAspect = 0x2
)

/**
 * @brief The layouts an image moves through during a frame.
 */
type ImageLayout int

const (
	IMAGE_LAYOUT_UNDEFINED ImageLayout = iota
	IMAGE_LAYOUT_GENERAL
	IMAGE_LAYOUT_COLOUR_ATTACHMENT
	IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT
	IMAGE_LAYOUT_SHADER_READ_ONLY
	IMAGE_LAYOUT_TRANSFER_SRC
	IMAGE_LAYOUT_TRANSFER_DST
	IMAGE_LAYOUT_PRESENT_SRC
)

type ImageConfig struct {
	/** @brief Name used in log messages. */
	Name   string
	Type   ImageType
	Format ImageFormat
	Width  uint32
	Height uint32
	/** @brief Sample count, 1 for single sampled images. */
	Samples uint32
	Usage   ImageUsage
	Aspect  ImageAspect
}

// Layers returns the number of array layers implied by the image type.
func (c ImageConfig) Layers() uint32 {
	if c.Type == IMAGE_TYPE_CUBE {
		return 6
	}
	return 1
}

/**
 * @brief A device image together with its view and backing memory.
 * Owned by whoever created it and destroyed explicitly through the backend.
 */
type Image struct {
	Config ImageConfig
	/** @brief Internal backend image data. */
	InternalData interface{}
}

type SamplerFilter int

const (
	SAMPLER_FILTER_LINEAR SamplerFilter = iota
	SAMPLER_FILTER_NEAREST
)

type SamplerAddressMode int

const (
	SAMPLER_ADDRESS_MODE_REPEAT SamplerAddressMode = iota
	SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE
	/** @brief Clamps to an opaque white border. Used by shadow maps so outside samples are lit. */
	SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER
)

type SamplerConfig struct {
	Name        string
	Filter      SamplerFilter
	AddressMode SamplerAddressMode
	/** @brief Enables hardware depth comparison (less or equal). */
	Compare bool
}

type Sampler struct {
	Config       SamplerConfig
	InternalData interface{}
}
