package metadata

type AttachmentRole int

const (
	ATTACHMENT_ROLE_COLOUR AttachmentRole = iota
	ATTACHMENT_ROLE_DEPTH
	/** @brief Single sample target a multisampled colour attachment resolves into. */
	ATTACHMENT_ROLE_RESOLVE
)

type AttachmentLoadOperation int

const (
	ATTACHMENT_LOAD_OPERATION_DONT_CARE AttachmentLoadOperation = iota
	ATTACHMENT_LOAD_OPERATION_LOAD
	ATTACHMENT_LOAD_OPERATION_CLEAR
)

type AttachmentStoreOperation int

const (
	ATTACHMENT_STORE_OPERATION_DONT_CARE AttachmentStoreOperation = iota
	ATTACHMENT_STORE_OPERATION_STORE
)

type AttachmentConfig struct {
	Role          AttachmentRole
	Format        ImageFormat
	Samples       uint32
	Load          AttachmentLoadOperation
	Store         AttachmentStoreOperation
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

/**
 * @brief Describes a render pass with a single subpass.
 *
 * Colour attachments are referenced in declaration order; resolve
 * attachments, when present, pair with the colour attachments in the
 * same order. At most one depth attachment is allowed.
 */
type RenderPassConfig struct {
	Name        string
	Attachments []AttachmentConfig
}

// ColourCount returns the number of colour attachments the subpass writes.
func (c RenderPassConfig) ColourCount() uint32 {
	var n uint32
	for _, a := range c.Attachments {
		if a.Role == ATTACHMENT_ROLE_COLOUR {
			n++
		}
	}
	return n
}

type RenderPass struct {
	Config       RenderPassConfig
	InternalData interface{}
}

type FramebufferConfig struct {
	Name string
	Pass *RenderPass
	/** @brief One image per render pass attachment, same order. */
	Attachments []*Image
	Width       uint32
	Height      uint32
}

type Framebuffer struct {
	Config       FramebufferConfig
	InternalData interface{}
}

/**
 * @brief A clear value for one attachment. Colour is used for colour
 * attachments, Depth and Stencil for the depth attachment.
 */
type ClearValue struct {
	Colour  [4]float32
	Depth   float32
	Stencil uint32
}

func ClearColour(r, g, b, a float32) ClearValue {
	return ClearValue{Colour: [4]float32{r, g, b, a}}
}

func ClearDepth(depth float32) ClearValue {
	return ClearValue{Depth: depth}
}
