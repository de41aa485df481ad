package metadata

type BufferUsage int

const (
	BUFFER_USAGE_VERTEX BufferUsage = iota
	BUFFER_USAGE_INDEX
	BUFFER_USAGE_UNIFORM
	BUFFER_USAGE_STAGING
)

type BufferConfig struct {
	Name  string
	Usage BufferUsage
	/** @brief Size in bytes, fixed for the lifetime of the buffer. */
	Size uint64
	/**
	 * @brief Host visible buffers are written with map/copy/unmap.
	 * Device local buffers are written through a staging copy.
	 */
	HostVisible bool
}

/**
 * @brief A device buffer with its backing memory.
 *
 * The only write operation replaces the full contents.
 */
type Buffer struct {
	Config       BufferConfig
	InternalData interface{}
}
