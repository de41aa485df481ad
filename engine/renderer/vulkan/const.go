package vulkan

/**
 * @brief Max number of descriptor sets allocated from the shared pool.
 * Covers per frame view and light sets, one set per material and the post chain.
 */
const VULKAN_MAX_DESCRIPTOR_SETS uint32 = 1024

/** @brief Uniform buffer descriptors available across all sets. */
const VULKAN_MAX_UNIFORM_BUFFERS uint32 = 2048

/**
 * @brief Combined image sampler descriptors available across all sets.
 * Light sets carry the shadow map arrays, so this is the largest pool.
 */
const VULKAN_MAX_IMAGE_SAMPLERS uint32 = 8192

/** @brief Storage image descriptors available across all sets. */
const VULKAN_MAX_STORAGE_IMAGES uint32 = 64
