//go:build release

package vulkan

const breakOnError = false
