package core

import (
	"errors"
)

var (
	ErrSwapchainBooting   = errors.New("swapchain resized or recreated, booting")
	ErrNoShadowSlot       = errors.New("no free shadow slot for light type")
	ErrMeshLoad           = errors.New("failed to load mesh")
	ErrTextureLoad        = errors.New("failed to load texture")
	ErrPipelineCacheStale = errors.New("pipeline cache does not match the current device")
	ErrShaderNotFound     = errors.New("shader binary not found")
	ErrUnknown            = errors.New("unknown")
)
