package engine

import (
	"github.com/spaghettifunk/penumbra/engine/platform"
	"github.com/spaghettifunk/penumbra/engine/renderer"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

/**
 * @brief The application driven by the engine loop.
 */
type Game interface {
	// Initialize uploads the game's resources and returns the scene to draw.
	Initialize(r *renderer.Renderer, width, height uint32) (*scene.Scene, error)
	// Update runs once per frame before the scene is drawn.
	Update(deltaTime float64, p *platform.Platform) error
	// Shutdown runs before the renderer is torn down.
	Shutdown(r *renderer.Renderer) error
}
