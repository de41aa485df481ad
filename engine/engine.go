package engine

import (
	"errors"
	"sync"

	"github.com/spaghettifunk/penumbra/engine/assets"
	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/platform"
	"github.com/spaghettifunk/penumbra/engine/renderer"
	"github.com/spaghettifunk/penumbra/engine/renderer/vulkan"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	config       *config.EngineConfig
	game         Game

	platform *platform.Platform
	backend  *vulkan.VulkanBackend
	shaders  *assets.ShaderLibrary
	watcher  *assets.ShaderWatcher
	renderer *renderer.Renderer
	scene    *scene.Scene

	clock       *core.Clock
	lastTime    float64
	isSuspended bool
	width       uint32
	height      uint32

	shutdownOnce sync.Once
	shutdownErr  error
}

// New loads the engine configuration from configPath. A missing file runs
// with the defaults.
func New(g Game, configPath string) (*Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.SetLogLevel(cfg.Log.Level)

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		game:         g,
		platform:     p,
		clock:        core.NewClock(),
		width:        cfg.Application.StartWidth,
		height:       cfg.Application.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.config.Application
	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	var err error
	e.backend, err = vulkan.NewVulkanBackend(e.platform, e.config)
	if err != nil {
		return err
	}

	e.shaders = assets.NewShaderLibrary(e.config.Renderer.ShaderDir)
	e.renderer, err = renderer.NewRenderer(e.backend, e.shaders, e.config)
	if err != nil {
		return err
	}

	if e.config.Renderer.HotReload {
		e.watcher, err = assets.NewShaderWatcher(e.shaders, func(path string) {
			core.LogInfo("shader %s changed, rebuilding pipelines", path)
			e.renderer.MarkPipelinesDirty()
		})
		if err != nil {
			// The engine still runs without hot reload.
			core.LogWarn("shader hot reload disabled: %s", err.Error())
		}
	}

	e.scene, err = e.game.Initialize(e.renderer, e.width, e.height)
	if err != nil {
		return err
	}
	if e.scene == nil {
		return errors.New("game returned no scene")
	}

	e.platform.SetResizeCallback(e.onResized)
	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized (%dx%d)", e.width, e.height)
	return nil
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for !e.platform.ShouldClose() {
		if e.isSuspended {
			e.platform.WaitMessages()
			continue
		}
		e.platform.PumpMessages()

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if err := e.game.Update(delta, e.platform); err != nil {
			core.LogError("game update failed, shutting down: %s", err.Error())
			return err
		}
		if err := e.renderer.DrawFrame(e.scene, delta); err != nil {
			core.LogError("frame failed, shutting down: %s", err.Error())
			return err
		}
	}
	e.clock.Stop()
	return nil
}

// Shutdown releases everything in reverse creation order. Only the first call
// does any work.
func (e *Engine) Shutdown() error {
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		if e.platform.Window != nil {
			core.LogInfo("shutting down after %.1fs", e.platform.GetAbsoluteTime())
		}
		var errs []error
		if e.renderer != nil {
			if err := e.game.Shutdown(e.renderer); err != nil {
				errs = append(errs, err)
			}
			if err := e.renderer.Shutdown(); err != nil {
				errs = append(errs, err)
			}
		}
		if e.watcher != nil {
			if err := e.watcher.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if e.backend != nil {
			if err := e.backend.Shutdown(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := e.platform.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		e.shutdownErr = errors.Join(errs...)
		e.currentStage = EngineStageShutdown
	})
	return e.shutdownErr
}

// Stop asks the main loop to exit after the current frame.
func (e *Engine) Stop() {
	e.platform.RequestClose()
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onResized(width, height uint32) {
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	core.LogDebug("window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming application")
		e.isSuspended = false
		// Do not count the suspended time as frame time.
		e.clock.Update()
		e.lastTime = e.clock.Elapsed()
	}
	e.scene.Camera.AspectRatio = float32(width) / float32(height)
	e.backend.Resized(width, height)
}
