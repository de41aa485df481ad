package testbed

import (
	"fmt"

	"github.com/spaghettifunk/penumbra/engine"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/platform"
	"github.com/spaghettifunk/penumbra/engine/renderer"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

const (
	cubeCount      = 12
	checkerSize    = 64
	environmentDim = 16
	sceneSeed      = 1337

	moveSpeed float32 = 8.0
	turnSpeed float32 = 1.5
)

var _ engine.Game = (*TestGame)(nil)

/**
 * @brief A ground plane with a ring of cubes, lit by a sun and two orbiting
 * point lights.
 */
type TestGame struct {
	scene  *scene.Scene
	camera *scene.Camera

	spinning []*scene.MeshNode
	orbiting []*scene.Light
	time     float64
}

func NewTestGame() *TestGame {
	return &TestGame{}
}

func (g *TestGame) Initialize(r *renderer.Renderer, width, height uint32) (*scene.Scene, error) {
	core.LogDebug("TestGame Initialize fn....")

	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	g.camera = scene.NewCamera(math.DegToRad(60), aspect, 0.1, 200.0)
	g.camera.SetPosition(math.NewVec3(0, 6, 18))
	g.camera.LookAt(math.NewVec3Zero())
	g.scene = scene.NewScene(g.camera)

	cubeVertices, cubeIndices := math.GeometryGenerateCube(1, 1, 1, math.NewVec4(1, 1, 1, 1))
	math.GeometryGenerateTangents(cubeVertices, cubeIndices)
	cube, err := r.UploadMesh("cube", cubeVertices, cubeIndices)
	if err != nil {
		return nil, err
	}
	planeVertices, planeIndices := math.GeometryGeneratePlane(60, 60, math.NewVec4(1, 1, 1, 1))
	math.GeometryGenerateTangents(planeVertices, planeIndices)
	plane, err := r.UploadMesh("ground", planeVertices, planeIndices)
	if err != nil {
		return nil, err
	}

	checker, err := r.UploadTexture("checker", metadata.IMAGE_TYPE_2D, metadata.IMAGE_FORMAT_RGBA8_SRGB, checkerSize, checkerSize, checkerPixels(checkerSize, 8))
	if err != nil {
		return nil, err
	}
	environment, err := r.UploadTexture("sky", metadata.IMAGE_TYPE_CUBE, metadata.IMAGE_FORMAT_RGBA8_SRGB, environmentDim, environmentDim, skyPixels(environmentDim))
	if err != nil {
		return nil, err
	}
	g.scene.Environment = environment

	ground := scene.NewMaterial("ground", scene.ALPHA_MODE_OPAQUE)
	ground.Textures[scene.TEXTURE_USE_ALBEDO] = checker
	ground.Params.Roughness = 0.9

	solid := scene.NewMaterial("solid", scene.ALPHA_MODE_OPAQUE)
	solid.Params.BaseColourFactor = math.NewVec4(0.8, 0.3, 0.2, 1)
	solid.Params.Metallic = 0.3

	cutout := scene.NewMaterial("lattice", scene.ALPHA_MODE_MASK)
	cutout.Textures[scene.TEXTURE_USE_ALBEDO] = checker
	cutout.Params.BaseColourFactor = math.NewVec4(0.9, 0.9, 0.9, 0.4)

	glass := scene.NewMaterial("glass", scene.ALPHA_MODE_BLEND)
	glass.Params.BaseColourFactor = math.NewVec4(0.3, 0.6, 0.9, 0.35)
	glass.Params.Roughness = 0.1

	groundNode := scene.NewMeshNode("ground", plane, ground)
	groundNode.Transform.SetPosition(math.NewVec3(0, -0.5, 0))
	g.scene.AddNode(groundNode)

	materials := []*scene.Material{solid, cutout, glass}
	rng := math.NewRandom(sceneSeed)
	for i := 0; i < cubeCount; i++ {
		angle := float32(i) * 2 * math.K_PI / cubeCount
		radius := rng.Float32InRange(4, 8)
		size := rng.Float32InRange(0.6, 1.6)

		node := scene.NewMeshNode(fmt.Sprintf("cube_%d", i), cube, materials[i%len(materials)])
		node.Transform.SetPosition(math.NewVec3(radius*math.Cos(angle), size*0.5, radius*math.Sin(angle)))
		node.Transform.SetScale(math.NewVec3(size, size, size))
		g.scene.AddNode(node)
		if i%2 == 0 {
			g.spinning = append(g.spinning, node)
		}
	}

	sun := scene.NewDirectionalLight("sun", math.NewQuatFromEuler(-math.DegToRad(55), math.DegToRad(30), 0), math.NewVec3(1.0, 0.95, 0.85), 3.0)
	g.scene.AddLight(sun)

	warm := scene.NewPointLight("warm", math.NewVec3(3, 2.5, 0), math.NewVec3(1.0, 0.6, 0.3), 8.0, 12.0)
	cold := scene.NewPointLight("cold", math.NewVec3(-3, 2.5, 0), math.NewVec3(0.3, 0.5, 1.0), 8.0, 12.0)
	g.scene.AddLight(warm)
	g.scene.AddLight(cold)
	g.orbiting = []*scene.Light{warm, cold}

	core.LogInfo("testbed scene ready: %d nodes, %d lights", len(g.scene.Nodes), len(g.scene.Lights))
	return g.scene, nil
}

func (g *TestGame) Update(deltaTime float64, p *platform.Platform) error {
	dt := float32(deltaTime)
	g.time += deltaTime

	if p.IsKeyDown(platform.KeyLeft) {
		g.camera.Yaw(turnSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyRight) {
		g.camera.Yaw(-turnSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyUp) {
		g.camera.Pitch(turnSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyDown) {
		g.camera.Pitch(-turnSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyW) {
		g.camera.MoveForward(moveSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyS) {
		g.camera.MoveForward(-moveSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyA) {
		g.camera.MoveRight(-moveSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyD) {
		g.camera.MoveRight(moveSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyQ) {
		g.camera.MoveUp(-moveSpeed * dt)
	}
	if p.IsKeyDown(platform.KeyE) {
		g.camera.MoveUp(moveSpeed * dt)
	}

	rotation := math.NewQuatFromAxisAngle(math.NewVec3Up(), 0.5*dt)
	for _, n := range g.spinning {
		n.Transform.Rotate(rotation)
	}

	for i, l := range g.orbiting {
		angle := float32(g.time)*0.7 + float32(i)*math.K_PI
		l.Transform.SetPosition(math.NewVec3(3*math.Cos(angle), 2.5, 3*math.Sin(angle)))
	}
	return nil
}

func (g *TestGame) Shutdown(r *renderer.Renderer) error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}

// checkerPixels returns an RGBA8 checkerboard of size x size with square cells.
func checkerPixels(size, cell uint32) []byte {
	pixels := make([]byte, 0, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			v := byte(200)
			if (x/cell+y/cell)%2 == 1 {
				v = 60
			}
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return pixels
}

// skyPixels returns six cube faces fading from a horizon colour to the zenith.
// The faces are in +X, -X, +Y, -Y, +Z, -Z order.
func skyPixels(size uint32) []byte {
	horizon := math.NewVec3(0.75, 0.8, 0.9)
	zenith := math.NewVec3(0.2, 0.35, 0.7)
	ground := math.NewVec3(0.25, 0.22, 0.2)

	pixels := make([]byte, 0, 6*size*size*4)
	for face := 0; face < 6; face++ {
		for y := uint32(0); y < size; y++ {
			// 0 at the top row, 1 at the bottom.
			t := (float32(y) + 0.5) / float32(size)
			for x := uint32(0); x < size; x++ {
				var c math.Vec3
				switch face {
				case 2:
					c = zenith
				case 3:
					c = ground
				default:
					if t < 0.5 {
						c = lerpColour(zenith, horizon, t*2)
					} else {
						c = lerpColour(horizon, ground, (t-0.5)*2)
					}
				}
				pixels = append(pixels, byte(c.X*255), byte(c.Y*255), byte(c.Z*255), 255)
			}
		}
	}
	return pixels
}

func lerpColour(a, b math.Vec3, t float32) math.Vec3 {
	return math.NewVec3(math.Lerp(a.X, b.X, t), math.Lerp(a.Y, b.Y, t), math.Lerp(a.Z, b.Z, t))
}
