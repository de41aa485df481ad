package scene

import (
	"github.com/spaghettifunk/penumbra/engine/math"
)

/**
 * @brief The lights, mesh nodes and camera rendered each frame.
 * Read only from the renderer's point of view, except for the
 * ShadowSlot of each light.
 */
type Scene struct {
	Camera *Camera
	Lights []*Light
	Nodes  []*MeshNode
	/** @brief Cube texture drawn as the skybox and sampled for indirect light. Optional. */
	Environment *Texture
	/** @brief Constant ambient term added to the indirect light. */
	AmbientColour math.Vec4
}

func NewScene(camera *Camera) *Scene {
	return &Scene{
		Camera:        camera,
		AmbientColour: math.NewVec4(0.03, 0.03, 0.03, 1.0),
	}
}

func (s *Scene) AddLight(light *Light) {
	s.Lights = append(s.Lights, light)
}

// RemoveLight detaches light from the scene. It reports whether the light was found.
func (s *Scene) RemoveLight(light *Light) bool {
	for i, l := range s.Lights {
		if l == light {
			s.Lights = append(s.Lights[:i], s.Lights[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scene) AddNode(node *MeshNode) {
	s.Nodes = append(s.Nodes, node)
}

// VisibleNodes returns the nodes that should be drawn this frame, in insertion order.
func (s *Scene) VisibleNodes() []*MeshNode {
	nodes := make([]*MeshNode, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.Visible && n.Mesh != nil && n.Material != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (s *Scene) LightsOfType(lightType LightType) []*Light {
	var lights []*Light
	for _, l := range s.Lights {
		if l.Type == lightType {
			lights = append(lights, l)
		}
	}
	return lights
}

// Bounds returns the world space box enclosing every visible node.
func (s *Scene) Bounds() math.Extents3D {
	bounds := math.NewExtents3DEmpty()
	for _, n := range s.VisibleNodes() {
		bounds = bounds.MakeFit(n.WorldExtents())
	}
	return bounds
}
