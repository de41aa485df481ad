package scene

import (
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

/**
 * @brief GPU geometry: a vertex/index buffer pair and its local bounds.
 */
type Mesh struct {
	Name         string
	VertexBuffer *metadata.Buffer
	IndexBuffer  *metadata.Buffer
	VertexCount  uint32
	IndexCount   uint32
	/** @brief Bounds of the vertices in mesh space. */
	Extents math.Extents3D
}

/**
 * @brief An instance of a mesh in the world, drawn with one material.
 */
type MeshNode struct {
	Name      string
	Transform *math.Transform
	Mesh      *Mesh
	Material  *Material
	Visible   bool
}

func NewMeshNode(name string, mesh *Mesh, material *Material) *MeshNode {
	return &MeshNode{
		Name:      name,
		Transform: math.NewTransform(),
		Mesh:      mesh,
		Material:  material,
		Visible:   true,
	}
}

func (n *MeshNode) World() math.Mat4 {
	return n.Transform.GetWorld()
}

// WorldExtents returns the axis aligned box enclosing the mesh in world space.
func (n *MeshNode) WorldExtents() math.Extents3D {
	if n.Mesh == nil {
		return math.NewExtents3DEmpty()
	}
	return n.Mesh.Extents.Transform(n.World())
}
