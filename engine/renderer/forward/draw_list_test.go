package forward

import (
	"testing"

	"github.com/spaghettifunk/penumbra/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDrawList(t *testing.T) {
	stone := scene.NewMaterial("stone", scene.ALPHA_MODE_OPAQUE)
	leaves := scene.NewMaterial("leaves", scene.ALPHA_MODE_MASK)
	glass := scene.NewMaterial("glass", scene.ALPHA_MODE_BLEND)
	water := scene.NewMaterial("water", scene.ALPHA_MODE_BLEND)

	a := scene.NewMeshNode("a", testMesh("a"), stone)
	b := scene.NewMeshNode("b", testMesh("b"), water)
	c := scene.NewMeshNode("c", testMesh("c"), leaves)
	d := scene.NewMeshNode("d", testMesh("d"), stone)
	e := scene.NewMeshNode("e", testMesh("e"), glass)
	noMesh := scene.NewMeshNode("f", nil, stone)

	list := BuildDrawList([]*scene.MeshNode{a, b, c, d, e, noMesh})

	require.Len(t, list.Opaque, 2)
	assert.Same(t, leaves, list.Opaque[0].Material)
	assert.Same(t, stone, list.Opaque[1].Material)
	assert.Equal(t, []*scene.MeshNode{a, d}, list.Opaque[1].Nodes)

	require.Len(t, list.Transparent, 2)
	assert.Same(t, glass, list.Transparent[0].Material)
	assert.Same(t, water, list.Transparent[1].Material)

	assert.Equal(t, []*scene.Material{leaves, stone, glass, water}, list.Materials())
}

func TestBuildDrawListIsStable(t *testing.T) {
	m := scene.NewMaterial("m", scene.ALPHA_MODE_OPAQUE)
	nodes := []*scene.MeshNode{
		scene.NewMeshNode("x", testMesh("x"), m),
		scene.NewMeshNode("y", testMesh("y"), m),
	}
	assert.Equal(t, BuildDrawList(nodes), BuildDrawList(nodes))
	assert.Empty(t, BuildDrawList(nil).Opaque)
}

func TestBuildDrawListKeepsMaterialsSharingAName(t *testing.T) {
	matte := scene.NewMaterial("paint", scene.ALPHA_MODE_OPAQUE)
	tinted := scene.NewMaterial("paint", scene.ALPHA_MODE_BLEND)
	a := scene.NewMeshNode("a", testMesh("a"), matte)
	b := scene.NewMeshNode("b", testMesh("b"), tinted)

	list := BuildDrawList([]*scene.MeshNode{a, b})

	require.Len(t, list.Opaque, 1)
	assert.Same(t, matte, list.Opaque[0].Material)
	assert.Equal(t, []*scene.MeshNode{a}, list.Opaque[0].Nodes)
	require.Len(t, list.Transparent, 1)
	assert.Same(t, tinted, list.Transparent[0].Material)
	assert.Equal(t, []*scene.MeshNode{b}, list.Transparent[0].Nodes)
}

func TestBuildDrawListOrdersSameNameByFirstUse(t *testing.T) {
	first := scene.NewMaterial("brick", scene.ALPHA_MODE_OPAQUE)
	second := scene.NewMaterial("brick", scene.ALPHA_MODE_OPAQUE)
	ash := scene.NewMaterial("ash", scene.ALPHA_MODE_OPAQUE)
	nodes := []*scene.MeshNode{
		scene.NewMeshNode("x", testMesh("x"), second),
		scene.NewMeshNode("y", testMesh("y"), first),
		scene.NewMeshNode("z", testMesh("z"), ash),
		scene.NewMeshNode("w", testMesh("w"), second),
	}

	list := BuildDrawList(nodes)

	assert.Equal(t, []*scene.Material{ash, second, first}, list.Materials())
	require.Len(t, list.Opaque, 3)
	assert.Len(t, list.Opaque[1].Nodes, 2)
}
