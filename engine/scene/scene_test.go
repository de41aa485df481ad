package scene

import (
	"testing"

	"github.com/spaghettifunk/penumbra/engine/containers"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitMesh() *Mesh {
	return &Mesh{
		Name:       "unit",
		IndexCount: 36,
		Extents:    math.NewExtents3D(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1)),
	}
}

func TestLightDefaults(t *testing.T) {
	sun := NewDirectionalLight("sun", math.NewQuatIdentity(), math.NewVec3One(), 3)
	assert.Equal(t, containers.InvalidSlot, sun.ShadowSlot)
	assert.False(t, sun.HasShadowSlot())
	assert.True(t, sun.Direction().Compare(math.NewVec3Forward(), 1e-5))

	down := NewDirectionalLight("down", math.NewQuatFromAxisAngle(math.NewVec3Right(), math.DegToRad(-90)), math.NewVec3One(), 1)
	assert.True(t, down.Direction().Compare(math.NewVec3Down(), 1e-5), "got %v", down.Direction())

	bulb := NewPointLight("bulb", math.NewVec3(1, 2, 3), math.NewVec3One(), 1, 10)
	assert.Equal(t, math.NewVec3(1, 2, 3), bulb.WorldPosition())
	assert.Equal(t, LIGHT_TYPE_POINT, bulb.Type)
}

func TestSceneBoundsAndVisibility(t *testing.T) {
	s := NewScene(nil)
	mat := NewMaterial("m", ALPHA_MODE_OPAQUE)
	a := NewMeshNode("a", unitMesh(), mat)
	b := NewMeshNode("b", unitMesh(), mat)
	b.Transform.SetPosition(math.NewVec3(10, 0, 0))
	hidden := NewMeshNode("hidden", unitMesh(), mat)
	hidden.Transform.SetPosition(math.NewVec3(-100, 0, 0))
	hidden.Visible = false
	s.AddNode(a)
	s.AddNode(b)
	s.AddNode(hidden)

	require.Len(t, s.VisibleNodes(), 2)
	bounds := s.Bounds()
	assert.Equal(t, math.NewVec3(-1, -1, -1), bounds.Min)
	assert.Equal(t, math.NewVec3(11, 1, 1), bounds.Max)
}

func TestRemoveLight(t *testing.T) {
	s := NewScene(nil)
	l1 := NewPointLight("1", math.NewVec3Zero(), math.NewVec3One(), 1, 5)
	l2 := NewPointLight("2", math.NewVec3Zero(), math.NewVec3One(), 1, 5)
	s.AddLight(l1)
	s.AddLight(l2)
	assert.True(t, s.RemoveLight(l1))
	assert.False(t, s.RemoveLight(l1))
	assert.Equal(t, []*Light{l2}, s.Lights)
	assert.Len(t, s.LightsOfType(LIGHT_TYPE_DIRECTIONAL), 0)
}

func TestCameraViewIsInverseWorld(t *testing.T) {
	c := NewCamera(math.DegToRad(60), 16.0/9.0, 0.1, 100)
	c.SetPosition(math.NewVec3(0, 2, 8))
	c.LookAt(math.NewVec3(0, 2, 0))

	assert.True(t, c.Forward().Compare(math.NewVec3Forward(), 1e-4), "got %v", c.Forward())
	assert.True(t, c.GetView().Mul(c.Transform.GetWorld()).Compare(math.NewMat4Identity(), 1e-4))

	origin := c.GetPosition().Transform(c.GetView())
	assert.True(t, origin.Compare(math.NewVec3Zero(), 1e-4))

	proj := c.GetProjection()
	assert.Less(t, proj.Data[5], float32(0))
	fov, near, far := proj.PerspectiveParams()
	assert.InDelta(t, math.DegToRad(60), fov, 1e-4)
	assert.InDelta(t, 0.1, near, 1e-4)
	assert.InDelta(t, 100, far, 1e-2)
}
