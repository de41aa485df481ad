package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-4

func TestMat4InverseRoundTrip(t *testing.T) {
	tr := NewTransformFrom(
		NewVec3(3, -2, 7),
		NewQuatFromAxisAngle(NewVec3(1, 1, 0), DegToRad(37)),
		NewVec3(2, 2, 2),
	)
	m := tr.GetLocal()
	assert.True(t, m.Mul(m.Inverse()).Compare(NewMat4Identity(), tolerance))
	assert.True(t, m.Inverse().Mul(m).Compare(NewMat4Identity(), tolerance))
}

func TestMat4InverseSingular(t *testing.T) {
	assert.Equal(t, NewMat4Identity(), Mat4{}.Inverse())
}

func TestQuaternionRotation(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3Back(), DegToRad(90))
	got := q.Rotate(NewVec3Right())
	assert.True(t, got.Compare(NewVec3Up(), tolerance), "got %v", got)

	yaw := NewQuatFromAxisAngle(NewVec3Up(), DegToRad(90))
	got = yaw.Rotate(NewVec3Forward())
	assert.True(t, got.Compare(NewVec3Left(), tolerance), "got %v", got)
}

func TestTransformOrder(t *testing.T) {
	tr := NewTransformFrom(NewVec3(10, 0, 0), NewQuatFromAxisAngle(NewVec3Up(), DegToRad(90)), NewVec3(2, 2, 2))
	// scale, then rotate (-Z turns to -X), then translate
	got := NewVec3(0, 0, -1).Transform(tr.GetWorld())
	assert.True(t, got.Compare(NewVec3(8, 0, 0), tolerance), "got %v", got)

	parent := NewTransformFrom(NewVec3(0, 5, 0), NewQuatIdentity(), NewVec3One())
	tr.Parent = parent
	got = NewVec3(0, 0, -1).Transform(tr.GetWorld())
	assert.True(t, got.Compare(NewVec3(8, 5, 0), tolerance), "got %v", got)
}

func TestLookAt(t *testing.T) {
	eye := NewVec3(0, 0, 5)
	view := NewMat4LookAt(eye, NewVec3Zero(), NewVec3Up())
	assert.True(t, view.ViewDirection().Compare(NewVec3Forward(), tolerance))

	// the eye maps to the origin, the target sits in front (negative z)
	assert.True(t, eye.Transform(view).Compare(NewVec3Zero(), tolerance))
	target := NewVec3Zero().Transform(view)
	assert.InDelta(t, -5, target.Z, tolerance)
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := NewMat4Perspective(DegToRad(90), 1, 0.5, 20)

	near := NewVec4(0, 0, -0.5, 1).Transform(proj)
	far := NewVec4(0, 0, -20, 1).Transform(proj)
	assert.InDelta(t, 0, near.Z/near.W, tolerance)
	assert.InDelta(t, 1, far.Z/far.W, tolerance)

	fov, n, f := proj.PerspectiveParams()
	assert.InDelta(t, DegToRad(90), fov, tolerance)
	assert.InDelta(t, 0.5, n, tolerance)
	assert.InDelta(t, 20, f, 1e-3)
}

func TestOrthographicDepthRange(t *testing.T) {
	proj := NewMat4Orthographic(-2, 2, -1, 1, 0, 10)
	near := NewVec3(-2, -1, 0).Transform(proj)
	far := NewVec3(2, 1, -10).Transform(proj)
	assert.True(t, near.Compare(NewVec3(-1, -1, 0), tolerance), "got %v", near)
	assert.True(t, far.Compare(NewVec3(1, 1, 1), tolerance), "got %v", far)
}

func TestExtentsMakeFit(t *testing.T) {
	a := NewExtents3D(NewVec3(-1, 0, 2), NewVec3(1, 1, 3))
	b := NewExtents3D(NewVec3(4, -3, -1), NewVec3(5, 0, 0))
	u := NewExtents3DEmpty().MakeFit(a).MakeFit(b)

	assert.True(t, u.Contains(a))
	assert.True(t, u.Contains(b))
	assert.Equal(t, NewVec3(-1, -3, -1), u.Min)
	assert.Equal(t, NewVec3(5, 1, 3), u.Max)

	assert.True(t, NewExtents3DEmpty().IsEmpty())
	assert.Equal(t, a, a.MakeFit(NewExtents3DEmpty()))
}

func TestExtentsTransform(t *testing.T) {
	e := NewExtents3D(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))
	rot := NewQuatFromAxisAngle(NewVec3Up(), DegToRad(45)).ToMat4()
	got := e.Transform(rot.Mul(NewMat4Translation(NewVec3(0, 2, 0))))

	r := ksqrt(2)
	assert.InDelta(t, -r, got.Min.X, tolerance)
	assert.InDelta(t, r, got.Max.X, tolerance)
	assert.InDelta(t, 1, got.Min.Y, tolerance)
	assert.InDelta(t, 3, got.Max.Y, tolerance)
}

func TestGeometryCube(t *testing.T) {
	vertices, indices := GeometryGenerateCube(2, 2, 2, NewVec4(1, 1, 1, 1))
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	for _, v := range vertices {
		// every normal points away from the centre
		assert.Greater(t, v.Normal.Dot(v.Position), float32(0))
	}
	e := ExtentsFromVertices(vertices)
	assert.Equal(t, NewVec3(-1, -1, -1), e.Min)
	assert.Equal(t, NewVec3(1, 1, 1), e.Max)
}

func TestRandomDeterministic(t *testing.T) {
	a := NewRandom(42)
	b := NewRandom(42)
	for i := 0; i < 16; i++ {
		v := a.Float32()
		assert.Equal(t, v, b.Float32())
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestScalarHelpers(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.InDelta(t, 0.55, Lerp(float32(0.1), 1.0, 0.5), tolerance)
	assert.True(t, IsPowerOfTwo(uint32(4)))
	assert.False(t, IsPowerOfTwo(uint32(6)))
	assert.False(t, IsPowerOfTwo(uint32(0)))
}
