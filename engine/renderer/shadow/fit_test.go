package shadow

import (
	"testing"

	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-3

func sceneBounds() []math.Extents3D {
	return []math.Extents3D{
		math.NewExtents3D(math.NewVec3(-1, 0, -1), math.NewVec3(1, 2, 1)),
		math.NewExtents3D(math.NewVec3(3, -1, 2), math.NewVec3(5, 0.5, 6)),
		math.NewExtents3D(math.NewVec3(-10, -0.1, -10), math.NewVec3(10, 0, 10)),
	}
}

func lightRotations() []math.Quaternion {
	return []math.Quaternion{
		math.NewQuatIdentity(),
		math.NewQuatFromAxisAngle(math.NewVec3Right(), math.DegToRad(-90)),
		math.NewQuatFromEuler(math.DegToRad(-45), math.DegToRad(30), 0),
		math.NewQuatFromEuler(math.DegToRad(-70), math.DegToRad(-135), math.DegToRad(10)),
	}
}

func TestFitUnionContainsEveryMesh(t *testing.T) {
	for _, rotation := range lightRotations() {
		fit := FitDirectionalShadow(rotation, sceneBounds())
		worldToLight := rotation.ToMat4().Transposed()
		for _, b := range sceneBounds() {
			ls := b.Transform(worldToLight)
			assert.LessOrEqual(t, fit.LightSpaceBounds.Min.X, ls.Min.X)
			assert.LessOrEqual(t, fit.LightSpaceBounds.Min.Y, ls.Min.Y)
			assert.LessOrEqual(t, fit.LightSpaceBounds.Min.Z, ls.Min.Z)
			assert.GreaterOrEqual(t, fit.LightSpaceBounds.Max.X, ls.Max.X)
			assert.GreaterOrEqual(t, fit.LightSpaceBounds.Max.Y, ls.Max.Y)
			assert.GreaterOrEqual(t, fit.LightSpaceBounds.Max.Z, ls.Max.Z)
		}
	}
}

func TestFitIsDeterministic(t *testing.T) {
	for _, rotation := range lightRotations() {
		a := FitDirectionalShadow(rotation, sceneBounds())
		b := FitDirectionalShadow(rotation, sceneBounds())
		assert.Equal(t, a, b)
	}
}

func TestFitProjectsEveryCornerIntoClipVolume(t *testing.T) {
	for _, rotation := range lightRotations() {
		fit := FitDirectionalShadow(rotation, sceneBounds())
		for _, b := range sceneBounds() {
			for _, corner := range b.Corners() {
				clip := corner.Transform(fit.ViewProj)
				assert.True(t, clip.X >= -1-eps && clip.X <= 1+eps, "x %v", clip)
				assert.True(t, clip.Y >= -1-eps && clip.Y <= 1+eps, "y %v", clip)
				assert.True(t, clip.Z >= -eps && clip.Z <= 1+eps, "z %v", clip)
			}
		}
	}
}

func TestFitLooksAlongLightForward(t *testing.T) {
	for _, rotation := range lightRotations() {
		fit := FitDirectionalShadow(rotation, sceneBounds())
		forward := rotation.Rotate(math.NewVec3Forward())
		assert.True(t, fit.View.ViewDirection().Compare(forward, eps), "got %v want %v", fit.View.ViewDirection(), forward)
	}
}

func TestFitWithoutMeshesUsesUnitBox(t *testing.T) {
	fit := FitDirectionalShadow(math.NewQuatIdentity(), nil)
	assert.Equal(t, math.NewVec3(-1, -1, -1), fit.LightSpaceBounds.Min)
	assert.Equal(t, math.NewVec3(1, 1, 1), fit.LightSpaceBounds.Max)
}

func TestFitFlatSceneKeepsPositiveDepth(t *testing.T) {
	flat := []math.Extents3D{math.NewExtents3D(math.NewVec3(-5, 0, -5), math.NewVec3(5, 0, 5))}
	down := math.NewQuatFromAxisAngle(math.NewVec3Right(), math.DegToRad(-90))
	fit := FitDirectionalShadow(down, flat)
	assert.NotZero(t, fit.Projection.Data[10])
	clip := math.NewVec3(0, 0, 0).Transform(fit.ViewProj)
	assert.InDelta(t, 0, clip.Z, eps)
}

func TestPointShadowFaces(t *testing.T) {
	const radius = 12.5
	faces := PointShadowFaces(math.NewVec3Zero(), radius)
	expected := []math.Vec3{
		math.NewVec3(1, 0, 0), math.NewVec3(-1, 0, 0),
		math.NewVec3(0, 1, 0), math.NewVec3(0, -1, 0),
		math.NewVec3(0, 0, 1), math.NewVec3(0, 0, -1),
	}
	require.Len(t, faces, 6)
	for i, face := range faces {
		fov, near, far := face.Projection.PerspectiveParams()
		assert.InDelta(t, math.DegToRad(90), fov, 1e-4)
		assert.InDelta(t, radius, far, 1e-2)
		assert.InDelta(t, POINT_SHADOW_NEAR, near, 1e-4)
		assert.True(t, face.View.ViewDirection().Compare(expected[i], 1e-5), "face %d looks along %v", i, face.View.ViewDirection())
		assert.Equal(t, face.View.Mul(face.Projection), face.ViewProj)
	}
}

func TestPointShadowFacesFollowLightPosition(t *testing.T) {
	position := math.NewVec3(2, 3, -4)
	for _, face := range PointShadowFaces(position, 10) {
		assert.True(t, position.Transform(face.View).Compare(math.NewVec3Zero(), 1e-4))
	}
}
