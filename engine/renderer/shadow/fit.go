package shadow

import (
	"github.com/spaghettifunk/penumbra/engine/math"
)

/**
 * @brief The orthographic frustum fitted around the scene for one directional light.
 */
type DirectionalShadow struct {
	View       math.Mat4
	Projection math.Mat4
	ViewProj   math.Mat4
	/** @brief Union of every mesh box, in light space. */
	LightSpaceBounds math.Extents3D
}

const minShadowDepth float32 = 0.01

// FitDirectionalShadow fits an orthographic projection around bounds, seen along
// the forward axis of rotation. Each world space box is moved into light space
// by the inverse of the light rotation and merged with MakeFit. The eye sits on
// the face of the union box nearest the light. An empty bounds list fits a unit
// box around the origin.
func FitDirectionalShadow(rotation math.Quaternion, bounds []math.Extents3D) DirectionalShadow {
	lightToWorld := rotation.Normalize().ToMat4()
	// rotation only, so the inverse is the transpose
	worldToLight := lightToWorld.Transposed()

	box := math.NewExtents3DEmpty()
	for _, b := range bounds {
		box = box.MakeFit(b.Transform(worldToLight))
	}
	if box.IsEmpty() {
		box = math.NewExtents3D(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1))
	}

	center := box.Center()
	half := box.HalfExtents()

	eye := math.NewVec3(center.X, center.Y, center.Z+half.Z).Transform(lightToWorld)
	forward := math.NewVec3Forward().TransformDirection(lightToWorld)
	up := math.NewVec3Up().TransformDirection(lightToWorld)

	view := math.NewMat4LookAt(eye, eye.Add(forward), up)
	depth := half.Z * 2.0
	if depth < minShadowDepth {
		depth = minShadowDepth
	}
	projection := math.NewMat4Orthographic(-half.X, half.X, -half.Y, half.Y, 0.0, depth)

	return DirectionalShadow{
		View:             view,
		Projection:       projection,
		ViewProj:         view.Mul(projection),
		LightSpaceBounds: box,
	}
}

/**
 * @brief One face of a point light shadow cube.
 */
type ShadowFace struct {
	View       math.Mat4
	Projection math.Mat4
	ViewProj   math.Mat4
}

type faceOrientation struct {
	direction math.Vec3
	up        math.Vec3
}

// Cube layer order +X, -X, +Y, -Y, +Z, -Z with the up vectors of the cube map convention.
var cubeFaces = [6]faceOrientation{
	{math.NewVec3(1, 0, 0), math.NewVec3(0, -1, 0)},
	{math.NewVec3(-1, 0, 0), math.NewVec3(0, -1, 0)},
	{math.NewVec3(0, 1, 0), math.NewVec3(0, 0, 1)},
	{math.NewVec3(0, -1, 0), math.NewVec3(0, 0, -1)},
	{math.NewVec3(0, 0, 1), math.NewVec3(0, -1, 0)},
	{math.NewVec3(0, 0, -1), math.NewVec3(0, -1, 0)},
}

// PointShadowFaces returns the six cube face views of a point light at
// position, each a 90 degree square frustum reaching radius.
func PointShadowFaces(position math.Vec3, radius float32) [6]ShadowFace {
	projection := math.NewMat4Perspective(math.K_HALF_PI, 1.0, POINT_SHADOW_NEAR, radius)
	var faces [6]ShadowFace
	for i, f := range cubeFaces {
		view := math.NewMat4LookAt(position, position.Add(f.direction), f.up)
		faces[i] = ShadowFace{
			View:       view,
			Projection: projection,
			ViewProj:   view.Mul(projection),
		}
	}
	return faces
}
