package scene

import (
	"github.com/spaghettifunk/penumbra/engine/math"
)

/**
 * @brief Represents a perspective camera. The view matrix is the inverse
 * of the camera's world transform.
 */
type Camera struct {
	Transform *math.Transform
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll).
	 * NOTE: Do not set this directly, use SetEulerRotation instead
	 * so the transform is updated.
	 */
	EulerRotation math.Vec3
	/** @brief Vertical field of view in radians. */
	FovRadians  float32
	AspectRatio float32
	Near        float32
	Far         float32
}

func NewCamera(fovRadians, aspectRatio, near, far float32) *Camera {
	return &Camera{
		Transform:   math.NewTransform(),
		FovRadians:  fovRadians,
		AspectRatio: aspectRatio,
		Near:        near,
		Far:         far,
	}
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Transform.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Transform.SetPosition(position)
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.EulerRotation = rotation
	c.Transform.SetRotation(math.NewQuatFromEuler(rotation.X, rotation.Y, rotation.Z))
}

// LookAt orients the camera from its current position towards target.
func (c *Camera) LookAt(target math.Vec3) {
	direction := target.Sub(c.Transform.Position).Normalized()
	pitch := math.Asin(direction.Y)
	yaw := math.Atan2(-direction.X, -direction.Z)
	c.SetEulerRotation(math.NewVec3(pitch, yaw, 0))
}

func (c *Camera) GetView() math.Mat4 {
	return c.Transform.GetWorld().Inverse()
}

// GetProjection returns a perspective projection with Y flipped, since clip space Y points down.
func (c *Camera) GetProjection() math.Mat4 {
	proj := math.NewMat4Perspective(c.FovRadians, c.AspectRatio, c.Near, c.Far)
	proj.Data[5] *= -1.0
	return proj
}

func (c *Camera) Forward() math.Vec3 {
	return c.Transform.GetWorld().Forward()
}

func (c *Camera) Right() math.Vec3 {
	return c.Transform.GetWorld().Right()
}

func (c *Camera) MoveForward(amount float32) {
	c.Transform.Translate(c.Forward().MulScalar(amount))
}

func (c *Camera) MoveRight(amount float32) {
	c.Transform.Translate(c.Right().MulScalar(amount))
}

func (c *Camera) MoveUp(amount float32) {
	c.Transform.Translate(math.NewVec3Up().MulScalar(amount))
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation.Y += amount
	c.SetEulerRotation(c.EulerRotation)
}

func (c *Camera) Pitch(amount float32) {
	// Clamp to avoid Gimbal lock.
	limit := float32(1.55334306) // 89 degrees
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X+amount, -limit, limit)
	c.SetEulerRotation(c.EulerRotation)
}
