package math

/**
 * @brief Creates an identity quaternion.
 */
func NewQuatIdentity() Quaternion {
	return Quaternion{0, 0, 0, 1.0}
}

/**
 * @brief Creates a quaternion rotating angle radians around axis.
 */
func NewQuatFromAxisAngle(axis Vec3, angle float32) Quaternion {
	a := axis.Normalized()
	half := 0.5 * angle
	s := ksin(half)
	return Quaternion{s * a.X, s * a.Y, s * a.Z, kcos(half)}
}

// NewQuatFromEuler builds a rotation applying yaw (Y), then pitch (X), then roll (Z), in radians.
func NewQuatFromEuler(pitch, yaw, roll float32) Quaternion {
	qy := NewQuatFromAxisAngle(NewVec3Up(), yaw)
	qx := NewQuatFromAxisAngle(NewVec3Right(), pitch)
	qz := NewQuatFromAxisAngle(NewVec3Back(), roll)
	return qy.Mul(qx).Mul(qz)
}

func (q Quaternion) Normal() float32 {
	return ksqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) Normalize() Quaternion {
	normal := q.Normal()
	if normal == 0 {
		return NewQuatIdentity()
	}
	return Quaternion{q.X / normal, q.Y / normal, q.Z / normal, q.W / normal}
}

func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{-q.X, -q.Y, -q.Z, q.W}
}

func (q Quaternion) Inverse() Quaternion {
	return q.Conjugate().Normalize()
}

/**
 * @brief Hamilton product q * other. The result rotates by other first, then q.
 */
func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.X*other.W + q.Y*other.Z - q.Z*other.Y + q.W*other.X,
		Y: -q.X*other.Z + q.Y*other.W + q.Z*other.X + q.W*other.Y,
		Z: q.X*other.Y - q.Y*other.X + q.Z*other.W + q.W*other.Z,
		W: -q.X*other.X - q.Y*other.Y - q.Z*other.Z + q.W*other.W,
	}
}

func (q Quaternion) Dot(other Quaternion) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

/**
 * @brief Creates a rotation matrix (row vector convention) from the quaternion.
 */
func (q Quaternion) ToMat4() Mat4 {
	n := q.Normalize()
	out := NewMat4Identity()

	out.Data[0] = 1.0 - 2.0*(n.Y*n.Y+n.Z*n.Z)
	out.Data[1] = 2.0 * (n.X*n.Y + n.Z*n.W)
	out.Data[2] = 2.0 * (n.X*n.Z - n.Y*n.W)

	out.Data[4] = 2.0 * (n.X*n.Y - n.Z*n.W)
	out.Data[5] = 1.0 - 2.0*(n.X*n.X+n.Z*n.Z)
	out.Data[6] = 2.0 * (n.Y*n.Z + n.X*n.W)

	out.Data[8] = 2.0 * (n.X*n.Z + n.Y*n.W)
	out.Data[9] = 2.0 * (n.Y*n.Z - n.X*n.W)
	out.Data[10] = 1.0 - 2.0*(n.X*n.X+n.Y*n.Y)

	return out
}

// Rotate applies the rotation to v.
func (q Quaternion) Rotate(v Vec3) Vec3 {
	return v.TransformDirection(q.ToMat4())
}

/**
 * @brief Spherical linear interpolation between q and other.
 */
func (q Quaternion) Slerp(other Quaternion, percentage float32) Quaternion {
	v0 := q.Normalize()
	v1 := other.Normalize()

	dot := v0.Dot(v1)
	// take the shorter path
	if dot < 0.0 {
		v1 = Quaternion{-v1.X, -v1.Y, -v1.Z, -v1.W}
		dot = -dot
	}

	const dotThreshold = float32(0.9995)
	if dot > dotThreshold {
		qt := Quaternion{
			v0.X + ((v1.X - v0.X) * percentage),
			v0.Y + ((v1.Y - v0.Y) * percentage),
			v0.Z + ((v1.Z - v0.Z) * percentage),
			v0.W + ((v1.W - v0.W) * percentage)}
		return qt.Normalize()
	}

	theta0 := kacos(dot)
	theta := theta0 * percentage
	sinTheta := ksin(theta)
	sinTheta0 := ksin(theta0)

	s0 := kcos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quaternion{
		(v0.X * s0) + (v1.X * s1),
		(v0.Y * s0) + (v1.Y * s1),
		(v0.Z * s0) + (v1.Z * s1),
		(v0.W * s0) + (v1.W * s1)}
}
