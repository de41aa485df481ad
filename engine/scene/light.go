package scene

import (
	"github.com/spaghettifunk/penumbra/engine/containers"
	"github.com/spaghettifunk/penumbra/engine/math"
)

type LightType int

const (
	LIGHT_TYPE_DIRECTIONAL LightType = iota
	LIGHT_TYPE_POINT
)

func (t LightType) String() string {
	if t == LIGHT_TYPE_POINT {
		return "point"
	}
	return "directional"
}

/**
 * @brief A light node. Directional lights shine along the forward (-Z)
 * axis of their world rotation; point lights emit from their world
 * position up to Radius.
 */
type Light struct {
	Name      string
	Type      LightType
	Transform *math.Transform
	Colour    math.Vec3
	Intensity float32
	/** @brief Range of a point light. Also the far plane of its shadow faces. */
	Radius       float32
	CastsShadows bool
	/**
	 * @brief Index of the shadow resources last assigned to this light, or
	 * containers.InvalidSlot. Written by the renderer for reporting only; the
	 * shadow mapper tracks ownership itself.
	 */
	ShadowSlot int
}

func NewDirectionalLight(name string, rotation math.Quaternion, colour math.Vec3, intensity float32) *Light {
	return &Light{
		Name:         name,
		Type:         LIGHT_TYPE_DIRECTIONAL,
		Transform:    math.NewTransformFrom(math.NewVec3Zero(), rotation, math.NewVec3One()),
		Colour:       colour,
		Intensity:    intensity,
		CastsShadows: true,
		ShadowSlot:   containers.InvalidSlot,
	}
}

func NewPointLight(name string, position, colour math.Vec3, intensity, radius float32) *Light {
	return &Light{
		Name:         name,
		Type:         LIGHT_TYPE_POINT,
		Transform:    math.NewTransformFrom(position, math.NewQuatIdentity(), math.NewVec3One()),
		Colour:       colour,
		Intensity:    intensity,
		Radius:       radius,
		CastsShadows: true,
		ShadowSlot:   containers.InvalidSlot,
	}
}

func (l *Light) HasShadowSlot() bool {
	return l.ShadowSlot != containers.InvalidSlot
}

func (l *Light) WorldPosition() math.Vec3 {
	return l.Transform.GetWorld().Position()
}

func (l *Light) WorldRotation() math.Quaternion {
	return l.Transform.WorldRotation()
}

// Direction returns the normalized world space direction the light travels along.
func (l *Light) Direction() math.Vec3 {
	return l.WorldRotation().Rotate(math.NewVec3Forward()).Normalized()
}
