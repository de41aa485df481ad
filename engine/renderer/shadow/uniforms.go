package shadow

import (
	"github.com/spaghettifunk/penumbra/engine/math"
)

const (
	/** @brief Fixed size of the directional light and shadow map arrays. */
	MAX_DIRECTIONAL_LIGHTS = 4
	/** @brief Fixed size of the point light and shadow cube arrays. */
	MAX_POINT_LIGHTS = 4

	/** @brief Near plane of every point light shadow face. */
	POINT_SHADOW_NEAR float32 = 0.05
)

// NoShadowSlot is returned when a light category has no free slot.
const NoShadowSlot = -1

/**
 * @brief Light counts pushed with every forward draw.
 */
type LightCounts struct {
	Directional uint32
	Point       uint32
}

/**
 * @brief Per light data read by the shadow pass vertex shader, indexed
 * by the face pushed with each draw. Directional lights only use face 0.
 */
type shadowPassUniform struct {
	ViewProj [6]math.Mat4
	/** @brief xyz light position, w far plane. Point lights only. */
	PositionFar math.Vec4
}

/**
 * @brief Push constants of the shadow pass.
 */
type shadowPushConstants struct {
	Model math.Mat4
	Face  uint32
	_     [3]uint32
}

/**
 * @brief One entry of the directional light array read by the forward pass.
 */
type DirectionalLightData struct {
	ViewProj math.Mat4
	/** @brief rgb colour premultiplied by intensity. */
	Colour math.Vec4
	/** @brief xyz normalized world direction the light travels along. */
	Direction math.Vec4
	/** @brief x texel size, y PCF kernel radius, z depth bias, w 1 when a shadow map is bound. */
	ShadowParams math.Vec4
}

/**
 * @brief One entry of the point light array read by the forward pass.
 */
type PointLightData struct {
	/** @brief xyz world position, w radius. */
	Position     math.Vec4
	Colour       math.Vec4
	ShadowParams math.Vec4
}

type directionalLightsUniform struct {
	Lights [MAX_DIRECTIONAL_LIGHTS]DirectionalLightData
}

type pointLightsUniform struct {
	Lights [MAX_POINT_LIGHTS]PointLightData
}
