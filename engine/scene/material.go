package scene

import (
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

/**
 * @brief How a material treats alpha.
 */
type AlphaMode int

const (
	/** @brief Alpha is ignored. */
	ALPHA_MODE_OPAQUE AlphaMode = iota
	/** @brief Fragments below AlphaCutoff are discarded. Drawn with the opaque bucket. */
	ALPHA_MODE_MASK
	/** @brief Alpha blended. Drawn in the transparent bucket. */
	ALPHA_MODE_BLEND
)

type TextureUse int

const (
	TEXTURE_USE_ALBEDO TextureUse = iota
	TEXTURE_USE_NORMAL
	TEXTURE_USE_METALLIC_ROUGHNESS
	TEXTURE_USE_OCCLUSION
	TEXTURE_USE_EMISSIVE
	TEXTURE_USE_COUNT
)

type Texture struct {
	Name    string
	Image   *metadata.Image
	Sampler *metadata.Sampler
}

/**
 * @brief The parameter block uploaded for every material, std140 friendly.
 */
type MaterialParams struct {
	BaseColourFactor math.Vec4
	/** @brief xyz emissive colour, w unused. */
	EmissiveFactor math.Vec4
	Metallic       float32
	Roughness      float32
	AlphaCutoff    float32
	/** @brief Scale applied to sampled normals. */
	NormalScale float32
}

func DefaultMaterialParams() MaterialParams {
	return MaterialParams{
		BaseColourFactor: math.NewVec4(1, 1, 1, 1),
		Metallic:         0.0,
		Roughness:        0.5,
		AlphaCutoff:      0.5,
		NormalScale:      1.0,
	}
}

/**
 * @brief A material shared by any number of mesh nodes.
 */
type Material struct {
	Name      string
	AlphaMode AlphaMode
	Params    MaterialParams
	/** @brief Textures per use. Nil entries fall back to the renderer defaults. */
	Textures [TEXTURE_USE_COUNT]*Texture
}

func NewMaterial(name string, mode AlphaMode) *Material {
	return &Material{
		Name:      name,
		AlphaMode: mode,
		Params:    DefaultMaterialParams(),
	}
}

func (m *Material) IsTransparent() bool {
	return m.AlphaMode == ALPHA_MODE_BLEND
}
