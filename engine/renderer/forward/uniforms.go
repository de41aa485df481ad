package forward

import (
	"fmt"

	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/renderer/shadow"
	"github.com/spaghettifunk/penumbra/engine/scene"
)

type cameraUniform struct {
	View        math.Mat4
	Projection  math.Mat4
	InverseView math.Mat4
	/** @brief xyz world position, w unused. */
	Position math.Vec4
	Ambient  math.Vec4
}

type ssaoUniform struct {
	Projection math.Mat4
	Kernel     [config.MaxSSAOKernelSize]math.Vec4
	/** @brief radius, bias, kernel size, unused. */
	Params math.Vec4
	/** @brief Framebuffer size over the noise size, zw unused. */
	NoiseScale math.Vec4
}

type modelPushConstants struct {
	Model            math.Mat4
	DirectionalCount uint32
	PointCount       uint32
	_                [2]uint32
}

type blitPushConstants struct {
	Exposure    float32
	Gamma       float32
	ToneMapping uint32
	FXAA        uint32
	InverseSize math.Vec2
	_           [2]float32
}

/**
 * @brief GPU side of a material: one parameter buffer and one set per frame.
 */
type materialResources struct {
	uniforms []*metadata.Buffer
	sets     []*metadata.DescriptorSet
}

// UpdateUniformBuffers uploads the camera, the SSAO parameters and the
// parameters of every material in list for frame. Materials seen for the
// first time get their buffers and sets here.
func (fr *ForwardRenderer) UpdateUniformBuffers(frame uint32, s *scene.Scene, list DrawList) error {
	f := fr.frames[frame]
	view := s.Camera.GetView()
	projection := s.Camera.GetProjection()
	pos := s.Camera.GetPosition()

	camera := cameraUniform{
		View:        view,
		Projection:  projection,
		InverseView: view.Inverse(),
		Position:    math.NewVec4(pos.X, pos.Y, pos.Z, 1.0),
		Ambient:     s.AmbientColour,
	}
	if err := fr.backend.BufferLoad(f.camera, metadata.Bytes(camera)); err != nil {
		return err
	}

	environment := fr.defaults.environment
	if s.Environment != nil && s.Environment.Image != nil {
		environment = s.Environment.Image
	}
	fr.backend.DescriptorSetWrite(f.viewSet, metadata.ImageWrite(viewBindingEnvironment, fr.sampled(environment, fr.samplers.material)))

	ssao := ssaoUniform{
		Projection: projection,
		Kernel:     fr.ssaoKernel,
		Params:     math.NewVec4(fr.config.SSAO.Radius, fr.config.SSAO.Bias, float32(fr.config.SSAO.KernelSize), 0),
		NoiseScale: math.NewVec4(float32(fr.width)/SSAO_NOISE_DIMENSION, float32(fr.height)/SSAO_NOISE_DIMENSION, 0, 0),
	}
	if err := fr.backend.BufferLoad(f.ssaoParams, metadata.Bytes(ssao)); err != nil {
		return err
	}

	for _, m := range list.Materials() {
		resources, err := fr.materialResources(m)
		if err != nil {
			return err
		}
		if err := fr.backend.BufferLoad(resources.uniforms[frame], metadata.Bytes(m.Params)); err != nil {
			return err
		}
		fr.writeMaterialTextures(m, resources.sets[frame])
	}
	return nil
}

func (fr *ForwardRenderer) materialResources(m *scene.Material) (*materialResources, error) {
	if resources, ok := fr.materials[m]; ok {
		return resources, nil
	}
	resources := &materialResources{}
	release := func() {
		for _, set := range resources.sets {
			fr.backend.DescriptorSetFree(set)
		}
		for _, b := range resources.uniforms {
			fr.backend.BufferDestroy(b)
		}
	}
	size := uint64(len(metadata.Bytes(scene.MaterialParams{})))
	for i := uint32(0); i < fr.imageCount; i++ {
		b, err := fr.backend.BufferCreate(metadata.BufferConfig{
			Name:        fmt.Sprintf("material_%s_%d", m.Name, i),
			Usage:       metadata.BUFFER_USAGE_UNIFORM,
			Size:        size,
			HostVisible: true,
		})
		if err != nil {
			release()
			return nil, err
		}
		resources.uniforms = append(resources.uniforms, b)

		set, err := fr.backend.DescriptorSetAllocate(fr.layouts.material)
		if err != nil {
			release()
			return nil, err
		}
		resources.sets = append(resources.sets, set)
		fr.backend.DescriptorSetWrite(set, metadata.BufferWrite(materialBindingParams, b))
	}
	fr.materials[m] = resources
	return resources, nil
}

func (fr *ForwardRenderer) writeMaterialTextures(m *scene.Material, set *metadata.DescriptorSet) {
	writes := make([]metadata.DescriptorWrite, 0, scene.TEXTURE_USE_COUNT)
	for use := scene.TextureUse(0); use < scene.TEXTURE_USE_COUNT; use++ {
		img, sampler := fr.defaultTexture(use), fr.samplers.material
		if t := m.Textures[use]; t != nil && t.Image != nil {
			img = t.Image
			if t.Sampler != nil {
				sampler = t.Sampler
			}
		}
		writes = append(writes, metadata.ImageWrite(materialBindingTextures+uint32(use), fr.sampled(img, sampler)))
	}
	fr.backend.DescriptorSetWrite(set, writes...)
}

func (fr *ForwardRenderer) defaultTexture(use scene.TextureUse) *metadata.Image {
	if use == scene.TEXTURE_USE_NORMAL {
		return fr.defaults.flatNormal
	}
	return fr.defaults.white
}

// ReleaseMaterial frees the GPU resources of m. The device must be idle.
func (fr *ForwardRenderer) ReleaseMaterial(m *scene.Material) {
	resources, ok := fr.materials[m]
	if !ok {
		return
	}
	for _, set := range resources.sets {
		fr.backend.DescriptorSetFree(set)
	}
	for _, b := range resources.uniforms {
		fr.backend.BufferDestroy(b)
	}
	delete(fr.materials, m)
}

func modelConstants(node *scene.MeshNode, counts shadow.LightCounts) []byte {
	return metadata.Bytes(modelPushConstants{
		Model:            node.World(),
		DirectionalCount: counts.Directional,
		PointCount:       counts.Point,
	})
}
