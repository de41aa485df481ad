package forward

import (
	"fmt"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

const (
	viewBindingCamera      = 0
	viewBindingEnvironment = 1

	materialBindingParams   = 0
	materialBindingTextures = 1

	ssaoBindingParams   = 0
	ssaoBindingPosition = 1
	ssaoBindingNormal   = 2
	ssaoBindingNoise    = 3

	blurBindingInput  = 0
	blurBindingOutput = 1

	blitBindingColour    = 0
	blitBindingIndirect  = 1
	blitBindingOcclusion = 2
)

/**
 * @brief Size dependent images of one frame. The sampled images are the
 * single sampled results the later passes read.
 */
type frameTargets struct {
	// Every image owned by the targets, destroyed together.
	images []*metadata.Image

	colour    *metadata.Image
	position  *metadata.Image
	normal    *metadata.Image
	indirect  *metadata.Image
	occlusion *metadata.Image
	blurred   *metadata.Image

	gbuffer *metadata.Framebuffer
	ssao    *metadata.Framebuffer
}

type frameResources struct {
	camera     *metadata.Buffer
	ssaoParams *metadata.Buffer

	viewSet *metadata.DescriptorSet
	ssaoSet *metadata.DescriptorSet
	blurSet *metadata.DescriptorSet
	blitSet *metadata.DescriptorSet

	targets *frameTargets
}

func (fr *ForwardRenderer) createFrames() error {
	fr.frames = make([]*frameResources, fr.imageCount)
	for i := range fr.frames {
		frame := &frameResources{}
		fr.frames[i] = frame

		var err error
		if frame.camera, err = fr.backend.BufferCreate(metadata.BufferConfig{
			Name:        fmt.Sprintf("camera_%d", i),
			Usage:       metadata.BUFFER_USAGE_UNIFORM,
			Size:        uint64(len(metadata.Bytes(cameraUniform{}))),
			HostVisible: true,
		}); err != nil {
			return err
		}
		if frame.ssaoParams, err = fr.backend.BufferCreate(metadata.BufferConfig{
			Name:        fmt.Sprintf("ssao_%d", i),
			Usage:       metadata.BUFFER_USAGE_UNIFORM,
			Size:        uint64(len(metadata.Bytes(ssaoUniform{}))),
			HostVisible: true,
		}); err != nil {
			return err
		}
		sets := []struct {
			target **metadata.DescriptorSet
			layout *metadata.DescriptorSetLayout
		}{
			{&frame.viewSet, fr.layouts.view},
			{&frame.ssaoSet, fr.layouts.ssao},
			{&frame.blurSet, fr.layouts.blur},
			{&frame.blitSet, fr.layouts.blit},
		}
		for _, s := range sets {
			set, err := fr.backend.DescriptorSetAllocate(s.layout)
			if err != nil {
				return err
			}
			*s.target = set
		}
		fr.backend.DescriptorSetWrite(frame.viewSet, metadata.BufferWrite(viewBindingCamera, frame.camera))
		fr.backend.DescriptorSetWrite(frame.ssaoSet, metadata.BufferWrite(ssaoBindingParams, frame.ssaoParams))

		if frame.targets, err = fr.createTargets(uint32(i)); err != nil {
			return err
		}
		fr.writeTargetBindings(frame)
	}
	return nil
}

func (fr *ForwardRenderer) destroyFrames() {
	for _, frame := range fr.frames {
		if frame == nil {
			continue
		}
		fr.destroyTargets(frame.targets)
		for _, set := range []*metadata.DescriptorSet{frame.blitSet, frame.blurSet, frame.ssaoSet, frame.viewSet} {
			fr.backend.DescriptorSetFree(set)
		}
		fr.backend.BufferDestroy(frame.ssaoParams)
		fr.backend.BufferDestroy(frame.camera)
	}
	fr.frames = nil
}

func (fr *ForwardRenderer) targetImage(t *frameTargets, name string, format metadata.ImageFormat, samples uint32, usage metadata.ImageUsage) (*metadata.Image, error) {
	aspect := metadata.IMAGE_ASPECT_COLOUR
	if format.IsDepth() {
		aspect = metadata.IMAGE_ASPECT_DEPTH
	}
	img, err := fr.backend.ImageCreate(metadata.ImageConfig{
		Name:    name,
		Type:    metadata.IMAGE_TYPE_2D,
		Format:  format,
		Width:   fr.width,
		Height:  fr.height,
		Samples: samples,
		Usage:   usage,
		Aspect:  aspect,
	})
	if err != nil {
		return nil, err
	}
	t.images = append(t.images, img)
	return img, nil
}

// createTargets builds the attachments and framebuffers of frame i. On
// failure the partially created targets are destroyed.
func (fr *ForwardRenderer) createTargets(i uint32) (t *frameTargets, err error) {
	t = &frameTargets{}
	defer func() {
		if err != nil {
			fr.destroyTargets(t)
			t = nil
		}
	}()

	sampled := metadata.IMAGE_USAGE_COLOUR_ATTACHMENT | metadata.IMAGE_USAGE_SAMPLED
	names := [gbufferColourTargets]string{"colour", "position", "normal", "indirect"}
	var resolved [gbufferColourTargets]*metadata.Image
	for n, name := range names {
		if resolved[n], err = fr.targetImage(t, fmt.Sprintf("%s_%d", name, i), GBUFFER_FORMAT, 1, sampled); err != nil {
			return t, err
		}
	}
	t.colour, t.position, t.normal, t.indirect = resolved[0], resolved[1], resolved[2], resolved[3]

	var attachments []*metadata.Image
	if fr.multisampled() {
		for _, name := range names {
			img, err := fr.targetImage(t, fmt.Sprintf("%s_ms_%d", name, i), GBUFFER_FORMAT, fr.config.MSAASamples,
				metadata.IMAGE_USAGE_COLOUR_ATTACHMENT|metadata.IMAGE_USAGE_TRANSIENT_ATTACHMENT)
			if err != nil {
				return t, err
			}
			attachments = append(attachments, img)
		}
	} else {
		attachments = append(attachments, resolved[:]...)
	}
	depth, err := fr.targetImage(t, fmt.Sprintf("depth_%d", i), fr.backend.DepthFormat(), fr.config.MSAASamples,
		metadata.IMAGE_USAGE_DEPTH_STENCIL_ATTACHMENT|metadata.IMAGE_USAGE_TRANSIENT_ATTACHMENT)
	if err != nil {
		return t, err
	}
	attachments = append(attachments, depth)
	if fr.multisampled() {
		attachments = append(attachments, resolved[:]...)
	}

	if t.occlusion, err = fr.targetImage(t, fmt.Sprintf("occlusion_%d", i), OCCLUSION_FORMAT, 1, sampled); err != nil {
		return t, err
	}
	if t.blurred, err = fr.targetImage(t, fmt.Sprintf("occlusion_blurred_%d", i), BLURRED_FORMAT, 1,
		metadata.IMAGE_USAGE_STORAGE|metadata.IMAGE_USAGE_SAMPLED); err != nil {
		return t, err
	}

	if t.gbuffer, err = fr.backend.FramebufferCreate(metadata.FramebufferConfig{
		Name:        fmt.Sprintf("gbuffer_%d", i),
		Pass:        fr.gbufferPass,
		Attachments: attachments,
		Width:       fr.width,
		Height:      fr.height,
	}); err != nil {
		return t, err
	}
	t.ssao, err = fr.backend.FramebufferCreate(metadata.FramebufferConfig{
		Name:        fmt.Sprintf("ssao_%d", i),
		Pass:        fr.ssaoPass,
		Attachments: []*metadata.Image{t.occlusion},
		Width:       fr.width,
		Height:      fr.height,
	})
	return t, err
}

func (fr *ForwardRenderer) destroyTargets(t *frameTargets) {
	if t == nil {
		return
	}
	fr.backend.FramebufferDestroy(t.ssao)
	fr.backend.FramebufferDestroy(t.gbuffer)
	for i := len(t.images) - 1; i >= 0; i-- {
		fr.backend.ImageDestroy(t.images[i])
	}
	t.images = nil
}

func (fr *ForwardRenderer) sampled(img *metadata.Image, sampler *metadata.Sampler) metadata.DescriptorImage {
	return metadata.DescriptorImage{Image: img, Sampler: sampler, Layout: metadata.IMAGE_LAYOUT_SHADER_READ_ONLY}
}

// writeTargetBindings points the size dependent bindings of frame at its current targets.
func (fr *ForwardRenderer) writeTargetBindings(frame *frameResources) {
	t := frame.targets
	fr.backend.DescriptorSetWrite(frame.ssaoSet,
		metadata.ImageWrite(ssaoBindingPosition, fr.sampled(t.position, fr.samplers.target)),
		metadata.ImageWrite(ssaoBindingNormal, fr.sampled(t.normal, fr.samplers.target)),
		metadata.ImageWrite(ssaoBindingNoise, fr.sampled(fr.noise, fr.samplers.noise)),
	)
	fr.backend.DescriptorSetWrite(frame.blurSet,
		metadata.ImageWrite(blurBindingInput, fr.sampled(t.occlusion, fr.samplers.target)),
		metadata.ImageWrite(blurBindingOutput, metadata.DescriptorImage{Image: t.blurred, Layout: metadata.IMAGE_LAYOUT_GENERAL}),
	)
	fr.backend.DescriptorSetWrite(frame.blitSet,
		metadata.ImageWrite(blitBindingColour, fr.sampled(t.colour, fr.samplers.target)),
		metadata.ImageWrite(blitBindingIndirect, fr.sampled(t.indirect, fr.samplers.target)),
		metadata.ImageWrite(blitBindingOcclusion, fr.sampled(t.blurred, fr.samplers.target)),
	)
}

func (fr *ForwardRenderer) createBlitFramebuffers() error {
	images := fr.backend.SwapchainImages()
	fr.blitFramebuffers = make([]*metadata.Framebuffer, len(images))
	for i, img := range images {
		fb, err := fr.backend.FramebufferCreate(metadata.FramebufferConfig{
			Name:        fmt.Sprintf("blit_%d", i),
			Pass:        fr.blitPass,
			Attachments: []*metadata.Image{img},
			Width:       fr.width,
			Height:      fr.height,
		})
		if err != nil {
			return err
		}
		fr.blitFramebuffers[i] = fb
	}
	return nil
}

func (fr *ForwardRenderer) destroyBlitFramebuffers() {
	for _, fb := range fr.blitFramebuffers {
		fr.backend.FramebufferDestroy(fb)
	}
	fr.blitFramebuffers = nil
}

// Resize recreates every size dependent target for the new framebuffer size
// and rebinds them. The device must be idle. A zero sized framebuffer is ignored.
func (fr *ForwardRenderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	fr.width, fr.height = width, height

	fr.destroyBlitFramebuffers()
	if err := fr.createBlitFramebuffers(); err != nil {
		return err
	}
	for i, frame := range fr.frames {
		fr.destroyTargets(frame.targets)
		frame.targets = nil
		targets, err := fr.createTargets(uint32(i))
		if err != nil {
			return err
		}
		frame.targets = targets
		fr.writeTargetBindings(frame)
	}
	core.LogInfo("forward renderer resized to %dx%d", width, height)
	return nil
}
