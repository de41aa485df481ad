package forward

import (
	"github.com/spaghettifunk/penumbra/engine/math"
)

const (
	SSAO_NOISE_DIMENSION = 4
	// Work group edge of the blur compute shader.
	ssaoBlurGroupSize = 16
)

// GenerateSSAOKernel returns size hemisphere samples around +Z. Directions
// follow a cosine weighted distribution, and sample i is scaled by
// lerp(0.1, 1, (i/size)^2) so samples cluster near the origin. The same seed
// always yields the same kernel.
func GenerateSSAOKernel(size uint32, seed uint64) []math.Vec4 {
	rng := math.NewRandom(seed)
	kernel := make([]math.Vec4, size)
	for i := range kernel {
		u1 := rng.Float32()
		u2 := rng.Float32()
		r := math.Sqrt(u1)
		theta := math.K_PI_2 * u2
		direction := math.NewVec3(r*math.Cos(theta), r*math.Sin(theta), math.Sqrt(1.0-u1))

		t := float32(i) / float32(size)
		scale := math.Lerp(float32(0.1), 1.0, t*t)
		sample := direction.MulScalar(rng.Float32() * scale)
		kernel[i] = math.NewVec4FromVec3(sample, 0)
	}
	return kernel
}

// GenerateSSAONoise returns a 4x4 RGBA8 tile of random rotation vectors in the
// XY plane, encoded from [-1, 1] to [0, 255].
func GenerateSSAONoise(seed uint64) []byte {
	rng := math.NewRandom(seed ^ 0x9e3779b97f4a7c15)
	pixels := make([]byte, 0, SSAO_NOISE_DIMENSION*SSAO_NOISE_DIMENSION*4)
	encode := func(v float32) byte {
		return byte(math.Clamp((v*0.5+0.5)*255.0+0.5, 0, 255))
	}
	for i := 0; i < SSAO_NOISE_DIMENSION*SSAO_NOISE_DIMENSION; i++ {
		v := math.NewVec3(rng.Float32InRange(-1, 1), rng.Float32InRange(-1, 1), 0).Normalized()
		pixels = append(pixels, encode(v.X), encode(v.Y), encode(0), 255)
	}
	return pixels
}

func dispatchSize(extent uint32) uint32 {
	return (extent + ssaoBlurGroupSize - 1) / ssaoBlurGroupSize
}
