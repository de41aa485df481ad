package forward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSAOKernel(t *testing.T) {
	kernel := GenerateSSAOKernel(64, 42)
	require.Len(t, kernel, 64)
	for i, s := range kernel {
		assert.GreaterOrEqual(t, s.Z, float32(0), "sample %d below the hemisphere", i)
		assert.LessOrEqual(t, s.ToVec3().Length(), float32(1.0001), "sample %d outside the unit hemisphere", i)
		assert.Zero(t, s.W)
	}
	assert.Equal(t, kernel, GenerateSSAOKernel(64, 42))
	assert.NotEqual(t, kernel, GenerateSSAOKernel(64, 43))
	assert.Len(t, GenerateSSAOKernel(16, 42), 16)
}

func TestSSAOKernelClustersNearOrigin(t *testing.T) {
	kernel := GenerateSSAOKernel(64, 7)
	var first, last float32
	for _, s := range kernel[:16] {
		first += s.ToVec3().Length()
	}
	for _, s := range kernel[48:] {
		last += s.ToVec3().Length()
	}
	assert.Less(t, first, last)
}

func TestSSAONoise(t *testing.T) {
	noise := GenerateSSAONoise(1337)
	require.Len(t, noise, SSAO_NOISE_DIMENSION*SSAO_NOISE_DIMENSION*4)
	for i := 0; i < len(noise); i += 4 {
		assert.Equal(t, byte(128), noise[i+2], "z must encode 0")
		assert.Equal(t, byte(255), noise[i+3])
	}
	assert.Equal(t, noise, GenerateSSAONoise(1337))
}

func TestDispatchSize(t *testing.T) {
	assert.Equal(t, uint32(1), dispatchSize(1))
	assert.Equal(t, uint32(1), dispatchSize(16))
	assert.Equal(t, uint32(2), dispatchSize(17))
	assert.Equal(t, uint32(120), dispatchSize(1920))
}
